package tree

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits tree depth. Zero or less means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each child.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are examined per split:
// "sqrt", "log2" or "" (all features).
func WithMaxFeatures(maxFeatures string) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = maxFeatures }
}

// WithRandomState seeds the feature permutation used at each split.
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
		dt.hasRandomState = true
	}
}
