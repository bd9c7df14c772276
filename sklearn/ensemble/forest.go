// Package ensemble provides a bagged random-forest classifier built on
// sklearn/tree.
package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/core/model"
	"github.com/YuminosukeSato/forestfire/core/parallel"
	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of NEstimators
// gini trees, each grown on a bootstrap sample with sqrt(n_features)
// candidate features per split.
type RandomForestClassifier struct {
	state  *model.StateManager
	logger log.Logger

	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     uint64
	NJobs           int

	estimators_  []*tree.DecisionTreeClassifier
	classes_     []float64
	importances_ []float64
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(f *RandomForestClassifier) { f.NEstimators = n } }

// WithMaxDepth limits tree depth; zero means unlimited.
func WithMaxDepth(d int) Option { return func(f *RandomForestClassifier) { f.MaxDepth = d } }

// WithRandomState seeds the forest.
func WithRandomState(seed uint64) Option {
	return func(f *RandomForestClassifier) { f.RandomState = seed }
}

// WithNJobs sets the number of concurrent tree builders; zero or less uses
// every CPU.
func WithNJobs(n int) Option { return func(f *RandomForestClassifier) { f.NJobs = n } }

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option { return func(f *RandomForestClassifier) { f.Bootstrap = b } }

// WithLogger sets the logger used during Fit.
func WithLogger(l log.Logger) Option { return func(f *RandomForestClassifier) { f.logger = l } }

// NewRandomForestClassifier creates a forest with 100 trees, gini, sqrt
// max features, bootstrap and random_state 0 unless overridden.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	f := &RandomForestClassifier{
		state:           model.NewStateManager(),
		NEstimators:     100,
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.GetLoggerWithName("RandomForestClassifier")
	}
	return f
}

// IsFitted は学習済みかどうかを返す
func (f *RandomForestClassifier) IsFitted() bool { return f.state.IsFitted() }

// Fit grows the forest. Tree seeds are drawn from the forest seed before
// any tree is built, so the result does not depend on scheduling.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yc != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yc, 1)
	}
	if yr != nSamples {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yr, 0)
	}

	classes := make([]float64, 0, 2)
	seen := make(map[float64]struct{})
	for i := 0; i < yr; i++ {
		v := y.At(i, 0)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)

	f.logger.Info("Training started",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"n_estimators", f.NEstimators,
	)

	master := rand.New(rand.NewPCG(f.RandomState, f.RandomState))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*tree.DecisionTreeClassifier, f.NEstimators)
	errs := make([]error, f.NEstimators)
	parallel.ParallelizeN(f.NEstimators, f.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			trees[i], errs[i] = f.fitTree(X, y, classes, seeds[i], nSamples)
		}
	})
	for _, err := range errs {
		if err != nil {
			return errors.NewModelError("RandomForestClassifier.Fit", "tree fitting failed", err)
		}
	}

	importances := make([]float64, nFeatures)
	for _, t := range trees {
		imp, err := t.FeatureImportances()
		if err != nil {
			return err
		}
		for j, v := range imp {
			importances[j] += v
		}
	}
	sum := 0.0
	for _, v := range importances {
		sum += v
	}
	if sum > 0 {
		for j := range importances {
			importances[j] /= sum
		}
	}

	f.estimators_ = trees
	f.classes_ = classes
	f.importances_ = importances
	f.state.SetFitted(nFeatures, nSamples)
	return nil
}

func (f *RandomForestClassifier) fitTree(X, y mat.Matrix, classes []float64, seed uint64, n int) (*tree.DecisionTreeClassifier, error) {
	t := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(f.Criterion),
		tree.WithMaxDepth(f.MaxDepth),
		tree.WithMinSamplesSplit(f.MinSamplesSplit),
		tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
		tree.WithMaxFeatures(f.MaxFeatures),
		tree.WithRandomState(seed),
	)
	var weights []float64
	if f.Bootstrap {
		r := rand.New(rand.NewPCG(seed, ^seed))
		weights = make([]float64, n)
		for i := 0; i < n; i++ {
			weights[r.IntN(n)]++
		}
	}
	if err := t.FitWeighted(X, y, weights, classes); err != nil {
		return nil, err
	}
	return t, nil
}

// PredictProba averages tree probabilities; columns follow Classes().
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := f.state.CheckFeatures("RandomForestClassifier.PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(f.classes_), nil)
	row := make([]float64, len(f.classes_))
	scale := 1 / float64(len(f.estimators_))
	for i := 0; i < r; i++ {
		for k := range row {
			row[k] = 0
		}
		for _, t := range f.estimators_ {
			t.ApplyProba(X, i, row)
		}
		for k := range row {
			row[k] *= scale
		}
		out.SetRow(i, row)
	}
	return out, nil
}

// Predict returns the class with the highest mean probability, ties going
// to the smaller class label.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for k := range f.classes_ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, f.classes_[best])
	}
	return out, nil
}

// Score returns the mean accuracy on X and y.
func (f *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	if yr, _ := y.Dims(); yr != r {
		return 0, errors.NewDimensionError("RandomForestClassifier.Score", r, yr, 0)
	}
	if r == 0 {
		return 0, errors.NewValueError("RandomForestClassifier.Score", "empty data")
	}
	return metrics.Accuracy(mat.NewVecDense(r, mat.Col(nil, 0, y)), mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// Classes returns the sorted class labels.
func (f *RandomForestClassifier) Classes() []float64 { return append([]float64(nil), f.classes_...) }

// FeatureImportances returns mean decrease in impurity per feature,
// normalized to sum to one. Empty when there are no features; all zeros
// when every tree is a single leaf.
func (f *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if err := f.state.RequireFitted("RandomForestClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), f.importances_...), nil
}

// Estimators returns the fitted trees.
func (f *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return f.estimators_
}

// GetParams returns hyperparameters keyed by their scikit-learn names.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	var maxDepth interface{}
	if f.MaxDepth > 0 {
		maxDepth = f.MaxDepth
	}
	var nJobs interface{}
	if f.NJobs > 0 {
		nJobs = f.NJobs
	}
	return map[string]interface{}{
		"bootstrap":                f.Bootstrap,
		"ccp_alpha":                0.0,
		"class_weight":             nil,
		"criterion":                f.Criterion,
		"max_depth":                maxDepth,
		"max_features":             f.MaxFeatures,
		"max_leaf_nodes":           nil,
		"max_samples":              nil,
		"min_impurity_decrease":    0.0,
		"min_samples_leaf":         f.MinSamplesLeaf,
		"min_samples_split":        f.MinSamplesSplit,
		"min_weight_fraction_leaf": 0.0,
		"monotonic_cst":            nil,
		"n_estimators":             f.NEstimators,
		"n_jobs":                   nJobs,
		"oob_score":                false,
		"random_state":             int(f.RandomState),
		"verbose":                  0,
		"warm_start":               false,
	}
}

var _ model.Classifier = (*RandomForestClassifier)(nil)
var _ model.FeatureImportancer = (*RandomForestClassifier)(nil)
