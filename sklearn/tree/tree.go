// Package tree は CART 決定木分類器を提供します。ランダムフォレストの基本学習器として使われます。
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/core/model"
	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// featureThreshold: 値の差がこれ以下の隣接サンプル間では分割しない
const featureThreshold = 1e-7

// impurityEpsilon 以下の不純度のノードは純粋とみなす
const impurityEpsilon = 1e-12

type node struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	value     []float64 // class probabilities
	impurity  float64
	nSamples  int
	weightedN float64
}

func (n *node) isLeaf() bool { return n.feature < 0 }

// DecisionTreeClassifier はscikit-learn互換のCART分類木
//
// 使用例:
//
//	dt := tree.NewDecisionTreeClassifier(
//	    tree.WithCriterion("gini"),
//	    tree.WithMaxDepth(5),
//	)
//	err := dt.Fit(X, y)
//	pred, err := dt.Predict(XTest)
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	randomState     uint64
	hasRandomState  bool

	classes_     []float64
	nClasses_    int
	nodes        []node
	importances_ []float64
	depth_       int
	nLeaves_     int
}

var (
	_ model.Classifier         = (*DecisionTreeClassifier)(nil)
	_ model.FeatureImportancer = (*DecisionTreeClassifier)(nil)
)

// NewDecisionTreeClassifier creates a tree with gini impurity, unlimited
// depth, min_samples_split=2 and min_samples_leaf=1 unless overridden.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// IsFitted は学習済みかどうかを返す
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// Fit builds the tree from X (n_samples x n_features) and a column of labels.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil, nil)
}

// FitWeighted fits with per-sample weights (nil means all ones). Samples with
// zero weight are ignored. classes fixes the label set and its column order
// in PredictProba; nil derives it from y.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64, classes []float64) error {
	impurity, ok := criterionFunc(dt.criterion)
	if !ok {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	labels, err := column(y, nSamples, "DecisionTreeClassifier.Fit")
	if err != nil {
		return err
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(sampleWeight), 0)
	}

	if classes == nil {
		classes = uniqueSorted(labels)
	}
	classIndex := make(map[float64]int, len(classes))
	for k, c := range classes {
		classIndex[c] = k
	}
	encoded := make([]int, nSamples)
	for i, v := range labels {
		k, ok := classIndex[v]
		if !ok {
			return errors.NewValueError("DecisionTreeClassifier.Fit", fmt.Sprintf("label %v is not one of the classes %v", v, classes))
		}
		encoded[i] = k
	}

	b := &builder{
		dt:        dt,
		impurity:  impurity,
		nClasses:  len(classes),
		y:         encoded,
		weight:    sampleWeight,
		features:  columnsOf(X, nSamples, nFeatures),
		maxF:      maxFeaturesFor(dt.maxFeatures, nFeatures),
		rng:       dt.newRand(),
		gains:     make([]float64, nFeatures),
		nFeatures: nFeatures,
	}

	samples := make([]int, 0, nSamples)
	for i := 0; i < nSamples; i++ {
		if sampleWeight == nil || sampleWeight[i] > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "all sample weights are zero")
	}

	dt.nodes = dt.nodes[:0]
	dt.depth_, dt.nLeaves_ = 0, 0
	b.build(samples, 0)

	dt.classes_ = append([]float64(nil), classes...)
	dt.nClasses_ = len(classes)
	dt.importances_ = normalize(b.gains)
	dt.state.SetFitted(nFeatures, nSamples)
	return nil
}

func (dt *DecisionTreeClassifier) newRand() *rand.Rand {
	seed := dt.randomState
	if !dt.hasRandomState {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// PredictProba returns class probabilities, one column per class in
// Classes() order.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, dt.nClasses_, nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, dt.leafFor(X, i).value)
	}
	return out, nil
}

// Predict returns the most probable class for each row as an (n x 1) matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, dt.classes_[argmax(dt.leafFor(X, i).value)])
	}
	return out, nil
}

// ApplyProba adds this tree's class probabilities for row i of X into dst.
// It is used by ensembles to avoid allocating a matrix per tree.
func (dt *DecisionTreeClassifier) ApplyProba(X mat.Matrix, i int, dst []float64) {
	for k, p := range dt.leafFor(X, i).value {
		dst[k] += p
	}
}

func (dt *DecisionTreeClassifier) leafFor(X mat.Matrix, i int) *node {
	n := &dt.nodes[0]
	for !n.isLeaf() {
		// NaN compares false and goes right
		if X.At(i, n.feature) <= n.threshold {
			n = &dt.nodes[n.left]
		} else {
			n = &dt.nodes[n.right]
		}
	}
	return n
}

// Score returns the mean accuracy on X and y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := X.Dims()
	labels, err := column(y, r, "DecisionTreeClassifier.Score")
	if err != nil {
		return 0, err
	}
	if r == 0 {
		return 0, errors.NewValueError("DecisionTreeClassifier.Score", "empty data")
	}
	return metrics.Accuracy(mat.NewVecDense(r, labels), mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// FeatureImportances returns the normalized impurity decrease per feature.
// All zeros when the tree is a single leaf.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.importances_...), nil
}

// Classes returns the sorted class labels seen during fitting.
func (dt *DecisionTreeClassifier) Classes() []float64 { return append([]float64(nil), dt.classes_...) }

// GetDepth returns the depth of the fitted tree (0 for a single leaf).
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth_ }

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int { return dt.nLeaves_ }

// GetNodeCount returns the number of nodes.
func (dt *DecisionTreeClassifier) GetNodeCount() int { return len(dt.nodes) }

// GetParams returns hyperparameters keyed by their scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	var maxDepth, maxFeatures, randomState interface{}
	if dt.maxDepth > 0 {
		maxDepth = dt.maxDepth
	}
	if dt.maxFeatures != "" {
		maxFeatures = dt.maxFeatures
	}
	if dt.hasRandomState {
		randomState = int(dt.randomState)
	}
	return map[string]interface{}{
		"ccp_alpha":                0.0,
		"class_weight":             nil,
		"criterion":                dt.criterion,
		"max_depth":                maxDepth,
		"max_features":             maxFeatures,
		"max_leaf_nodes":           nil,
		"min_impurity_decrease":    0.0,
		"min_samples_leaf":         dt.minSamplesLeaf,
		"min_samples_split":        dt.minSamplesSplit,
		"min_weight_fraction_leaf": 0.0,
		"random_state":             randomState,
		"splitter":                 "best",
	}
}

// builder grows one tree depth-first.
type builder struct {
	dt        *DecisionTreeClassifier
	impurity  impurityFunc
	nClasses  int
	y         []int
	weight    []float64
	features  [][]float64
	nFeatures int
	maxF      int
	rng       *rand.Rand
	gains     []float64
}

func (b *builder) w(i int) float64 {
	if b.weight == nil {
		return 1
	}
	return b.weight[i]
}

func (b *builder) counts(samples []int) ([]float64, float64) {
	counts := make([]float64, b.nClasses)
	total := 0.0
	for _, i := range samples {
		counts[b.y[i]] += b.w(i)
		total += b.w(i)
	}
	return counts, total
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left
	gain      float64
	order     []int
}

func (b *builder) build(samples []int, depth int) int {
	dt := b.dt
	counts, total := b.counts(samples)
	imp := b.impurity(counts, total)

	idx := len(dt.nodes)
	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / total
	}
	dt.nodes = append(dt.nodes, node{
		feature:   -1,
		value:     value,
		impurity:  imp,
		nSamples:  len(samples),
		weightedN: total,
	})
	if depth > dt.depth_ {
		dt.depth_ = depth
	}

	n := len(samples)
	leaf := (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		imp <= impurityEpsilon
	var best *split
	if !leaf {
		best = b.findSplit(samples, imp, total)
	}
	if best == nil {
		dt.nLeaves_++
		return idx
	}

	b.gains[best.feature] += best.gain
	left := b.build(best.order[:best.pos], depth+1)
	right := b.build(best.order[best.pos:], depth+1)

	nd := &dt.nodes[idx]
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = left
	nd.right = right
	return idx
}

// findSplit draws features in random order and returns the best valid split
// among the first maxF non-constant ones, continuing past maxF until some
// valid split exists.
func (b *builder) findSplit(samples []int, parentImp, parentW float64) *split {
	var best *split
	visited := 0
	for _, f := range b.rng.Perm(b.nFeatures) {
		if visited >= b.maxF && best != nil {
			break
		}
		xs := b.features[f]
		order := append([]int(nil), samples...)
		sort.SliceStable(order, func(a, c int) bool { return lessNaNLast(xs[order[a]], xs[order[c]]) })
		if sameValue(xs[order[0]], xs[order[len(order)-1]]) {
			continue
		}
		visited++

		leftCounts := make([]float64, b.nClasses)
		rightCounts, _ := b.counts(order)
		leftW, rightW := 0.0, parentW
		for p := 0; p < len(order)-1; p++ {
			i := order[p]
			wi := b.w(i)
			leftCounts[b.y[i]] += wi
			rightCounts[b.y[i]] -= wi
			leftW += wi
			rightW -= wi

			cur, next := xs[i], xs[order[p+1]]
			if sameValue(cur, next) {
				continue
			}
			nLeft := p + 1
			if nLeft < b.dt.minSamplesLeaf || len(order)-nLeft < b.dt.minSamplesLeaf {
				continue
			}
			gain := parentW*parentImp - leftW*b.impurity(leftCounts, leftW) - rightW*b.impurity(rightCounts, rightW)
			if best == nil || gain > best.gain {
				best = &split{feature: f, threshold: threshold(cur, next), pos: nLeft, gain: gain, order: order}
			}
		}
	}
	return best
}

// threshold picks the midpoint between adjacent distinct values, falling
// back to the lower value when the midpoint is not strictly below next.
func threshold(cur, next float64) float64 {
	if math.IsNaN(next) || math.IsInf(next, 1) {
		return cur
	}
	mid := cur/2 + next/2
	if math.IsInf(mid, 0) || mid >= next || mid < cur {
		return cur
	}
	return mid
}

func lessNaNLast(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return b <= a+featureThreshold
}

func maxFeaturesFor(setting string, nFeatures int) int {
	var k int
	switch setting {
	case "sqrt", "auto":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

func normalize(gains []float64) []float64 {
	out := make([]float64, len(gains))
	sum := 0.0
	for _, g := range gains {
		sum += g
	}
	if sum <= 0 {
		return out
	}
	for i, g := range gains {
		out[i] = g / sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for k, v := range values {
		if v > values[best] {
			best = k
		}
	}
	return best
}

func column(y mat.Matrix, n int, op string) ([]float64, error) {
	r, c := y.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	if r != n {
		return nil, errors.NewDimensionError(op, n, r, 0)
	}
	out := make([]float64, r)
	for i := range out {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError(op, "labels must be finite")
		}
		out[i] = v
	}
	return out, nil
}

func columnsOf(X mat.Matrix, rows, cols int) [][]float64 {
	out := make([][]float64, cols)
	for j := range out {
		out[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = X.At(i, j)
		}
	}
	return out
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
