package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

func TestDecisionTreeClassifier_ZeroFeatures(t *testing.T) {
	y := mat.NewDense(5, 1, []float64{0, 1, 1, 1, 0})
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(dataset.ZeroWidth(5), y))

	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, 0, dt.GetDepth())
	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.Empty(t, imp)

	proba, err := dt.PredictProba(dataset.ZeroWidth(2))
	require.NoError(t, err)
	assert.InDelta(t, 0.6, proba.At(0, 1), 1e-12)

	pred, err := dt.Predict(dataset.ZeroWidth(2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestDecisionTreeClassifier_Weighted(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	// rows with zero weight are ignored, so the tree only sees 0 and 3
	require.NoError(t, dt.FitWeighted(X, y, []float64{2, 0, 0, 1}, []float64{0, 1, 2}))

	assert.Equal(t, []float64{0, 1, 2}, dt.Classes())
	proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{0.2}))
	require.NoError(t, err)
	_, cols := proba.Dims()
	assert.Equal(t, 3, cols)
	assert.Equal(t, 1.0, proba.At(0, 0))

	err = dt.FitWeighted(X, y, nil, []float64{0})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestDecisionTreeClassifier_NonFiniteFeatures(t *testing.T) {
	inf := math.Inf(1)
	X := mat.NewDense(6, 1, []float64{1, 2, 3, inf, inf, math.NaN()})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithRandomState(42))
	require.NoError(t, dt.Fit(X, y))

	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDecisionTreeClassifier_RandomStateDeterministic(t *testing.T) {
	X := mat.NewDense(12, 4, nil)
	y := mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*7+j*3)%5))
		}
		y.Set(i, 0, float64(i%2))
	}

	fit := func() []float64 {
		dt := NewDecisionTreeClassifier(WithMaxFeatures("sqrt"), WithRandomState(42))
		require.NoError(t, dt.Fit(X, y))
		imp, err := dt.FeatureImportances()
		require.NoError(t, err)
		return imp
	}
	assert.Equal(t, fit(), fit())
}

func TestDecisionTreeClassifier_Validation(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	assert.Error(t, NewDecisionTreeClassifier(WithCriterion("mse")).Fit(X, y))
	assert.Error(t, NewDecisionTreeClassifier(WithMinSamplesSplit(1)).Fit(X, y))
	assert.Error(t, NewDecisionTreeClassifier().Fit(X, mat.NewDense(3, 1, nil)))
	assert.Error(t, NewDecisionTreeClassifier().Fit(X, mat.NewDense(2, 1, []float64{0, math.NaN()})))

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	_, err := dt.Predict(mat.NewDense(1, 2, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMaxFeaturesFor(t *testing.T) {
	assert.Equal(t, 3, maxFeaturesFor("sqrt", 12))
	assert.Equal(t, 1, maxFeaturesFor("sqrt", 0))
	assert.Equal(t, 3, maxFeaturesFor("log2", 12))
	assert.Equal(t, 12, maxFeaturesFor("", 12))
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 1.5, threshold(1, 2))
	assert.Equal(t, 3.0, threshold(3, math.Inf(1)))
	assert.Equal(t, 3.0, threshold(3, math.NaN()))
	assert.True(t, math.IsInf(threshold(math.Inf(-1), 0), -1))
}
