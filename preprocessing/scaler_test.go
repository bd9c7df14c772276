package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), scaler.Scale[0], 1e-12)
	// zero variance column scales by 1
	assert.Equal(t, 1.0, scaler.Scale[1])

	assert.InDelta(t, (1-2.5)/math.Sqrt(1.25), out.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, out.At(3, 1))
}

func TestStandardScaler_IgnoresNonFinite(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, math.Inf(1), 3, math.NaN()})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 1.0, scaler.Scale[0], 1e-12)
	assert.True(t, math.IsInf(out.At(1, 0), 1))
	assert.True(t, math.IsNaN(out.At(3, 0)))
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	assert.Equal(t, "StandardScaler(with_mean=true, with_std=true, n_features=2)", scaler.String())
}

func TestStandardScaler_WithoutMean(t *testing.T) {
	scaler := NewStandardScaler(false, true)
	out, err := scaler.FitTransform(mat.NewDense(2, 1, []float64{2, 4}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, scaler.Mean[0])
	assert.InDelta(t, 2.0, out.At(0, 0), 1e-12)
}
