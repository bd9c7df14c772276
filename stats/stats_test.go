package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

func table(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3, math.NaN()}, []float64{3, 2, 1, 5}), 1e-12)
	assert.True(t, math.IsNaN(Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})))
	assert.True(t, math.IsNaN(Pearson([]float64{1}, []float64{2})))
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := table(t, "a,b,c,d\n1,2,5,x\n2,4,5,y\n3,7,5,z\n")
	corr, err := CorrelationMatrix(tbl, []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, corr.At(0, 0))
	assert.InDelta(t, corr.At(0, 1), corr.At(1, 0), 0)
	assert.Greater(t, corr.At(0, 1), 0.9)
	assert.True(t, math.IsNaN(corr.At(2, 2)), "constant column")
	assert.True(t, math.IsNaN(corr.At(0, 2)))

	_, err = CorrelationMatrix(tbl, []string{"d"})
	assert.Error(t, err)
	_, err = CorrelationMatrix(tbl, nil)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	tbl := table(t, "v\n1\n2\n3\n4\nNA\n")
	got, err := Describe(tbl, []string{"v"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q1, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q3, 1e-12)
	assert.Equal(t, 4.0, s.Max)
}

func TestQuantileEdges(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.75))
	assert.Equal(t, 3.0, Quantile([]float64{1, 2, 3}, 1))
}

func TestCountBy(t *testing.T) {
	tbl := table(t, "region,fire\nB,1\nA,0\nA,1\nB,1\n,1\n")
	ct, err := CountBy(tbl, "region", "fire")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, ct.Groups)
	assert.Equal(t, []string{"0", "1"}, ct.Hues)
	assert.Equal(t, [][]float64{{1, 0}, {1, 2}}, ct.Counts)

	_, err = CountBy(tbl, "zone", "fire")
	var colErr *errors.ColumnError
	assert.True(t, errors.As(err, &colErr))
}

func TestGroupValues(t *testing.T) {
	tbl := table(t, "region,temp\nB,30\nA,25\nA,27\nB,inf\n")
	g, err := GroupValues(tbl, "region", "temp")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.Groups)
	assert.Equal(t, [][]float64{{25, 27}, {30}}, g.Values)
}
