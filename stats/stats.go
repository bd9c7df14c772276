// Package stats computes the summary statistics and correlations used by
// the explore and visualize stages.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Finite returns the finite values of x in order.
func Finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Pearson returns the correlation of x and y over rows where both are
// finite. It is NaN when fewer than two such rows exist or either side is
// constant.
func Pearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if finite(x[i]) && finite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CorrelationMatrix returns the pairwise Pearson correlation of the named
// numeric columns.
func CorrelationMatrix(t *dataset.Table, cols []string) (*mat.SymDense, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("CorrelationMatrix", "no numeric columns")
	}
	data := make([][]float64, len(cols))
	for i, name := range cols {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		data[i] = values
	}
	corr := mat.NewSymDense(len(cols), nil)
	for i := range cols {
		for j := i; j < len(cols); j++ {
			if i == j {
				if len(Finite(data[i])) >= 2 && stat.Variance(Finite(data[i]), nil) > 0 {
					corr.SetSym(i, i, 1)
				} else {
					corr.SetSym(i, i, math.NaN())
				}
				continue
			}
			corr.SetSym(i, j, Pearson(data[i], data[j]))
		}
	}
	return corr, nil
}

// Summary is the describe() row of one numeric column. Std is the sample
// standard deviation; quartiles use linear interpolation between order
// statistics.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Describe summarizes each named numeric column, ignoring non-finite cells.
func Describe(t *dataset.Table, cols []string) ([]Summary, error) {
	out := make([]Summary, 0, len(cols))
	for _, name := range cols {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(name, values))
	}
	return out, nil
}

func summarize(name string, values []float64) Summary {
	x := Finite(values)
	s := Summary{Column: name, Count: len(x)}
	nan := math.NaN()
	if len(x) == 0 {
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	sort.Float64s(x)
	s.Mean = stat.Mean(x, nil)
	s.Std = nan
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	s.Min, s.Max = x[0], x[len(x)-1]
	s.Q1 = Quantile(x, 0.25)
	s.Median = Quantile(x, 0.5)
	s.Q3 = Quantile(x, 0.75)
	return s
}

// Quantile returns the p-quantile of sorted x, interpolating linearly
// between the two nearest ranks (h = (n-1)p).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
