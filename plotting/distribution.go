package plotting

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// DistributionsPerRow is the number of histograms per row on the
// distribution page.
const DistributionsPerRow = 3

// stackedBins counts finite values per hue into n equal-width bins and
// returns cumulative counts, so layer k covers hues 0..k.
func stackedBins(values []float64, hs *hueSplit, n int) (lo, width float64, layers [][]float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rows := range hs.rows {
		for _, r := range rows {
			if v := values[r]; isFinite(v) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, nil
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width = (hi - lo) / float64(n)

	layers = make([][]float64, len(hs.rows))
	running := make([]float64, n)
	for k, rows := range hs.rows {
		for _, r := range rows {
			v := values[r]
			if !isFinite(v) {
				continue
			}
			b := int((v - lo) / width)
			if b >= n {
				b = n - 1
			}
			running[b]++
		}
		layers[k] = append([]float64(nil), running...)
	}
	return lo, width, layers
}

// addStackedHist draws per-hue histograms stacked on top of each other.
func addStackedHist(p *plot.Plot, values []float64, hs *hueSplit, n int) error {
	lo, width, layers := stackedBins(values, hs, n)
	if layers == nil {
		return nil
	}
	// 上の層から描き、下の層で塗り重ねる
	for k := len(layers) - 1; k >= 0; k-- {
		bins := make([]plotter.HistogramBin, n)
		for b := range bins {
			bins[b] = plotter.HistogramBin{
				Min:    lo + float64(b)*width,
				Max:    lo + float64(b+1)*width,
				Weight: layers[k][b],
			}
		}
		h := &plotter.Histogram{
			Bins:      bins,
			Width:     width,
			FillColor: hueColor(k),
			LineStyle: plotter.DefaultLineStyle,
		}
		p.Add(h)
		if len(hs.levels) > 1 && hs.levels[k] != "" {
			p.Legend.Add(hs.levels[k], h)
		}
	}
	return nil
}

// Distributions returns one stacked histogram per column, split by hue.
func Distributions(t *dataset.Table, cols []string, hue string, bins int) ([]*plot.Plot, error) {
	if bins <= 0 {
		bins = 20
	}
	hs, err := splitByHue(t, hue)
	if err != nil {
		return nil, err
	}
	out := make([]*plot.Plot, 0, len(cols))
	for _, c := range cols {
		values, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		p := plot.New()
		p.Title.Text = "Distribution of " + c
		p.X.Label.Text = c
		p.Y.Label.Text = "count"
		p.Legend.Top = true
		if err := addStackedHist(p, values, hs, bins); err != nil {
			return nil, errors.Wrapf(err, "histogram %s", c)
		}
		out = append(out, p)
	}
	return out, nil
}
