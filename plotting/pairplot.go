package plotting

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// hueSplit groups row indices by the levels of the hue column. Rows with a
// missing hue are dropped. Without a hue column every row is in one group
// named "".
type hueSplit struct {
	levels []string
	rows   [][]int
}

func splitByHue(t *dataset.Table, hue string) (*hueSplit, error) {
	if hue == "" {
		all := make([]int, t.NRows())
		for i := range all {
			all[i] = i
		}
		return &hueSplit{levels: []string{""}, rows: [][]int{all}}, nil
	}
	c, ok := t.Column(hue)
	if !ok {
		return nil, errors.NewColumnError("plotting", hue)
	}
	hs := &hueSplit{levels: c.Levels()}
	pos := make(map[string]int, len(hs.levels))
	for i, l := range hs.levels {
		pos[l] = i
	}
	hs.rows = make([][]int, len(hs.levels))
	for r := 0; r < t.NRows(); r++ {
		if c.IsMissing(r) {
			continue
		}
		k := pos[c.Value(r)]
		hs.rows[k] = append(hs.rows[k], r)
	}
	return hs, nil
}

func hueColor(i int) color.Color { return plotutil.Color(i) }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Pairplot builds an n x n grid: scatter plots of every column pair off the
// diagonal and per-hue histograms on it. Each cell is coloured by hue.
func Pairplot(t *dataset.Table, cols []string, hue string) ([][]*plot.Plot, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("Pairplot", "no columns")
	}
	hs, err := splitByHue(t, hue)
	if err != nil {
		return nil, err
	}
	data := make([][]float64, len(cols))
	for i, c := range cols {
		if data[i], err = t.Floats(c); err != nil {
			return nil, err
		}
	}

	grid := make([][]*plot.Plot, len(cols))
	for i := range cols {
		grid[i] = make([]*plot.Plot, len(cols))
		for j := range cols {
			p := plot.New()
			if i == len(cols)-1 {
				p.X.Label.Text = cols[j]
			}
			if j == 0 {
				p.Y.Label.Text = cols[i]
			}
			if i == j {
				if err := addStackedHist(p, data[i], hs, 10); err != nil {
					return nil, err
				}
			} else if err := addScatter(p, data[j], data[i], hs); err != nil {
				return nil, err
			}
			grid[i][j] = p
		}
	}
	if hue != "" {
		top := grid[0][len(cols)-1]
		top.Legend.Top = true
		for k, lvl := range hs.levels {
			sw, _ := plotter.NewScatter(plotter.XYs{{}})
			sw.GlyphStyle.Color = hueColor(k)
			sw.GlyphStyle.Shape = draw.CircleGlyph{}
			top.Legend.Add(hue+"="+lvl, sw)
		}
	}
	return grid, nil
}

func addScatter(p *plot.Plot, xs, ys []float64, hs *hueSplit) error {
	for k, rows := range hs.rows {
		var pts plotter.XYs
		for _, r := range rows {
			if isFinite(xs[r]) && isFinite(ys[r]) {
				pts = append(pts, plotter.XY{X: xs[r], Y: ys[r]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrap(err, "scatter")
		}
		s.GlyphStyle.Color = hueColor(k)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
	}
	return nil
}
