// Package plotting は探索段と可視化段の図を gonum/plot で描画します。
package plotting

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Grid row 0 is
// the bottom of the chart, so rows are flipped to put the first variable on
// top.
type corrGrid struct {
	m mat.Symmetric
}

func (g corrGrid) Dims() (c, r int)   { n := g.m.SymmetricDim(); return n, n }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
func (g corrGrid) Z(c, r int) float64 { n := g.m.SymmetricDim(); return g.m.At(n-1-r, c) }

// Heatmap draws an annotated correlation heatmap over names with a
// blue-red diverging palette fixed to [-1, 1]. NaN cells are grey.
func Heatmap(title string, names []string, corr mat.Symmetric) (*plot.Plot, error) {
	n := corr.SymmetricDim()
	if n == 0 || n != len(names) {
		return nil, errors.NewDimensionError("Heatmap", len(names), n, 0)
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := corrGrid{m: corr}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = title
	p.Add(hm)

	var xys plotter.XYs
	var labels []string
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			z := grid.Z(c, r)
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			if math.IsNaN(z) {
				labels = append(labels, "nan")
			} else {
				labels = append(labels, strconv.FormatFloat(z, 'f', 2, 64))
			}
		}
	}
	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, errors.Wrap(err, "heatmap annotations")
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = -0.5
		annot.TextStyle[i].YAlign = -0.5
	}
	p.Add(annot)

	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, name := range names {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	return p, nil
}
