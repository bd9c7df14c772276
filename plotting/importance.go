package plotting

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/report"
)

// Importances draws a horizontal bar chart with the most important feature
// at the top.
func Importances(imps []report.Importance) (*plot.Plot, error) {
	if len(imps) == 0 {
		return nil, errors.NewValueError("Importances", "no feature importances")
	}
	n := len(imps)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, imp := range imps {
		values[n-1-i] = imp.Importance
		names[n-1-i] = imp.Feature
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, errors.Wrap(err, "importance bars")
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)

	p := plot.New()
	p.Title.Text = "Feature Importance"
	p.X.Label.Text = "importance"
	p.X.Min = 0
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}
