package plotting

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/forestfire/stats"
)

// RegionalCounts draws a grouped bar chart of row counts per group, one bar
// per hue level.
func RegionalCounts(ct *stats.CrossTab, group, hue string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Fire Occurrence by " + group
	p.Y.Label.Text = "count"
	p.Legend.Top = true

	barWidth := vg.Points(18)
	nh := len(ct.Hues)
	for h, counts := range ct.Counts {
		bars, err := plotter.NewBarChart(plotter.Values(counts), barWidth)
		if err != nil {
			return nil, err
		}
		bars.Color = hueColor(h)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = barWidth * vg.Length(2*h-nh+1) / 2
		p.Add(bars)
		p.Legend.Add(hue+"="+ct.Hues[h], bars)
	}
	p.NominalX(ct.Groups...)
	return p, nil
}

// RegionalBoxes draws one box plot of the grouped values per group. Empty
// groups are left blank.
func RegionalBoxes(g *stats.Grouped, group, value string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = value + " Distribution by " + group
	p.Y.Label.Text = value
	for i, values := range g.Values {
		if len(values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(values))
		if err != nil {
			return nil, err
		}
		box.FillColor = hueColor(i)
		p.Add(box)
	}
	p.NominalX(g.Groups...)
	return p, nil
}
