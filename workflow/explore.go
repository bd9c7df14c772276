package workflow

import (
	"context"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/plotting"
	"github.com/YuminosukeSato/forestfire/stats"
)

// Figure file names written to the figures directory by Explore.
const (
	HeatmapFile  = "correlation_heatmap.png"
	PairplotFile = "feature_pairplot.png"
	RegionalFile = "regional_analysis.png"
)

// ExploreResult lists the files Explore produced.
type ExploreResult struct {
	Figures   []string
	Composite string
	Workbook  string
}

// Explore renders the correlation heatmap, the pairplot and the regional
// analysis as PNG files in the figures directory, then re-reads them and
// stacks them into one composite figure at out. Panels whose columns are
// missing are skipped with a warning.
func (r *Runner) Explore(ctx context.Context, in, out string) (*ExploreResult, error) {
	res := &ExploreResult{}
	err := r.run(ctx, StageExplore, func(logger log.Logger, _ string) error {
		t, err := r.load(StageExplore, in, logger)
		if err != nil {
			return err
		}
		rows, cols := t.Shape()
		numeric := t.NumericColumns()
		logger.Info("Data shape", log.SamplesKey, rows, log.FeaturesKey, cols)
		logger.Info("Columns in dataset", log.ColumnsKey, t.Columns())
		logger.Info("Numeric columns", log.ColumnsKey, numeric)
		if len(numeric) == 0 {
			return errors.NewValueError("Explore", "no numeric columns")
		}

		dir := r.cfg.FiguresDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create figures dir %s", dir)
		}

		logger.Info("Creating correlation heatmap")
		corr, err := stats.CorrelationMatrix(t, numeric)
		if err != nil {
			return err
		}
		hm, err := plotting.Heatmap("Correlation Heatmap of Forest Fire Features", numeric, corr)
		if err != nil {
			return err
		}
		var panels []plotting.Panel
		heatPath := filepath.Join(dir, HeatmapFile)
		if err := plotting.SavePNG(heatPath, 12*vg.Inch, 10*vg.Inch, hm); err != nil {
			return err
		}
		panels = append(panels, plotting.Panel{Title: "Correlation Heatmap", Path: heatPath})

		logger.Info("Creating pairplot")
		pp, err := r.pairplot(t, filepath.Join(dir, PairplotFile), logger)
		if err != nil {
			return err
		}
		if pp != nil {
			panels = append(panels, *pp)
		}

		logger.Info("Creating regional analysis plots")
		rp, err := r.regional(t, filepath.Join(dir, RegionalFile), logger)
		if err != nil {
			return err
		}
		if rp != nil {
			panels = append(panels, *rp)
		}

		for _, p := range panels {
			res.Figures = append(res.Figures, p.Path)
		}

		logger.Info("Combining plots", log.PathKey, out)
		if err := plotting.Compose(out, 15*vg.Inch, 30*vg.Inch, panels); err != nil {
			return err
		}
		res.Composite = out

		summaries, err := stats.Describe(t, numeric)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			logger.Info("Summary statistics",
				log.ColumnKey, s.Column,
				"count", s.Count,
				"mean", s.Mean,
				"std", s.Std,
				"min", s.Min,
				"q1", s.Q1,
				"median", s.Median,
				"q3", s.Q3,
				"max", s.Max,
			)
		}
		if path := r.cfg.StatsXLSX; path != "" {
			if err := stats.WriteWorkbook(path, summaries, numeric, corr); err != nil {
				return err
			}
			res.Workbook = path
			logger.Info("Statistics workbook saved", log.PathKey, path)
		}

		logger.Info("Exploratory analysis completed", log.PathKey, out)
		return nil
	})
	return res, err
}

// hue returns the label column when present, else "" (single group).
func (r *Runner) hue(t *dataset.Table) string {
	if t.Has(r.cfg.Label) {
		return r.cfg.Label
	}
	return ""
}

func (r *Runner) pairplot(t *dataset.Table, path string, logger log.Logger) (*plotting.Panel, error) {
	var cols []string
	for _, c := range r.cfg.PairplotColumns {
		if col, ok := t.Column(c); ok && col.Kind == dataset.Numeric && c != r.cfg.Label {
			cols = append(cols, c)
		} else {
			logger.Warn("Pairplot column unavailable", log.ColumnKey, c)
		}
	}
	if len(cols) == 0 {
		logger.Warn("Skipping pairplot: no configured columns present")
		return nil, nil
	}
	grid, err := plotting.Pairplot(t, cols, r.hue(t))
	if err != nil {
		return nil, err
	}
	side := vg.Length(max(len(cols)*2, 4)) * vg.Inch
	if err := plotting.SaveGridPNG(path, side, side, grid); err != nil {
		return nil, err
	}
	return &plotting.Panel{Title: "Feature Pairplot", Path: path}, nil
}

func (r *Runner) regional(t *dataset.Table, path string, logger log.Logger) (*plotting.Panel, error) {
	region, label, temp := r.cfg.RegionColumn, r.cfg.Label, r.cfg.TemperatureColumn
	for _, c := range []string{region, label} {
		if !t.Has(c) {
			logger.Warn("Skipping regional analysis: column missing", log.ColumnKey, c)
			return nil, nil
		}
	}

	ct, err := stats.CountBy(t, region, label)
	if err != nil {
		return nil, err
	}
	counts, err := plotting.RegionalCounts(ct, region, label)
	if err != nil {
		return nil, err
	}
	row := []*plot.Plot{counts}

	if c, ok := t.Column(temp); ok && c.Kind == dataset.Numeric {
		g, err := stats.GroupValues(t, region, temp)
		if err != nil {
			return nil, err
		}
		boxes, err := plotting.RegionalBoxes(g, region, temp)
		if err != nil {
			return nil, err
		}
		row = append(row, boxes)
	} else {
		logger.Warn("Skipping temperature box plot: column missing", log.ColumnKey, temp)
	}

	if err := plotting.SaveGridPNG(path, 12*vg.Inch, 6*vg.Inch, [][]*plot.Plot{row}); err != nil {
		return nil, err
	}
	return &plotting.Panel{Title: "Regional Analysis", Path: path}, nil
}
