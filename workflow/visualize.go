package workflow

import (
	"context"

	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/plotting"
	"github.com/YuminosukeSato/forestfire/preprocessing"
	"github.com/YuminosukeSato/forestfire/report"
	"github.com/YuminosukeSato/forestfire/stats"
)

// VisualizeResult describes the document Visualize wrote.
type VisualizeResult struct {
	Pages       int
	Importances int
}

// Visualize re-reads the data at dataPath and the model report at
// reportPath and writes a multi-page PDF to out: stacked distribution
// histograms, the correlation heatmap (both without the label) and the
// feature-importance chart. Pages with nothing to draw are omitted; a
// report without importances is not an error.
func (r *Runner) Visualize(ctx context.Context, dataPath, reportPath, out string) (*VisualizeResult, error) {
	res := &VisualizeResult{}
	err := r.run(ctx, StageVisualize, func(logger log.Logger, _ string) error {
		t, err := r.load(StageVisualize, dataPath, logger)
		if err != nil {
			return err
		}
		logger.Info("Reading model results", log.PathKey, reportPath)
		imps, err := report.LoadImportances(reportPath, logger)
		if err != nil {
			return err
		}
		res.Importances = len(imps)

		logger.Info("Creating visualizations")
		cols := preprocessing.NormalizeColumns(t, r.cfg.Label)
		doc := plotting.NewDocument(15*vg.Inch, 12*vg.Inch)

		if len(cols) > 0 {
			plots, err := plotting.Distributions(t, cols, r.hue(t), 0)
			if err != nil {
				return err
			}
			if err := doc.AddGrid("distributions", plotting.Rows(plots, plotting.DistributionsPerRow)); err != nil {
				return err
			}

			corr, err := stats.CorrelationMatrix(t, cols)
			if err != nil {
				return err
			}
			hm, err := plotting.Heatmap("Feature Correlation Heatmap", cols, corr)
			if err != nil {
				return err
			}
			if err := doc.Add("correlation", hm); err != nil {
				return err
			}
		} else {
			logger.Warn("No numeric columns besides the label; skipping distribution and correlation pages")
		}

		if len(imps) > 0 {
			p, err := plotting.Importances(imps)
			if err != nil {
				return err
			}
			if err := doc.Add("importance", p); err != nil {
				return err
			}
		} else {
			logger.Warn("No feature importances recovered; skipping importance page", log.PathKey, reportPath)
		}

		if doc.Pages() == 0 {
			return errors.NewValueError("Visualize", "nothing to plot")
		}
		if err := doc.Save(out); err != nil {
			return err
		}
		res.Pages = doc.Pages()
		logger.Info("Visualizations saved", log.PathKey, out, "pages", res.Pages)
		return nil
	})
	return res, err
}
