package workflow

import (
	"context"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/preprocessing"
)

// Preprocess loads the raw CSV at in, drops duplicate and incomplete rows,
// adds the configured derived features, standardizes numeric columns except
// the label and writes the result to out.
func (r *Runner) Preprocess(ctx context.Context, in, out string) (preprocessing.Summary, error) {
	var summary preprocessing.Summary
	err := r.run(ctx, StagePreprocess, func(logger log.Logger, _ string) error {
		t, err := r.load(StagePreprocess, in, logger)
		if err != nil {
			return err
		}
		features, err := r.cfg.Features()
		if err != nil {
			return err
		}

		p := preprocessing.NewPipeline(r.cfg.Label, features, logger)
		cleaned, s, err := p.Run(t)
		summary = s
		if err != nil {
			return err
		}
		r.metrics.RowsDropped.WithLabelValues(StagePreprocess, "duplicate").Set(float64(s.Duplicates))
		r.metrics.RowsDropped.WithLabelValues(StagePreprocess, "incomplete").Set(float64(s.Incomplete))
		r.metrics.DerivedFeatures.Set(float64(len(s.Derived)))

		if err := dataset.WriteCSVFile(out, cleaned); err != nil {
			return err
		}
		r.metrics.RowsWritten.WithLabelValues(StagePreprocess).Set(float64(cleaned.NRows()))
		logger.Info("Preprocessed data saved", log.PathKey, out, log.SamplesKey, cleaned.NRows())
		return nil
	})
	return summary, err
}
