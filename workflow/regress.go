package workflow

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/YuminosukeSato/forestfire/linear"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/report"
)

// RegressResult lists the fitted models and the formulas that were skipped.
type RegressResult struct {
	Models  []*linear.OLSResult `json:"models"`
	Skipped []string            `json:"skipped"`
}

// Regress fits every configured OLS formula against the data at in and
// writes the estimates to out, plus a JSON copy next to it. A formula whose
// columns are absent, or whose system cannot be solved, is skipped with a
// warning. A formula that does not parse is a configuration error.
func (r *Runner) Regress(ctx context.Context, in, out string) (*RegressResult, error) {
	res := &RegressResult{Models: []*linear.OLSResult{}, Skipped: []string{}}
	err := r.run(ctx, StageRegress, func(logger log.Logger, _ string) error {
		t, err := r.load(StageRegress, in, logger)
		if err != nil {
			return err
		}

		for _, src := range r.cfg.Regressions {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := linear.ParseFormula(src)
			if err != nil {
				return err
			}
			var missing []string
			for _, c := range f.Columns() {
				if !t.Has(c) {
					missing = append(missing, c)
				}
			}
			if len(missing) > 0 {
				logger.Warn("Skipping regression: columns missing", "formula", src, log.ColumnsKey, missing)
				res.Skipped = append(res.Skipped, src)
				r.metrics.Regressions.WithLabelValues("skipped").Inc()
				continue
			}

			ols, err := linear.FitFormula(src, t)
			if err != nil {
				logger.Warn("Skipping regression: fit failed", err, "formula", src)
				res.Skipped = append(res.Skipped, src)
				r.metrics.Regressions.WithLabelValues("skipped").Inc()
				continue
			}
			logger.Info("Fitted regression",
				"formula", src,
				log.SamplesKey, ols.NObs,
				log.R2ScoreKey, ols.RSquared,
				log.MSEKey, ols.MSE,
			)
			res.Models = append(res.Models, ols)
			r.metrics.Regressions.WithLabelValues("fitted").Inc()
		}

		if len(res.Models) == 0 {
			logger.Warn("No regression could be fitted")
		}
		if err := writeRegressions(out, res); err != nil {
			return err
		}
		logger.Info("Regression results saved", log.PathKey, out)
		return nil
	})
	return res, err
}

func writeRegressions(path string, res *RegressResult) error {
	var b strings.Builder
	b.WriteString("Forest Fire Regression Results\n")
	b.WriteString("==============================\n")
	for _, m := range res.Models {
		b.WriteString("\n")
		b.WriteString(m.String())
	}
	if len(res.Skipped) > 0 {
		b.WriteString("\nSkipped\n-------\n")
		for _, s := range res.Skipped {
			b.WriteString(s + "\n")
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal regressions")
	}
	rec := report.RecordPath(path)
	if err := os.WriteFile(rec, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", rec)
	}
	return nil
}
