// Package workflow はCSVを受け渡して順に実行されるバッチステージ
// (preprocess, explore, model, visualize, regress) を実装します。
//
// 各ステージは入出力パスだけを受け取る独立した関数で、他のステージを
// プロセス内で呼び出すことはありません。
package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/forestfire/config"
	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/observability"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

// Stage names used in logs and metrics labels.
const (
	StagePreprocess = "preprocess"
	StageExplore    = "explore"
	StageModel      = "model"
	StageVisualize  = "visualize"
	StageRegress    = "regress"
)

// Runner executes stages with a shared configuration, logger and metrics.
type Runner struct {
	cfg     *config.Config
	logger  log.Logger
	metrics *observability.Metrics
	newID   func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Stage loggers are derived from it.
func WithLogger(l log.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithMetrics sets the metrics the stages record into.
func WithMetrics(m *observability.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithRunIDs replaces the run id generator (uuid v4 by default).
func WithRunIDs(fn func() string) Option { return func(r *Runner) { r.newID = fn } }

// New creates a Runner. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{cfg: cfg, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("workflow")
	}
	if r.metrics == nil {
		r.metrics = observability.NewMetrics()
	}
	return r
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() *config.Config { return r.cfg }

// Metrics returns the metrics the stages record into.
func (r *Runner) Metrics() *observability.Metrics { return r.metrics }

// run wraps one stage invocation: it assigns a run id, times the stage,
// records the outcome and writes the metrics textfile when configured.
func (r *Runner) run(ctx context.Context, stage string, fn func(logger log.Logger, runID string) error) error {
	runID := r.newID()
	logger := r.logger.With(log.StageKey, stage, log.RunIDKey, runID)
	sw := observability.StartStopwatch()

	err := ctx.Err()
	if err == nil {
		err = fn(logger, runID)
	}

	elapsed := sw.Elapsed()
	r.metrics.ObserveStage(stage, elapsed.Seconds(), err)
	if err != nil {
		logger.Error("Stage failed", err, log.DurationMsKey, elapsed.Milliseconds())
	} else {
		logger.Info("Stage completed", log.DurationMsKey, elapsed.Milliseconds())
	}

	if path := r.cfg.MetricsFile; path != "" {
		if werr := r.metrics.WriteTextfile(path); werr != nil {
			if err != nil {
				logger.Warn("Failed to write metrics textfile", werr, log.PathKey, path)
			} else {
				err = werr
			}
		}
	}
	return err
}

// load reads a stage input and records its row count.
func (r *Runner) load(stage, path string, logger log.Logger) (*dataset.Table, error) {
	logger.Info("Loading data", log.PathKey, path)
	t, err := dataset.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	r.metrics.RowsLoaded.WithLabelValues(stage).Set(float64(t.NRows()))
	return t, nil
}
