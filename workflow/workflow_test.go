package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/forestfire/config"
	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/model_selection"
	"github.com/YuminosukeSato/forestfire/observability"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/report"
)

// tenRows has two exact duplicates and one row with a missing humidity.
const tenRows = `region,temp,humid,wind,rain,fire
A,30,40,10,0.5,1
A,30,40,10,0.5,1
B,25,60,12,0,0
B,25,60,12,0,0
A,32,35,15,1.5,1
B,20,,11,0,0
A,28,45,9,0.2,1
B,22,70,14,0,0
A,35,30,16,2,1
B,21,75,10,0.1,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fireCSV generates n rows without duplicates in which FWI = 1 + 2*ISI + 3*BUI
// exactly and fire depends on temperature and humidity.
func fireCSV(n int) string {
	var b strings.Builder
	b.WriteString("region,temp,humid,wind,rain,FFMC,ISI,BUI,FWI,fire\n")
	for i := 0; i < n; i++ {
		region := []string{"Bejaia", "Sidi-Bel"}[i%2]
		temp := 22 + float64((i*7)%15)
		humid := 40 + float64((i*11)%45)
		wind := 10 + float64((i*5)%9)
		rain := float64((i*3)%4) * 0.5
		isi := 1 + float64((i*13)%10)/2
		bui := 3 + float64((i*17)%20)
		fwi := 1 + 2*isi + 3*bui
		ffmc := 60 + temp - 0.2*humid + float64(i%3)
		fire := 0
		if temp-0.2*humid > 16 {
			fire = 1
		}
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%g,%g,%g,%g,%d\n", region, temp, humid, wind, rain, ffmc, isi, bui, fwi, fire)
	}
	return b.String()
}

func newRunner(t *testing.T, mutate func(c *config.Config)) (*Runner, *log.TestLogger) {
	t.Helper()
	cfg := config.Default()
	cfg.FiguresDir = t.TempDir()
	cfg.NEstimators = 10
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	logger, _ := log.NewTestLogger(log.LevelDebug)
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return New(cfg, WithLogger(logger), WithMetrics(observability.NewMetrics()), WithRunIDs(ids)), logger
}

func readText(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestPreprocess_TenRows(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "forestfire.prom")
	r, logger := newRunner(t, func(c *config.Config) { c.MetricsFile = metricsPath })

	in := writeFile(t, "raw.csv", tenRows)
	out := filepath.Join(dir, "clean.csv")
	summary, err := r.Preprocess(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.RowsIn)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Incomplete)
	assert.Equal(t, 7, summary.RowsOut)
	assert.Equal(t, []string{"temp_humid_ratio", "wind_rain_interaction"}, summary.Derived)
	assert.NotContains(t, summary.Normalized, "fire")

	tbl, err := dataset.ReadCSVFile(out)
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.NRows())
	assert.Equal(t,
		[]string{"region", "temp", "humid", "wind", "rain", "fire", "temp_humid_ratio", "wind_rain_interaction"},
		tbl.Columns())

	temp, err := tbl.Floats("temp")
	require.NoError(t, err)
	mean, std := stat.PopMeanStdDev(temp, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	fire, err := tbl.Floats("fire")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 1, 0, 1, 0}, fire)

	assert.True(t, logger.ContainsMessage("Stage completed"))
	assert.True(t, logger.HasLevel(log.LevelWarn), "leakage warning")

	prom := readText(t, metricsPath)
	assert.Contains(t, prom, `forestfire_rows_loaded{stage="preprocess"} 10`)
	assert.Contains(t, prom, `forestfire_rows_written{stage="preprocess"} 7`)
	assert.Contains(t, prom, `forestfire_rows_dropped{reason="duplicate",stage="preprocess"} 2`)
	assert.Contains(t, prom, `forestfire_rows_dropped{reason="incomplete",stage="preprocess"} 1`)
	assert.Contains(t, prom, `forestfire_derived_features 2`)
	assert.Contains(t, prom, `forestfire_stage_runs_total{outcome="success",stage="preprocess"} 1`)
}

func TestPreprocess_Idempotent(t *testing.T) {
	r, _ := newRunner(t, nil)
	dir := t.TempDir()
	in := writeFile(t, "raw.csv", fireCSV(40))
	once := filepath.Join(dir, "once.csv")
	twice := filepath.Join(dir, "twice.csv")

	_, err := r.Preprocess(context.Background(), in, once)
	require.NoError(t, err)
	s, err := r.Preprocess(context.Background(), once, twice)
	require.NoError(t, err)
	assert.Zero(t, s.Duplicates)
	assert.Zero(t, s.Incomplete)
	assert.Empty(t, s.Derived, "derived columns already exist")

	a, err := dataset.ReadCSVFile(once)
	require.NoError(t, err)
	b, err := dataset.ReadCSVFile(twice)
	require.NoError(t, err)
	require.Equal(t, a.Columns(), b.Columns())
	for _, name := range a.NumericColumns() {
		x, _ := a.Floats(name)
		y, _ := b.Floats(name)
		assert.InDeltaSlice(t, x, y, 1e-9, name)
	}
}

func TestPreprocess_ZeroDenominator(t *testing.T) {
	r, _ := newRunner(t, func(c *config.Config) { c.DerivedFeatures = []string{"ratio=a/b"} })
	var warnings []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	in := writeFile(t, "raw.csv", "a,b,fire\n1,0,1\n0,0,0\n2,4,1\n")
	out := filepath.Join(t.TempDir(), "out.csv")
	s, err := r.Preprocess(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"ratio"}, s.Derived)
	require.Len(t, warnings, 1)

	var dcw *errors.DataConversionWarning
	assert.True(t, errors.As(warnings[0], &dcw))
}

func TestPreprocess_LoadError(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "m.prom")
	r, logger := newRunner(t, func(c *config.Config) { c.MetricsFile = metricsPath })

	_, err := r.Preprocess(context.Background(), filepath.Join(dir, "absent.csv"), filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	var le *errors.LoadError
	assert.True(t, errors.As(err, &le))
	assert.True(t, logger.HasLevel(log.LevelError))
	assert.Contains(t, readText(t, metricsPath), `forestfire_stage_runs_total{outcome="error",stage="preprocess"} 1`)
}

func TestStage_CancelledContext(t *testing.T) {
	r, _ := newRunner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := writeFile(t, "raw.csv", tenRows)
	_, err := r.Preprocess(ctx, in, filepath.Join(t.TempDir(), "out.csv"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_EndToEnd(t *testing.T) {
	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	observability.SetClock(clockwork.NewFakeClockAt(start))
	t.Cleanup(func() { observability.SetClock(nil) })

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "runs.db")
	metricsPath := filepath.Join(dir, "m.prom")
	r, _ := newRunner(t, func(c *config.Config) {
		c.CVFolds = 3
		c.LedgerPath = ledgerPath
		c.MetricsFile = metricsPath
	})
	ctx := context.Background()

	raw := writeFile(t, "raw.csv", fireCSV(60))
	clean := filepath.Join(dir, "clean.csv")
	_, err := r.Preprocess(ctx, raw, clean)
	require.NoError(t, err)

	reportPath := filepath.Join(dir, "model_results.txt")
	rep, err := r.Model(ctx, clean, reportPath)
	require.NoError(t, err)

	assert.Equal(t, "run-2", rep.RunID)
	assert.Equal(t, start, rep.CreatedAt)
	assert.Equal(t, model_selection.TestCount(60, 0.2), rep.TestSize)
	assert.Equal(t, 12, rep.TestSize)
	assert.Equal(t, 48, rep.TrainSize)
	assert.Equal(t, []string{"temp", "humid", "wind", "rain", "FFMC", "ISI", "BUI", "FWI", "temp_humid_ratio", "wind_rain_interaction"}, rep.Features)
	require.Len(t, rep.Importances, len(rep.Features))
	for i := 1; i < len(rep.Importances); i++ {
		assert.GreaterOrEqual(t, rep.Importances[i-1].Importance, rep.Importances[i].Importance)
	}
	require.NotNil(t, rep.ROCAUC)
	require.NotNil(t, rep.LogLoss)
	assert.Greater(t, *rep.LogLoss, 0.0)
	require.NotNil(t, rep.CrossValidation)
	assert.Len(t, rep.CrossValidation.Scores, 3)
	assert.Equal(t, 10, rep.Params["n_estimators"])
	assert.Equal(t, true, rep.Params["bootstrap"])
	require.NotNil(t, rep.Forest)
	assert.Equal(t, 10, rep.Forest.Trees)
	assert.Equal(t, 2*rep.Forest.Leaves-rep.Forest.Trees, rep.Forest.Nodes)
	assert.GreaterOrEqual(t, rep.Forest.MaxDepth, 1)

	text := readText(t, reportPath)
	assert.True(t, strings.HasPrefix(text, "Forest Fire Prediction Model Results\n===================================\n\n"))
	assert.Contains(t, text, "Cross-validation accuracy (3 folds)")
	assert.Contains(t, text, "Log loss: ")
	assert.Contains(t, text, "Test set size: 12\n")
	assert.Contains(t, text, "Number of features: 10\n")

	// the text report and the JSON record carry the same importances
	parsed, err := report.ParseText(strings.NewReader(text))
	require.NoError(t, err)
	record, err := report.ReadRecord(report.RecordPath(reportPath))
	require.NoError(t, err)
	require.Len(t, parsed.Importances, len(record.Importances))
	for i := range parsed.Importances {
		assert.Equal(t, record.Importances[i].Feature, parsed.Importances[i].Feature)
		assert.Equal(t, record.Importances[i].Importance, parsed.Importances[i].Importance)
	}

	runs, err := r.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, rep.Classification.Accuracy, runs[0].Accuracy)
	require.NotNil(t, runs[0].CVMean)
	assert.InDelta(t, rep.CrossValidation.Mean, *runs[0].CVMean, 1e-12)

	got, err := r.LookupRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, reportPath, got.Report)

	prom := readText(t, metricsPath)
	assert.Contains(t, prom, "forestfire_model_accuracy ")
	assert.Contains(t, prom, "forestfire_model_cv_accuracy ")
	assert.Contains(t, prom, `forestfire_stage_duration_seconds{stage="model"} 0`)
}

func TestModel_SplitDeterminism(t *testing.T) {
	in := writeFile(t, "raw.csv", fireCSV(50))
	dir := t.TempDir()

	var reports []*report.Report
	for i := 0; i < 2; i++ {
		r, _ := newRunner(t, nil)
		rep, err := r.Model(context.Background(), in, filepath.Join(dir, fmt.Sprintf("r%d.txt", i)))
		require.NoError(t, err)
		reports = append(reports, rep)
	}
	assert.Equal(t, reports[0].Importances, reports[1].Importances)
	assert.Equal(t, reports[0].ConfusionMatrix, reports[1].ConfusionMatrix)
	assert.Equal(t, reports[0].Classification, reports[1].Classification)
}

func TestModel_WithoutBootstrap(t *testing.T) {
	in := writeFile(t, "raw.csv", fireCSV(50))
	r, _ := newRunner(t, func(c *config.Config) { c.Bootstrap = false })
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	rep, err := r.Model(context.Background(), in, reportPath)
	require.NoError(t, err)
	assert.Equal(t, false, rep.Params["bootstrap"])
	assert.Contains(t, readText(t, reportPath), "'bootstrap': False")

	record, err := report.ReadRecord(report.RecordPath(reportPath))
	require.NoError(t, err)
	assert.Equal(t, rep.Forest, record.Forest)
}

func TestModel_ZeroFeatures(t *testing.T) {
	var b strings.Builder
	b.WriteString("region,fire\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,%d\n", []string{"A", "B"}[i%2], i%3%2)
	}
	in := writeFile(t, "raw.csv", b.String())
	r, _ := newRunner(t, nil)
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	rep, err := r.Model(context.Background(), in, reportPath)
	require.NoError(t, err)
	assert.Empty(t, rep.Features)
	assert.Empty(t, rep.Importances)
	assert.Equal(t, 2, rep.TestSize)
	assert.Equal(t, &report.ForestShape{Trees: 10, Nodes: 10, Leaves: 10}, rep.Forest)

	text := readText(t, reportPath)
	assert.Contains(t, text, "Number of features: 0\n")
	assert.Contains(t, text, "feature importance\n\nModel Parameters")
}

func TestModel_MissingLabel(t *testing.T) {
	r, _ := newRunner(t, func(c *config.Config) { c.Label = "burned" })
	in := writeFile(t, "raw.csv", fireCSV(20))
	_, err := r.Model(context.Background(), in, filepath.Join(t.TempDir(), "r.txt"))
	require.Error(t, err)
	var ce *errors.ColumnError
	assert.True(t, errors.As(err, &ce))
}

func TestRunsWithoutLedger(t *testing.T) {
	r, _ := newRunner(t, nil)
	_, err := r.Runs(context.Background(), 10)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestVisualize(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, "raw.csv", fireCSV(40))
	ctx := context.Background()

	t.Run("json record", func(t *testing.T) {
		r, _ := newRunner(t, nil)
		reportPath := filepath.Join(dir, "a.txt")
		rep, err := r.Model(ctx, in, reportPath)
		require.NoError(t, err)

		out := filepath.Join(dir, "a.pdf")
		res, err := r.Visualize(ctx, in, reportPath, out)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Pages)
		assert.Equal(t, len(rep.Importances), res.Importances)
		assert.True(t, strings.HasPrefix(readText(t, out), "%PDF"))
	})

	t.Run("legacy text report", func(t *testing.T) {
		r, _ := newRunner(t, nil)
		reportPath := filepath.Join(dir, "b.txt")
		rep, err := r.Model(ctx, in, reportPath)
		require.NoError(t, err)
		require.NoError(t, os.Remove(report.RecordPath(reportPath)))

		res, err := r.Visualize(ctx, in, reportPath, filepath.Join(dir, "b.pdf"))
		require.NoError(t, err)
		assert.Equal(t, 3, res.Pages)
		assert.Equal(t, len(rep.Importances), res.Importances)
	})

	t.Run("malformed report", func(t *testing.T) {
		r, logger := newRunner(t, nil)
		reportPath := writeFile(t, "c.txt", "nothing useful here\n")
		res, err := r.Visualize(ctx, in, reportPath, filepath.Join(dir, "c.pdf"))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Pages)
		assert.Zero(t, res.Importances)
		assert.True(t, logger.HasLevel(log.LevelWarn))
	})

	t.Run("missing report", func(t *testing.T) {
		r, _ := newRunner(t, nil)
		_, err := r.Visualize(ctx, in, filepath.Join(dir, "absent.txt"), filepath.Join(dir, "d.pdf"))
		assert.Error(t, err)
	})

	t.Run("nothing to plot", func(t *testing.T) {
		r, _ := newRunner(t, nil)
		data := writeFile(t, "label_only.csv", "fire\n1\n0\n1\n")
		reportPath := writeFile(t, "e.txt", "Feature Importance\n")
		_, err := r.Visualize(ctx, data, reportPath, filepath.Join(dir, "e.pdf"))
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestExplore(t *testing.T) {
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "stats.xlsx")
	r, logger := newRunner(t, func(c *config.Config) { c.StatsXLSX = xlsx })
	in := writeFile(t, "raw.csv", fireCSV(30))
	out := filepath.Join(dir, "exploratory.png")

	res, err := r.Explore(context.Background(), in, out)
	require.NoError(t, err)
	require.Len(t, res.Figures, 3)
	for _, f := range append(res.Figures, out, xlsx) {
		info, err := os.Stat(f)
		require.NoError(t, err, f)
		assert.Positive(t, info.Size(), f)
	}
	assert.Equal(t, filepath.Join(r.Config().FiguresDir, HeatmapFile), res.Figures[0])
	assert.Equal(t, xlsx, res.Workbook)
	assert.True(t, logger.ContainsMessage("Summary statistics"))
}

func TestExplore_MissingColumns(t *testing.T) {
	r, logger := newRunner(t, nil)
	in := writeFile(t, "raw.csv", "a,b\n1,2\n2,3\n3,5\n")
	out := filepath.Join(t.TempDir(), "exploratory.pdf")

	res, err := r.Explore(context.Background(), in, out)
	require.NoError(t, err)
	assert.Len(t, res.Figures, 1, "only the heatmap")
	assert.True(t, logger.ContainsMessage("Skipping pairplot: no configured columns present"))
	assert.True(t, strings.HasPrefix(readText(t, out), "%PDF"))
}

func TestRegress(t *testing.T) {
	r, _ := newRunner(t, nil)
	in := writeFile(t, "raw.csv", fireCSV(60))
	out := filepath.Join(t.TempDir(), "regressions.txt")

	res, err := r.Regress(context.Background(), in, out)
	require.NoError(t, err)
	require.Len(t, res.Models, 5)
	assert.Empty(t, res.Skipped)

	fwi := res.Models[4]
	assert.Equal(t, "FWI ~ ISI + BUI", fwi.Formula)
	assert.Equal(t, []string{"Intercept", "ISI", "BUI"}, fwi.Names)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, fwi.Params, 1e-8)
	assert.InDelta(t, 1, fwi.RSquared, 1e-12)

	humid := res.Models[0]
	assert.Equal(t, []string{"Intercept", "region[T.Sidi-Bel]", "temp"}, humid.Names)

	text := readText(t, out)
	assert.True(t, strings.HasPrefix(text, "Forest Fire Regression Results\n"))
	assert.Contains(t, text, "FFMC ~ humid + humid^2\n")
	assert.Contains(t, text, "RMSE: ")
	assert.Contains(t, text, "MAE: ")
	_, err = os.Stat(report.RecordPath(out))
	assert.NoError(t, err)
}

func TestRegress_SkipsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "m.prom")
	r, logger := newRunner(t, func(c *config.Config) { c.MetricsFile = metricsPath })
	in := writeFile(t, "raw.csv", tenRows)

	res, err := r.Regress(context.Background(), in, filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Len(t, res.Models, 1, "only humid ~ temp + region has its columns")
	assert.Len(t, res.Skipped, 4)
	assert.Equal(t, 9, res.Models[0].NObs, "the row with missing humidity is dropped")
	assert.True(t, logger.ContainsMessage("Skipping regression: columns missing"))

	prom := readText(t, metricsPath)
	assert.Contains(t, prom, `forestfire_regressions_total{outcome="fitted"} 1`)
	assert.Contains(t, prom, `forestfire_regressions_total{outcome="skipped"} 4`)
}

func TestRegress_BadFormula(t *testing.T) {
	r, _ := newRunner(t, func(c *config.Config) { c.Regressions = []string{"FWI ISI"} })
	in := writeFile(t, "raw.csv", fireCSV(10))
	_, err := r.Regress(context.Background(), in, filepath.Join(t.TempDir(), "out.txt"))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestClassBalance(t *testing.T) {
	assert.Equal(t, "0:2 1:3", classBalance([]float64{1, 0, 1, 1, 0}))
	assert.Equal(t, "", classBalance(nil))
}
