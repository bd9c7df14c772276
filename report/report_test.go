package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	yTrue := []float64{0, 0, 1, 1, 1}
	yPred := []float64{0, 1, 1, 1, 0}
	cr, err := metrics.NewClassificationReport(yTrue, yPred)
	require.NoError(t, err)
	cm, err := metrics.NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	auc, logLoss := 0.75, 0.5
	return &Report{
		RunID:           "run-1",
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Label:           "fire",
		Classification:  cr,
		ConfusionMatrix: cm,
		ROCAUC:          &auc,
		LogLoss:         &logLoss,
		Importances:     SortImportances([]string{"temp", "humid", "wind"}, []float64{0.25, 0.5, 0.25}),
		Params: map[string]interface{}{
			"n_estimators":             100,
			"bootstrap":                true,
			"max_depth":                nil,
			"criterion":                "gini",
			"min_weight_fraction_leaf": 0.0,
		},
		TrainSize: 20,
		TestSize:  5,
		Features:  []string{"temp", "humid", "wind"},
	}
}

func TestSortImportances_StableTies(t *testing.T) {
	got := SortImportances([]string{"a", "b", "c", "d"}, []float64{0.1, 0.3, 0.3, 0.3})
	names := make([]string, len(got))
	for i, g := range got {
		names[i] = g.Feature
	}
	assert.Equal(t, []string{"b", "c", "d", "a"}, names)
}

func TestWriteText_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Forest Fire Prediction Model Results\n===================================\n\nModel Performance\n-----------------\n"))
	assert.Contains(t, out, "Confusion Matrix\n----------------\n[[1 1]\n [1 2]]\n\n")
	assert.Contains(t, out, "Feature Importance\n-----------------\nfeature importance\nhumid 0.5\ntemp 0.25\nwind 0.25\n\nModel Parameters\n")
	assert.Contains(t, out, "{'bootstrap': True, 'criterion': 'gini', 'max_depth': None, 'min_weight_fraction_leaf': 0.0, 'n_estimators': 100}")
	assert.Contains(t, out, "ROC AUC: 0.7500\nLog loss: 0.5000\n")
	assert.True(t, strings.HasSuffix(out, "Data Statistics\n--------------\nTraining set size: 20\nTest set size: 5\nNumber of features: 3\nFeatures used: temp, humid, wind\n"))
}

func TestParseText_RoundTrip(t *testing.T) {
	r := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))

	res, err := ParseText(&buf)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, r.Importances, res.Importances)
}

func TestParseText_LegacyAndMalformed(t *testing.T) {
	legacy := `Feature Importance
-----------------
  feature  importance
3    wind    0.412345
0    temp    0.300000
oops this line is junk
1   humid         n/a

Model Parameters
----------------
ignored 0.9
`
	res, err := ParseText(strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, []Importance{{"wind", 0.412345}, {"temp", 0.3}}, res.Importances)
	assert.Equal(t, 2, res.Skipped)

	res, err = ParseText(strings.NewReader("nothing to see\n"))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Importances)
}

func TestParseText_HeaderTokens(t *testing.T) {
	text := `Feature Importance
feature 0.5
x importance
temp 0.4

Model Parameters
`
	res, err := ParseText(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, []Importance{{"temp", 0.4}}, res.Importances)
	assert.Zero(t, res.Skipped)
}

func TestRecord_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.txt")
	assert.Equal(t, filepath.Join(dir, "report.json"), RecordPath(reportPath))
	assert.Equal(t, "x.json.json", RecordPath("x.json"))

	r := sampleReport(t)
	require.NoError(t, WriteRecord(RecordPath(reportPath), r))

	got, err := ReadRecord(RecordPath(reportPath))
	require.NoError(t, err)
	assert.Equal(t, RecordVersion, got.Version)
	assert.Equal(t, r.Importances, got.Importances)
	assert.Equal(t, r.ConfusionMatrix, got.ConfusionMatrix)
	assert.Equal(t, r.Features, got.Features)
	require.NotNil(t, got.ROCAUC)
	assert.Equal(t, 0.75, *got.ROCAUC)
}

func TestReadRecord_RejectsUnknownVersion(t *testing.T) {
	p := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"version": 7}`), 0o644))
	_, err := ReadRecord(p)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte(`{not json`), 0o644))
	_, err = ReadRecord(p)
	assert.Error(t, err)
}

func TestLoadImportances(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.txt")
	r := sampleReport(t)
	require.NoError(t, WriteTextFile(reportPath, r))

	logger, _ := log.NewTestLogger(log.LevelDebug)
	got, err := LoadImportances(reportPath, logger)
	require.NoError(t, err)
	assert.Equal(t, r.Importances, got, "text path")

	r.Importances = []Importance{{"only", 1}}
	require.NoError(t, WriteRecord(RecordPath(reportPath), r))
	got, err = LoadImportances(reportPath, logger)
	require.NoError(t, err)
	assert.Equal(t, []Importance{{"only", 1}}, got, "record preferred")

	broken := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.WriteFile(broken, []byte("Feature Importance\ngarbage\n"), 0o644))
	logger.Clear()
	got, err = LoadImportances(broken, logger)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, logger.HasLevel(log.LevelWarn))

	_, err = LoadImportances(filepath.Join(dir, "missing.txt"), logger)
	assert.Error(t, err)
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "{}", FormatParams(nil))
	assert.Equal(t, "{'a': 1e-07, 'b': 100000.0, 'c': 0.5, 'd': 'it\\'s'}",
		FormatParams(map[string]interface{}{"a": 1e-7, "b": 1e5, "c": 0.5, "d": "it's"}))
}
