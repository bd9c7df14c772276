package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fire", c.Label)
	assert.Equal(t, "region", c.RegionColumn)
	assert.Equal(t, "temp", c.TemperatureColumn)
	assert.Equal(t, []string{"index", "id", "date"}, c.ExcludeColumns)
	assert.Equal(t, []string{"temp", "humid", "wind", "rain"}, c.PairplotColumns)
	assert.Equal(t, []string{"temp_humid_ratio=temp/humid", "wind_rain_interaction=wind*rain"}, c.DerivedFeatures)
	assert.Equal(t, 0.2, c.TestSize)
	assert.Equal(t, uint64(42), c.RandomSeed)
	assert.Equal(t, 100, c.NEstimators)
	assert.Equal(t, 0, c.MaxDepth)
	assert.True(t, c.Bootstrap)
	assert.Equal(t, 0, c.CVFolds)
	assert.Equal(t, DefaultRegressions(), c.Regressions)
	assert.Equal(t, log.LevelInfo, c.Level())

	features, err := c.Features()
	require.NoError(t, err)
	assert.Len(t, features, 2)

	assert.Equal(t, c, Default())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forestfire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
label: burned
test_size: 0.25
n_estimators: 10
bootstrap: false
cv_folds: 5
exclude_columns: [day]
regressions:
  - "FWI ~ ISI"
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "burned", c.Label)
	assert.Equal(t, 0.25, c.TestSize)
	assert.Equal(t, 10, c.NEstimators)
	assert.False(t, c.Bootstrap)
	assert.Equal(t, 5, c.CVFolds)
	assert.Equal(t, []string{"day"}, c.ExcludeColumns)
	assert.Equal(t, []string{"FWI ~ ISI"}, c.Regressions)
	// untouched keys keep their defaults
	assert.Equal(t, "region", c.RegionColumn)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FORESTFIRE_LABEL", "ignited")
	t.Setenv("FORESTFIRE_RANDOM_SEED", "7")
	t.Setenv("FORESTFIRE_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ignited", c.Label)
	assert.Equal(t, uint64(7), c.RandomSeed)
	assert.Equal(t, log.LevelDebug, c.Level())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		param  string
	}{
		{"empty label", func(c *Config) { c.Label = "" }, "label"},
		{"test size zero", func(c *Config) { c.TestSize = 0 }, "test_size"},
		{"test size one", func(c *Config) { c.TestSize = 1 }, "test_size"},
		{"no trees", func(c *Config) { c.NEstimators = 0 }, "n_estimators"},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, "max_depth"},
		{"one fold", func(c *Config) { c.CVFolds = 1 }, "cv_folds"},
		{"negative jobs", func(c *Config) { c.NJobs = -2 }, "n_jobs"},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad feature", func(c *Config) { c.DerivedFeatures = []string{"ratio"} }, "derived_features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)

			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %T", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	c := Default()
	c.Label = "burned"
	c.CVFolds = 3
	c.LedgerPath = "runs.db"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(c, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "burned", doc["label"])
	assert.Equal(t, "runs.db", doc["ledger_path"])

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
