// Package config loads the pipeline settings from defaults, an optional YAML
// file and FORESTFIRE_* environment variables.
package config

import (
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/preprocessing"
)

// EnvPrefix is the prefix of environment overrides, e.g. FORESTFIRE_LABEL.
const EnvPrefix = "FORESTFIRE"

// Config は各ステージが参照する設定値
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Columns
	Label             string   `mapstructure:"label" yaml:"label"`
	RegionColumn      string   `mapstructure:"region_column" yaml:"region_column"`
	TemperatureColumn string   `mapstructure:"temperature_column" yaml:"temperature_column"`
	ExcludeColumns    []string `mapstructure:"exclude_columns" yaml:"exclude_columns"`
	PairplotColumns   []string `mapstructure:"pairplot_columns" yaml:"pairplot_columns"`
	DerivedFeatures   []string `mapstructure:"derived_features" yaml:"derived_features"`

	// Model
	TestSize    float64 `mapstructure:"test_size" yaml:"test_size"`
	RandomSeed  uint64  `mapstructure:"random_seed" yaml:"random_seed"`
	NEstimators int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	MaxDepth    int     `mapstructure:"max_depth" yaml:"max_depth"`
	Bootstrap   bool    `mapstructure:"bootstrap" yaml:"bootstrap"`
	CVFolds     int     `mapstructure:"cv_folds" yaml:"cv_folds"`
	NJobs       int     `mapstructure:"n_jobs" yaml:"n_jobs"`

	// Outputs
	FiguresDir  string   `mapstructure:"figures_dir" yaml:"figures_dir"`
	MetricsFile string   `mapstructure:"metrics_file" yaml:"metrics_file"`
	LedgerPath  string   `mapstructure:"ledger_path" yaml:"ledger_path"`
	StatsXLSX   string   `mapstructure:"stats_xlsx" yaml:"stats_xlsx"`
	Regressions []string `mapstructure:"regressions" yaml:"regressions"`
}

// DefaultRegressions are the OLS models fitted by the regress stage.
func DefaultRegressions() []string {
	return []string{
		"humid ~ temp + region",
		"FFMC ~ temp + fire + temp:fire",
		"FFMC ~ humid + humid^2",
		"FFMC ~ temp + rain + wind + humid",
		"FWI ~ ISI + BUI",
	}
}

func defaultDerived() []string {
	var out []string
	for _, f := range preprocessing.DefaultDerivedFeatures() {
		out = append(out, f.String())
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("label", "fire")
	v.SetDefault("region_column", "region")
	v.SetDefault("temperature_column", "temp")
	v.SetDefault("exclude_columns", []string{"index", "id", "date"})
	v.SetDefault("pairplot_columns", []string{"temp", "humid", "wind", "rain"})
	v.SetDefault("derived_features", defaultDerived())
	v.SetDefault("test_size", 0.2)
	v.SetDefault("random_seed", 42)
	v.SetDefault("n_estimators", 100)
	v.SetDefault("max_depth", 0) // 0 = 無制限
	v.SetDefault("bootstrap", true)
	v.SetDefault("cv_folds", 0)
	v.SetDefault("n_jobs", 0)
	v.SetDefault("figures_dir", ".")
	v.SetDefault("metrics_file", "")
	v.SetDefault("ledger_path", "")
	v.SetDefault("stats_xlsx", "")
	v.SetDefault("regressions", DefaultRegressions())
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(err)
	}
	return &c
}

// Load loads configuration from defaults, the environment and cfgFile.
// Precedence: env > config file > defaults. A missing cfgFile is an error;
// an empty cfgFile means no file.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges and parses the embedded definitions.
func (c *Config) Validate() error {
	if c.Label == "" {
		return errors.NewValidationError("label", "must not be empty", c.Label)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", c.NEstimators)
	}
	if c.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative (0 = unlimited)", c.MaxDepth)
	}
	if c.CVFolds == 1 || c.CVFolds < 0 {
		return errors.NewValidationError("cv_folds", "must be 0 (disabled) or at least 2", c.CVFolds)
	}
	if c.NJobs < 0 {
		return errors.NewValidationError("n_jobs", "must be non-negative (0 = all cores)", c.NJobs)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Features(); err != nil {
		return err
	}
	return nil
}

// Features parses DerivedFeatures.
func (c *Config) Features() ([]preprocessing.DerivedFeature, error) {
	return preprocessing.ParseDerivedFeatures(c.DerivedFeatures)
}

// Level returns the parsed log level. Call it only on a validated Config.
func (c *Config) Level() log.Level {
	return log.ToLogLevel(c.LogLevel)
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	return b, nil
}

// Save writes the configuration to path as YAML.
func Save(c *Config, path string) error {
	b, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}
