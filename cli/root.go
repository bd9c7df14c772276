// Package cli wires the pipeline stages to the forestfire command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/forestfire/config"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/workflow"
)

type app struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger log.Logger

	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the command tree writing results to stdout and logs
// and errors to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "forestfire",
		Short: "Forest-fire analysis pipeline",
		Long: `forestfire runs the batch stages of the forest-fire analysis:
preprocess, explore, model and visualize, plus OLS regressions and a run ledger.
Stages hand off through files and can be run independently.`,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		a.preprocessCmd(),
		a.exploreCmd(),
		a.modelCmd(),
		a.visualizeCmd(),
		a.regressCmd(),
		a.runsCmd(),
		a.configCmd(),
	)
	return root
}

// Execute is the entry point called by main.main().
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	c, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		c.LogLevel = a.logLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	a.cfg = c

	provider := log.NewZerologProviderWithWriter(zerolog.ConsoleWriter{
		Out:        a.stderr,
		TimeFormat: time.RFC3339,
	}, c.Level())
	provider.RouteWarnings()
	log.SetGlobalProvider(provider)
	a.logger = provider.GetLoggerWithName("forestfire")
	return nil
}

func (a *app) runner() *workflow.Runner {
	return workflow.New(a.cfg, workflow.WithLogger(a.logger))
}

// stage wraps a stage body so usage is only printed for argument errors.
func stage(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return run(cmd, args)
	}
}
