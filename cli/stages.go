package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) preprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess <input.csv> <output.csv>",
		Short: "Clean, derive features and standardize a raw CSV",
		Args:  cobra.ExactArgs(2),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Preprocess(cmd.Context(), args[0], args[1])
			return err
		}),
	}
}

func (a *app) exploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore <input.csv> <output>",
		Short: "Render the heatmap, pairplot and regional plots into one figure",
		Long: `explore writes correlation_heatmap.png, feature_pairplot.png and
regional_analysis.png to figures_dir and composes them into <output>.
The output format follows its extension (png, svg, pdf, ...).`,
		Args: cobra.ExactArgs(2),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Explore(cmd.Context(), args[0], args[1])
			return err
		}),
	}
}

func (a *app) modelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model <input.csv> <report.txt>",
		Short: "Fit the random forest and write the text report and JSON record",
		Args:  cobra.ExactArgs(2),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Model(cmd.Context(), args[0], args[1])
			return err
		}),
	}
}

func (a *app) visualizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visualize <input.csv> <report.txt> <output.pdf>",
		Short: "Render distributions, correlations and feature importances to a PDF",
		Args:  cobra.ExactArgs(3),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Visualize(cmd.Context(), args[0], args[1], args[2])
			return err
		}),
	}
}

func (a *app) regressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regress <input.csv> <output.txt>",
		Short: "Fit the configured OLS formulas",
		Args:  cobra.ExactArgs(2),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Regress(cmd.Context(), args[0], args[1])
			return err
		}),
	}
}
