package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/forestfire/ledger"
)

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List model runs recorded in the ledger, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			r := a.runner()
			if len(args) == 1 {
				run, err := r.LookupRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(a.stdout, run)
				return nil
			}
			runs, err := r.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(a.stdout, runs)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")
	return cmd
}

func printRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %8s  %8s  %8s  %6s  %s\n",
		"RUN ID", "CREATED", "ACCURACY", "ROC AUC", "CV MEAN", "TEST", "INPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %8.4f  %8s  %8s  %6d  %s\n",
			run.ID,
			run.CreatedAt.Format(time.RFC3339),
			run.Accuracy,
			optional(run.ROCAUC),
			optional(run.CVMean),
			run.TestSize,
			run.Input,
		)
	}
}

func printRun(w io.Writer, run *ledger.Run) {
	fmt.Fprintf(w, "Run:         %s\n", run.ID)
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Input:       %s\n", run.Input)
	fmt.Fprintf(w, "Report:      %s\n", run.Report)
	fmt.Fprintf(w, "Label:       %s\n", run.Label)
	fmt.Fprintf(w, "Samples:     %d train / %d test, %d features\n", run.TrainSize, run.TestSize, run.NFeatures)
	fmt.Fprintf(w, "Accuracy:    %.4f\n", run.Accuracy)
	fmt.Fprintf(w, "ROC AUC:     %s\n", optional(run.ROCAUC))
	fmt.Fprintf(w, "CV mean:     %s\n", optional(run.CVMean))
	fmt.Fprintf(w, "Params:      %s\n", run.Params)
	if len(run.Importances) > 0 {
		fmt.Fprintln(w, "Importances:")
		for _, imp := range run.Importances {
			fmt.Fprintf(w, "  %-24s %.4f\n", imp.Feature, imp.Importance)
		}
	}
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
