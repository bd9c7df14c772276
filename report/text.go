package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Section headings of the text report. The visualize stage locates the
// importance table by these.
const (
	titleHeading       = "Forest Fire Prediction Model Results"
	performanceHeading = "Model Performance"
	confusionHeading   = "Confusion Matrix"
	importanceHeading  = "Feature Importance"
	paramsHeading      = "Model Parameters"
	statisticsHeading  = "Data Statistics"
)

// FormatImportance renders an importance value with the shortest decimal
// form that round-trips.
func FormatImportance(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteText はテキストレポートを書き出す
func WriteText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n%s\n\n", titleHeading, strings.Repeat("=", 35))

	fmt.Fprintf(bw, "%s\n%s\n", performanceHeading, strings.Repeat("-", 17))
	if r.Classification != nil {
		bw.WriteString(r.Classification.String())
	}
	if r.ROCAUC != nil {
		fmt.Fprintf(bw, "\nROC AUC: %.4f\n", *r.ROCAUC)
	}
	if r.LogLoss != nil {
		fmt.Fprintf(bw, "Log loss: %.4f\n", *r.LogLoss)
	}
	if cv := r.CrossValidation; cv != nil {
		fmt.Fprintf(bw, "\nCross-validation accuracy (%d folds): %.4f +/- %.4f\n", cv.Folds, cv.Mean, cv.Std)
	}
	bw.WriteString("\n\n")

	fmt.Fprintf(bw, "%s\n%s\n", confusionHeading, strings.Repeat("-", 16))
	if r.ConfusionMatrix != nil {
		bw.WriteString(r.ConfusionMatrix.String())
	}
	bw.WriteString("\n\n")

	fmt.Fprintf(bw, "%s\n%s\n", importanceHeading, strings.Repeat("-", 17))
	bw.WriteString("feature importance\n")
	for _, imp := range r.Importances {
		fmt.Fprintf(bw, "%s %s\n", imp.Feature, FormatImportance(imp.Importance))
	}
	bw.WriteString("\n")

	fmt.Fprintf(bw, "%s\n%s\n", paramsHeading, strings.Repeat("-", 16))
	bw.WriteString(FormatParams(r.Params))

	fmt.Fprintf(bw, "\n\n%s\n%s\n", statisticsHeading, strings.Repeat("-", 14))
	fmt.Fprintf(bw, "Training set size: %d\n", r.TrainSize)
	fmt.Fprintf(bw, "Test set size: %d\n", r.TestSize)
	fmt.Fprintf(bw, "Number of features: %d\n", len(r.Features))
	fmt.Fprintf(bw, "Features used: %s\n", strings.Join(r.Features, ", "))

	return bw.Flush()
}

// WriteTextFile writes the text report to path.
func WriteTextFile(path string, r *Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteText(f, r)
}
