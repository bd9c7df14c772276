package preprocessing

import (
	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

// Summary describes what a Pipeline run changed.
type Summary struct {
	RowsIn     int
	Duplicates int
	Incomplete int
	RowsOut    int
	Derived    []string
	Normalized []string
}

// Pipeline runs the cleaning, feature derivation and normalization steps
// of the preprocess stage over a table.
type Pipeline struct {
	Label    string
	Features []DerivedFeature
	logger   log.Logger
}

// NewPipeline creates a pipeline. A nil logger uses the global provider.
func NewPipeline(label string, features []DerivedFeature, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.GetLoggerWithName("preprocessing")
	}
	return &Pipeline{Label: label, Features: features, logger: logger}
}

// Run cleans t, adds derived features and standardizes every numeric
// column except the label. The input table is not modified.
//
// The scaler is fit on all rows, including rows the model stage later
// holds out for testing.
func (p *Pipeline) Run(t *dataset.Table) (*dataset.Table, Summary, error) {
	s := Summary{RowsIn: t.NRows()}

	p.logger.Info("Cleaning data")
	out, dups := t.DropDuplicates()
	out, incomplete := out.DropNA()
	s.Duplicates, s.Incomplete, s.RowsOut = dups, incomplete, out.NRows()
	p.logger.Info("Cleaned data",
		log.SamplesKey, s.RowsOut,
		"duplicates", dups,
		"incomplete", incomplete,
	)

	p.logger.Info("Performing feature engineering")
	derived, err := AddDerivedFeatures(out, p.Features)
	if err != nil {
		return nil, s, err
	}
	s.Derived = derived
	for _, name := range derived {
		p.logger.Info("Derived feature", log.ColumnKey, name, "non_finite", out.CountNonFinite(name))
	}

	p.logger.Info("Normalizing features")
	normalized, err := Normalize(out, p.Label)
	if err != nil {
		return nil, s, err
	}
	s.Normalized = normalized
	if len(normalized) > 0 {
		p.logger.Warn("Scaler statistics include every row, so held-out rows leak into training features",
			log.FeaturesKey, len(normalized))
	}
	return out, s, nil
}

// NormalizeColumns returns the numeric columns of t except label.
func NormalizeColumns(t *dataset.Table, label string) []string {
	var cols []string
	for _, name := range t.NumericColumns() {
		if name != label {
			cols = append(cols, name)
		}
	}
	return cols
}

// Normalize standardizes NormalizeColumns(t, label) in place and returns
// their names. An empty table or one without such columns is left as is.
func Normalize(t *dataset.Table, label string) ([]string, error) {
	cols := NormalizeColumns(t, label)
	if len(cols) == 0 || t.NRows() == 0 {
		return nil, nil
	}
	X, err := t.Matrix(cols)
	if err != nil {
		return nil, err
	}
	scaled, err := NewStandardScalerDefault().FitTransform(X)
	if err != nil {
		return nil, err
	}
	if err := t.SetMatrix(cols, scaled); err != nil {
		return nil, err
	}
	return cols, nil
}
