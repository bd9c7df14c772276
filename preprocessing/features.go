package preprocessing

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Op is the binary operation used by a DerivedFeature.
type Op string

const (
	// Ratio computes left / right with no zero guard.
	Ratio Op = "/"
	// Product computes left * right.
	Product Op = "*"
)

// DerivedFeature は既存の2列から新しい列を作る定義
type DerivedFeature struct {
	Name  string
	Left  string
	Op    Op
	Right string
}

// String renders the definition in the form ParseDerivedFeature accepts.
func (f DerivedFeature) String() string {
	return fmt.Sprintf("%s=%s%s%s", f.Name, f.Left, f.Op, f.Right)
}

// DefaultDerivedFeatures are the features added by the preprocess stage.
func DefaultDerivedFeatures() []DerivedFeature {
	return []DerivedFeature{
		{Name: "temp_humid_ratio", Left: "temp", Op: Ratio, Right: "humid"},
		{Name: "wind_rain_interaction", Left: "wind", Op: Product, Right: "rain"},
	}
}

// ParseDerivedFeature parses "name=left/right" or "name=left*right".
func ParseDerivedFeature(s string) (DerivedFeature, error) {
	name, expr, ok := strings.Cut(s, "=")
	if !ok {
		return DerivedFeature{}, errors.NewValidationError("derived_features", "expected name=left/right or name=left*right", s)
	}
	for _, op := range []Op{Ratio, Product} {
		if left, right, found := strings.Cut(expr, string(op)); found {
			f := DerivedFeature{
				Name:  strings.TrimSpace(name),
				Left:  strings.TrimSpace(left),
				Op:    op,
				Right: strings.TrimSpace(right),
			}
			if f.Name == "" || f.Left == "" || f.Right == "" {
				break
			}
			return f, nil
		}
	}
	return DerivedFeature{}, errors.NewValidationError("derived_features", "expected name=left/right or name=left*right", s)
}

// ParseDerivedFeatures parses each definition in order.
func ParseDerivedFeatures(defs []string) ([]DerivedFeature, error) {
	out := make([]DerivedFeature, 0, len(defs))
	for _, d := range defs {
		f, err := ParseDerivedFeature(d)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Applicable reports whether both source columns are present and numeric
// and the target column does not exist yet.
func (f DerivedFeature) Applicable(t *dataset.Table) bool {
	if t.Has(f.Name) {
		return false
	}
	for _, src := range []string{f.Left, f.Right} {
		c, ok := t.Column(src)
		if !ok || c.Kind != dataset.Numeric {
			return false
		}
	}
	return true
}

// Compute returns the derived values. Division by zero follows IEEE 754:
// x/0 is ±Inf and 0/0 is NaN.
func (f DerivedFeature) Compute(t *dataset.Table) ([]float64, error) {
	left, err := t.Floats(f.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Floats(f.Right)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(left))
	for i := range left {
		switch f.Op {
		case Ratio:
			out[i] = left[i] / right[i]
		case Product:
			out[i] = left[i] * right[i]
		default:
			return nil, errors.NewValueError("DerivedFeature.Compute", "unknown operation "+string(f.Op))
		}
	}
	return out, nil
}

// AddDerivedFeatures appends every applicable feature to t and returns the
// names added. Features whose inputs are absent, or whose target already
// exists, are skipped. Non-finite results raise a DataConversionWarning.
func AddDerivedFeatures(t *dataset.Table, features []DerivedFeature) ([]string, error) {
	var added []string
	for _, f := range features {
		if !f.Applicable(t) {
			continue
		}
		values, err := f.Compute(t)
		if err != nil {
			return added, err
		}
		if err := t.SetNumeric(f.Name, values); err != nil {
			return added, err
		}
		added = append(added, f.Name)

		if n := countNonFinite(values); n > 0 {
			errors.Warn(errors.NewDataConversionWarning("float64", "non-finite",
				fmt.Sprintf("%d rows of %s have a zero or non-finite operand", n, f.Name)))
		}
	}
	return added, nil
}

func countNonFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
