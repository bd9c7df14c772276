// Package dataset holds the in-memory observation table shared by every
// pipeline stage: ordered named columns, each either numeric (float64 with
// NaN for missing) or categorical (string with a missing flag).
package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; NaN marks a missing cell.
	Numeric Kind = iota
	// Categorical columns hold strings with an explicit missing flag.
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a single named column. Exactly one of Floats or Strings is set.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Missing []bool
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Missing[i]
}

// Levels returns the distinct non-missing values of a categorical column in
// sorted order. Numeric columns are formatted with FormatFloat.
func (c *Column) Levels() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		v := c.Value(i)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if c.Kind == Numeric {
		sort.Slice(out, func(a, b int) bool { return parseOrNaN(out[a]) < parseOrNaN(out[b]) })
	} else {
		sort.Strings(out)
	}
	return out
}

// Value returns the textual form of row i ("" when missing).
func (c *Column) Value(i int) string {
	if c.Kind == Numeric {
		return FormatFloat(c.Floats[i])
	}
	if c.Missing[i] {
		return ""
	}
	return c.Strings[i]
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = make([]float64, len(rows))
		for j, r := range rows {
			out.Floats[j] = c.Floats[r]
		}
		return out
	}
	out.Strings = make([]string, len(rows))
	out.Missing = make([]bool, len(rows))
	for j, r := range rows {
		out.Strings[j] = c.Strings[r]
		out.Missing[j] = c.Missing[r]
	}
	return out
}

// Table is an ordered collection of equally long columns.
type Table struct {
	columns []*Column
	index   map[string]int
	nrows   int
}

// NewTable returns an empty table with no rows.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) { return t.nrows, len(t.columns) }

// NRows returns the number of rows.
func (t *Table) NRows() int { return t.nrows }

// Columns returns column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// NumericColumns returns names of numeric columns in table order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Floats returns the values of a numeric column. The slice is shared with
// the table.
func (t *Table) Floats(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnError("Floats", name)
	}
	if c.Kind != Numeric {
		return nil, errors.NewValueError("Floats", "column "+name+" is categorical")
	}
	return c.Floats, nil
}

func (t *Table) checkLen(op string, n int) error {
	if len(t.columns) > 0 && n != t.nrows {
		return errors.NewDimensionError(op, t.nrows, n, 0)
	}
	return nil
}

func (t *Table) put(c *Column) {
	if i, ok := t.index[c.Name]; ok {
		t.columns[i] = c
	} else {
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	t.nrows = c.Len()
}

// SetNumeric adds a numeric column or replaces an existing one in place.
func (t *Table) SetNumeric(name string, values []float64) error {
	if err := t.checkLen("SetNumeric", len(values)); err != nil {
		return err
	}
	t.put(&Column{Name: name, Kind: Numeric, Floats: values})
	return nil
}

// SetCategorical adds a categorical column or replaces an existing one.
// missing may be nil when no cell is missing.
func (t *Table) SetCategorical(name string, values []string, missing []bool) error {
	if err := t.checkLen("SetCategorical", len(values)); err != nil {
		return err
	}
	if missing == nil {
		missing = make([]bool, len(values))
	}
	if len(missing) != len(values) {
		return errors.NewDimensionError("SetCategorical", len(values), len(missing), 0)
	}
	t.put(&Column{Name: name, Kind: Categorical, Strings: values, Missing: missing})
	return nil
}

// Select returns a new table containing rows in the given order.
func (t *Table) Select(rows []int) *Table {
	out := NewTable()
	for _, c := range t.columns {
		out.put(c.subset(rows))
	}
	out.nrows = len(rows)
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	rows := make([]int, t.nrows)
	for i := range rows {
		rows[i] = i
	}
	return t.Select(rows)
}

// Matrix copies the named numeric columns into a (rows x len(cols)) matrix.
// With no columns it returns nil and no error; gonum cannot represent a
// zero-width Dense.
func (t *Table) Matrix(cols []string) (*mat.Dense, error) {
	if t.nrows == 0 {
		return nil, errEmpty()
	}
	if len(cols) == 0 {
		return nil, nil
	}
	data := make([]float64, t.nrows*len(cols))
	for j, name := range cols {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			data[i*len(cols)+j] = v
		}
	}
	return mat.NewDense(t.nrows, len(cols), data), nil
}

// SetMatrix writes the columns of m back into the named numeric columns.
func (t *Table) SetMatrix(cols []string, m mat.Matrix) error {
	r, c := m.Dims()
	if c != len(cols) {
		return errors.NewDimensionError("SetMatrix", len(cols), c, 1)
	}
	for j, name := range cols {
		values := make([]float64, r)
		for i := 0; i < r; i++ {
			values[i] = m.At(i, j)
		}
		if err := t.SetNumeric(name, values); err != nil {
			return err
		}
	}
	return nil
}

func errEmpty() error {
	return errors.Wrap(errors.ErrEmptyData, "table has no rows")
}
