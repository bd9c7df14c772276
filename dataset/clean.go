package dataset

import (
	"math"
	"strings"
)

// rowKey builds a comparison key for row i. Numeric cells use their
// shortest float form so that "1" and "1.0" compare equal, and -0 folds
// into 0. Missing cells compare equal to each other.
func (t *Table) rowKey(i int) string {
	var b strings.Builder
	for _, c := range t.columns {
		if c.IsMissing(i) {
			b.WriteString("\x00NA")
		} else if c.Kind == Numeric {
			v := c.Floats[i]
			if v == 0 {
				v = 0
			}
			b.WriteString(FormatFloat(v))
		} else {
			b.WriteString(c.Strings[i])
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

// DropDuplicates removes rows that repeat an earlier row in every column.
// The first occurrence is kept. It returns the new table and the number of
// rows removed.
func (t *Table) DropDuplicates() (*Table, int) {
	seen := make(map[string]struct{}, t.nrows)
	keep := make([]int, 0, t.nrows)
	for i := 0; i < t.nrows; i++ {
		k := t.rowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return t.Select(keep), t.nrows - len(keep)
}

// DropNA removes every row with a missing value in any column. Infinite
// values are not missing.
func (t *Table) DropNA() (*Table, int) {
	keep := make([]int, 0, t.nrows)
rows:
	for i := 0; i < t.nrows; i++ {
		for _, c := range t.columns {
			if c.IsMissing(i) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return t.Select(keep), t.nrows - len(keep)
}

// CountNonFinite returns how many cells of a numeric column are NaN or Inf.
func (t *Table) CountNonFinite(name string) int {
	values, err := t.Floats(name)
	if err != nil {
		return 0
	}
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
