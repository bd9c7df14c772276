package linear

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Factor is a single column reference inside a term, optionally raised to
// an integer power (numeric columns only).
type Factor struct {
	Column string
	Power  int
}

func (f Factor) String() string {
	if f.Power > 1 {
		return fmt.Sprintf("%s^%d", f.Column, f.Power)
	}
	return f.Column
}

// Term is a product of factors ("a", "a:b", "a^2").
type Term []Factor

func (t Term) String() string {
	parts := make([]string, len(t))
	for i, f := range t {
		parts[i] = f.String()
	}
	return strings.Join(parts, ":")
}

// Formula は "y ~ a + b + a:b + a^2" 形式の回帰式
type Formula struct {
	Response  string
	Terms     []Term
	Intercept bool
	source    string
}

func (f *Formula) String() string { return f.source }

// Columns returns every column the formula references, response first.
func (f *Formula) Columns() []string {
	seen := map[string]bool{f.Response: true}
	out := []string{f.Response}
	for _, t := range f.Terms {
		for _, fac := range t {
			if !seen[fac.Column] {
				seen[fac.Column] = true
				out = append(out, fac.Column)
			}
		}
	}
	return out
}

// ParseFormula は回帰式を解析する。
// "- 1" または "+ 0" で切片を除外できる。同じ項の重複は1つにまとめる。
func ParseFormula(s string) (*Formula, error) {
	lhs, rhs, ok := strings.Cut(s, "~")
	if !ok {
		return nil, errors.NewValidationError("formula", "missing '~'", s)
	}
	f := &Formula{Response: strings.TrimSpace(lhs), Intercept: true, source: strings.TrimSpace(s)}
	if f.Response == "" || strings.ContainsAny(f.Response, "+:^ ") {
		return nil, errors.NewValidationError("formula", "response must be a single column", s)
	}

	rhs = strings.ReplaceAll(rhs, "-", "+-")
	seen := map[string]bool{}
	for _, raw := range strings.Split(rhs, "+") {
		tok := strings.TrimSpace(raw)
		switch tok {
		case "":
			if strings.TrimSpace(rhs) == "" {
				return nil, errors.NewValidationError("formula", "no terms on the right-hand side", s)
			}
			continue
		case "1":
			f.Intercept = true
			continue
		case "0", "-1", "- 1":
			f.Intercept = false
			continue
		}
		if strings.HasPrefix(tok, "-") {
			if strings.TrimSpace(tok[1:]) == "1" {
				f.Intercept = false
				continue
			}
			return nil, errors.NewValidationError("formula", "only the intercept can be removed", tok)
		}
		term, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}
		key := term.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		f.Terms = append(f.Terms, term)
	}
	return f, nil
}

func parseTerm(tok string) (Term, error) {
	var term Term
	for _, part := range strings.Split(tok, ":") {
		part = strings.TrimSpace(part)
		name, pow, hasPow := strings.Cut(part, "^")
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, " ()*/") {
			return nil, errors.NewValidationError("formula", "invalid column reference", part)
		}
		fac := Factor{Column: name, Power: 1}
		if hasPow {
			p, err := strconv.Atoi(strings.TrimSpace(pow))
			if err != nil || p < 1 {
				return nil, errors.NewValidationError("formula", "power must be a positive integer", part)
			}
			fac.Power = p
		}
		term = append(term, fac)
	}
	return term, nil
}

// Design is the model matrix built from a formula and a table. X excludes
// the intercept column; Names lists the regressors in column order.
type Design struct {
	X     *mat.Dense
	Y     *mat.Dense
	Names []string
	Rows  []int // table rows that survived missing-value removal
}

// NRegressors returns the number of columns of X.
func (d *Design) NRegressors() int {
	if d.X == nil {
		return 0
	}
	_, c := d.X.Dims()
	return c
}

// Matrix returns X as a mat.Matrix, including the n×0 case.
func (d *Design) Matrix() mat.Matrix {
	if d.X == nil {
		return dataset.ZeroWidth(len(d.Rows))
	}
	return d.X
}

type designColumn struct {
	name   string
	values []float64
}

// Design builds the model matrix. Rows with a missing value in any referenced
// column are dropped. Categorical columns are treatment-coded against their
// first sorted level; terms made only of categorical factors come first.
func (f *Formula) Design(t *dataset.Table) (*Design, error) {
	cols := make(map[string]*dataset.Column)
	for _, name := range f.Columns() {
		c, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnError("Formula.Design", name)
		}
		cols[name] = c
	}
	resp := cols[f.Response]
	if resp.Kind != dataset.Numeric {
		return nil, errors.NewValueError("Formula.Design", fmt.Sprintf("response %q must be numeric", f.Response))
	}

	var rows []int
	for i := 0; i < t.NRows(); i++ {
		ok := true
		for _, c := range cols {
			if c.IsMissing(i) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("Formula.Design", "no complete rows", errors.ErrEmptyData)
	}

	var catOnly, rest []Term
	for _, term := range f.Terms {
		numeric := false
		for _, fac := range term {
			if cols[fac.Column].Kind == dataset.Numeric {
				numeric = true
			}
		}
		if numeric {
			rest = append(rest, term)
		} else {
			catOnly = append(catOnly, term)
		}
	}

	var dcols []designColumn
	for _, term := range append(catOnly, rest...) {
		expanded, err := expandTerm(term, cols, rows)
		if err != nil {
			return nil, err
		}
		dcols = append(dcols, expanded...)
	}

	d := &Design{Y: mat.NewDense(len(rows), 1, nil), Rows: rows}
	for j, r := range rows {
		d.Y.Set(j, 0, resp.Floats[r])
	}
	if len(dcols) > 0 {
		d.X = mat.NewDense(len(rows), len(dcols), nil)
		for k, dc := range dcols {
			d.X.SetCol(k, dc.values)
			d.Names = append(d.Names, dc.name)
		}
	}
	return d, nil
}

// expandTerm returns the design columns of one term: the elementwise product
// of its numeric factors crossed with the indicator columns of its
// categorical factors.
func expandTerm(term Term, cols map[string]*dataset.Column, rows []int) ([]designColumn, error) {
	acc := []designColumn{{values: ones(len(rows))}}
	for _, fac := range term {
		c := cols[fac.Column]
		var parts []designColumn
		if c.Kind == dataset.Numeric {
			v := make([]float64, len(rows))
			for j, r := range rows {
				v[j] = math.Pow(c.Floats[r], float64(fac.Power))
			}
			parts = []designColumn{{name: fac.String(), values: v}}
		} else {
			if fac.Power > 1 {
				return nil, errors.NewValidationError("formula", "power applied to categorical column", fac.String())
			}
			parts = treatmentColumns(c, rows)
		}
		var next []designColumn
		for _, a := range acc {
			for _, p := range parts {
				v := make([]float64, len(rows))
				for j := range v {
					v[j] = a.values[j] * p.values[j]
				}
				name := p.name
				if a.name != "" {
					name = a.name + ":" + p.name
				}
				next = append(next, designColumn{name: name, values: v})
			}
		}
		acc = next
	}
	return acc, nil
}

func treatmentColumns(c *dataset.Column, rows []int) []designColumn {
	seen := map[string]bool{}
	var levels []string
	for _, r := range rows {
		if v := c.Strings[r]; !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Strings(levels)

	var out []designColumn
	for _, lvl := range levels[min(1, len(levels)):] {
		v := make([]float64, len(rows))
		for j, r := range rows {
			if c.Strings[r] == lvl {
				v[j] = 1
			}
		}
		out = append(out, designColumn{name: fmt.Sprintf("%s[T.%s]", c.Name, lvl), values: v})
	}
	return out
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
