package stats

import (
	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// CrossTab counts rows per (group, hue) pair. Rows missing either value
// are skipped. Groups and hues are sorted.
type CrossTab struct {
	Groups []string
	Hues   []string
	// Counts[h][g] is the number of rows with hue h in group g.
	Counts [][]float64
}

// CountBy builds the cross tabulation of groupCol against hueCol.
func CountBy(t *dataset.Table, groupCol, hueCol string) (*CrossTab, error) {
	g, ok := t.Column(groupCol)
	if !ok {
		return nil, errors.NewColumnError("CountBy", groupCol)
	}
	h, ok := t.Column(hueCol)
	if !ok {
		return nil, errors.NewColumnError("CountBy", hueCol)
	}

	ct := &CrossTab{Groups: g.Levels(), Hues: h.Levels()}
	gi := indexOf(ct.Groups)
	hi := indexOf(ct.Hues)
	ct.Counts = make([][]float64, len(ct.Hues))
	for i := range ct.Counts {
		ct.Counts[i] = make([]float64, len(ct.Groups))
	}
	for row := 0; row < t.NRows(); row++ {
		if g.IsMissing(row) || h.IsMissing(row) {
			continue
		}
		ct.Counts[hi[h.Value(row)]][gi[g.Value(row)]]++
	}
	return ct, nil
}

// Grouped holds the finite values of one column split by a grouping column.
type Grouped struct {
	Groups []string
	Values [][]float64
}

// GroupValues splits valueCol by the levels of groupCol.
func GroupValues(t *dataset.Table, groupCol, valueCol string) (*Grouped, error) {
	g, ok := t.Column(groupCol)
	if !ok {
		return nil, errors.NewColumnError("GroupValues", groupCol)
	}
	values, err := t.Floats(valueCol)
	if err != nil {
		return nil, err
	}

	out := &Grouped{Groups: g.Levels()}
	gi := indexOf(out.Groups)
	out.Values = make([][]float64, len(out.Groups))
	for row, v := range values {
		if g.IsMissing(row) || !finite(v) {
			continue
		}
		k := gi[g.Value(row)]
		out.Values[k] = append(out.Values[k], v)
	}
	return out, nil
}

func indexOf(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}
