package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// naTokens are the cell values read as missing, matching the usual
// spreadsheet and dataframe conventions.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether a raw cell is a missing-value token.
func IsNA(cell string) bool {
	_, ok := naTokens[strings.TrimSpace(cell)]
	return ok
}

// FormatFloat renders v the way WriteCSV does: shortest round-trip form,
// "" for NaN, "inf"/"-inf" for infinities.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadCSV parses a header-first CSV. The delimiter is sniffed among ',',
// ';' and tab. A column whose every non-missing cell parses as a float is
// numeric; anything else is categorical.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	raw := make([][]string, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", line)
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if len(rec) > len(header) {
			return nil, errors.Newf("row %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		for j := range header {
			cell := ""
			if j < len(rec) {
				cell = rec[j]
			}
			raw[j] = append(raw[j], cell)
		}
	}

	t := NewTable()
	nrows := len(raw[0])
	for j, name := range header {
		if t.Has(name) {
			return nil, errors.Newf("duplicate column name %q", name)
		}
		t.put(inferColumn(name, raw[j]))
	}
	t.nrows = nrows
	return t, nil
}

func inferColumn(name string, cells []string) *Column {
	floats := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		if IsNA(cell) {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = v
	}
	if numeric {
		return &Column{Name: name, Kind: Numeric, Floats: floats}
	}
	strs := make([]string, len(cells))
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		if IsNA(cell) {
			missing[i] = true
			continue
		}
		strs[i] = cell
	}
	return &Column{Name: name, Kind: Categorical, Strings: strs, Missing: missing}
}

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadCSVFile opens and parses path. Every failure is a *errors.LoadError.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError(path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, errors.NewLoadError(path, err)
	}
	return t, nil
}

// WriteCSV writes the header and all rows with a comma delimiter and no
// index column.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, len(t.columns))
	for i := 0; i < t.nrows; i++ {
		for j, c := range t.columns {
			rec[j] = c.Value(i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path, truncating any existing file.
func WriteCSVFile(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, t)
}
