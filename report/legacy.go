package report

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

// ParseResult is what the text scanner recovered from a report.
type ParseResult struct {
	Importances []Importance
	// Found reports whether the importance section heading was present.
	Found bool
	// Skipped counts non-blank lines inside the section that did not parse.
	Skipped int
}

// ParseText scans a text report for its feature importance table. Lines
// after the "Feature Importance" heading and before "Model Parameters" are
// read as "<name> <value>" or "<index> <name> <value>". Header tokens and
// lines that do not parse are skipped.
func ParseText(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{}
	sc := bufio.NewScanner(r)
	in := false
	for sc.Scan() {
		line := sc.Text()
		if !in {
			if strings.Contains(line, importanceHeading) {
				in, res.Found = true, true
			}
			continue
		}
		if strings.Contains(line, paramsHeading) {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || isHeader(fields) || isRule(fields) {
			continue
		}
		imp, ok := parseImportanceLine(fields)
		if !ok {
			res.Skipped++
			continue
		}
		res.Importances = append(res.Importances, imp)
	}
	if err := sc.Err(); err != nil {
		return res, errors.Wrap(err, "scan report")
	}
	return res, nil
}

func isHeader(fields []string) bool {
	return fields[0] == "feature" || (len(fields) > 1 && fields[1] == "importance")
}

func isRule(fields []string) bool {
	return len(fields) == 1 && strings.Trim(fields[0], "-=") == ""
}

func parseImportanceLine(fields []string) (Importance, bool) {
	switch len(fields) {
	case 2:
	case 3:
		if _, err := strconv.Atoi(fields[0]); err != nil {
			return Importance{}, false
		}
		fields = fields[1:]
	default:
		return Importance{}, false
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Importance{}, false
	}
	return Importance{Feature: fields[0], Importance: v}, true
}

// LoadImportances recovers feature importances for a text report. The JSON
// record next to it is preferred; without one the text itself is scanned.
// A report that yields nothing is logged at warn level and returns an empty
// slice; only an unreadable report file is an error.
func LoadImportances(reportPath string, logger log.Logger) ([]Importance, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("report")
	}

	recPath := RecordPath(reportPath)
	if _, statErr := os.Stat(recPath); statErr == nil {
		rec, err := ReadRecord(recPath)
		if err == nil {
			logger.Debug("Loaded report record", log.PathKey, recPath, "importances", len(rec.Importances))
			return rec.Importances, nil
		}
		logger.Warn("Report record unusable, falling back to text", err, log.PathKey, recPath)
	}

	f, err := os.Open(reportPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open report %s", reportPath)
	}
	defer f.Close()

	res, err := ParseText(f)
	if err != nil {
		logger.Warn("Report scan failed", err, log.PathKey, reportPath)
	}
	switch {
	case !res.Found:
		logger.Warn("No feature importance section in report", log.PathKey, reportPath)
	case len(res.Importances) == 0:
		logger.Warn("Feature importance section is empty or malformed", log.PathKey, reportPath, "skipped", res.Skipped)
	case res.Skipped > 0:
		logger.Warn("Skipped malformed importance lines", log.PathKey, reportPath, "skipped", res.Skipped)
	}
	return res.Importances, nil
}
