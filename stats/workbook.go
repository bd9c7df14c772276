package stats

import (
	"math"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Sheet names of the statistics workbook.
const (
	SummarySheet     = "Summary"
	CorrelationSheet = "Correlation"
)

var summaryHeaders = []string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// WriteWorkbook はDescribeの結果と相関行列をXLSXファイルに書き出す。
// 非有限値のセルは空のまま残す。corr が nil の場合は相関シートを作らない。
func WriteWorkbook(path string, summaries []Summary, names []string, corr mat.Symmetric) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	for i, h := range summaryHeaders {
		if err := setCell(f, SummarySheet, i+1, 1, h); err != nil {
			return err
		}
	}
	for r, s := range summaries {
		row := []interface{}{s.Column, s.Count, s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max}
		for c, v := range row {
			if err := setCell(f, SummarySheet, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return errors.Wrap(err, "set column width")
	}

	if corr != nil {
		n := corr.SymmetricDim()
		if len(names) != n {
			return errors.NewDimensionError("WriteWorkbook", n, len(names), 0)
		}
		if _, err := f.NewSheet(CorrelationSheet); err != nil {
			return errors.Wrap(err, "add sheet")
		}
		for i, name := range names {
			if err := setCell(f, CorrelationSheet, i+2, 1, name); err != nil {
				return err
			}
			if err := setCell(f, CorrelationSheet, 1, i+2, name); err != nil {
				return err
			}
			for j := 0; j < n; j++ {
				if err := setCell(f, CorrelationSheet, j+2, i+2, corr.At(i, j)); err != nil {
					return err
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save workbook %s", path)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrap(err, "cell name")
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return errors.Wrapf(err, "set %s!%s", sheet, cell)
	}
	return nil
}
