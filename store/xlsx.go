package store

import (
	"io"

	"github.com/xuri/excelize/v2"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// xlsxSheet is the worksheet the dataset is written to
const xlsxSheet = "Places"

// XLSXSink writes the dataset as a single-sheet Excel workbook.
type XLSXSink struct {
	path string
}

// NewXLSXSink creates an XLSX sink for path
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

// WriteAll replaces the workbook with a header row and one row per record.
// Rating and review count are written as numbers.
func (s *XLSXSink) WriteAll(records []types.PlaceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return scrapeerrors.NewSink("xlsx", "failed to name sheet", err)
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return scrapeerrors.NewSink("xlsx", "failed to write header", err)
	}

	for i, r := range records {
		row := make([]interface{}, 0, len(Columns))
		for _, v := range recordRow(r) {
			row = append(row, v)
		}
		if r.Rating != nil {
			row[1] = *r.Rating
		}
		if r.ReviewCount != nil {
			row[2] = *r.ReviewCount
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return scrapeerrors.NewSink("xlsx", "invalid row", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return scrapeerrors.NewSink("xlsx", "failed to write row "+cell, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return scrapeerrors.NewSink("xlsx", "invalid column", err)
	}
	if err := f.SetColWidth(xlsxSheet, "A", lastCol, 24); err != nil {
		return scrapeerrors.NewSink("xlsx", "failed to set column width", err)
	}

	return writeAtomic("xlsx", s.path, func(w io.Writer) error {
		return f.Write(w)
	})
}
