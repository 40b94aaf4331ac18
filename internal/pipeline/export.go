package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"sortable/internal"
)

func ExportRowsToXLSX(rows []internal.AssignmentExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"input_line_no", "source", "manufacturer", "title", "raw_listing",
		"match_status", "product_name",
		"manufacturer_key", "family_key", "model_key", "candidate_count",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.InputLineNo)
		set(2, row.Source)
		set(3, derefString(row.Manufacturer))
		set(4, derefString(row.Title))
		set(5, row.RawListing)
		set(6, row.MatchStatus)
		set(7, derefString(row.ProductName))
		set(8, derefString(row.ManufacturerKey))
		set(9, derefString(row.FamilyKey))
		set(10, derefString(row.ModelKey))
		set(11, row.CandidateCount)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
