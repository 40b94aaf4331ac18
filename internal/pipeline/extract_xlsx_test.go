package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Manufacturer", "Title", "Price", "Currency"},
		{"Sony", "Sony Alpha A100", 499.99, "USD"},
		{"Canon", "Canon EOS 7D", 1299.00, "CAD"},
	})
	listings, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 {
		t.Fatalf("len=%d", len(listings))
	}
	if listings[1].Manufacturer == nil || *listings[1].Manufacturer != "Canon" {
		t.Fatalf("manufacturer=%v", listings[1].Manufacturer)
	}
}
