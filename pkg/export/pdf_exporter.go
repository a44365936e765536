package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// WeekGrid is a weekly timetable laid out for printing: one column per day,
// one row per time label, free-form text per cell.
type WeekGrid struct {
	Title string
	Days  []string
	Times []string
	// Cells maps "time|day" to the cell text; missing keys render empty.
	Cells map[string]string
}

// CellKey builds the lookup key for a grid cell.
func CellKey(timeLabel, day string) string {
	return timeLabel + "|" + day
}

// PDFExporter renders weekly timetables into a printable PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderWeek creates a landscape A4 document with the timetable grid.
func (e *PDFExporter) RenderWeek(grid WeekGrid) ([]byte, error) {
	if len(grid.Days) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day column")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(grid.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	const timeColWidth = 22.0
	dayColWidth := (277.0 - timeColWidth) / float64(len(grid.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(timeColWidth, 8, "", "1", 0, "C", false, 0, "")
	for _, day := range grid.Days {
		pdf.CellFormat(dayColWidth, 8, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, timeLabel := range grid.Times {
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(timeColWidth, 7, timeLabel, "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, day := range grid.Days {
			pdf.CellFormat(dayColWidth, 7, grid.Cells[CellKey(timeLabel, day)], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
