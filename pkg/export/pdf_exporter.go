package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders schedule documents into a day-grouped PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with one table section per day.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
		if doc.Timezone != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 6, doc.Timezone, "", 1, "C", false, 0, "")
		}
		pdf.Ln(4)
	}

	rowHeaders := []string{"Period", "Start", "End", "Duration"}
	colWidth := 190.0 / float64(len(rowHeaders))

	for _, day := range doc.Days {
		heading := day.Date
		if day.DayID != "" {
			heading = fmt.Sprintf("%s (%s)", day.Date, day.DayID)
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")

		if day.Holiday {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 6, "holiday", "", 1, "L", false, 0, "")
			pdf.Ln(2)
			continue
		}

		pdf.SetFont("Arial", "B", 10)
		for _, header := range rowHeaders {
			pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range day.Rows {
			pdf.CellFormat(colWidth, 7, row.PeriodKey, "1", 0, "", false, 0, "")
			pdf.CellFormat(colWidth, 7, row.Start, "1", 0, "", false, 0, "")
			pdf.CellFormat(colWidth, 7, row.End, "1", 0, "", false, 0, "")
			pdf.CellFormat(colWidth, 7, row.Duration, "1", 0, "", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
