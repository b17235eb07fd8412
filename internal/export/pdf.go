package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer prints a landscape A4 table.
type PDFRenderer struct{}

func (PDFRenderer) ID() string          { return "pdf" }
func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins, mm
	pdfRowHeight = 6.0
)

func (PDFRenderer) Render(w io.Writer, data Data) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(data.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	period := fmt.Sprintf("%s - %s", data.Begin.Format("2006-01-02"), data.End.Format("2006-01-02"))
	pdf.CellFormat(0, 6, period, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	headers := data.Headers()
	if len(headers) > 0 {
		width := pdfPageWidth / float64(len(headers))

		header := func() {
			pdf.SetFont("Helvetica", "B", 7)
			pdf.SetFillColor(230, 230, 230)
			for _, h := range headers {
				pdf.CellFormat(width, pdfRowHeight+1, fit(pdf, tr(h), width), "1", 0, "L", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont("Helvetica", "", 7)
		}
		pdf.SetHeaderFunc(func() {
			if pdf.PageNo() > 1 {
				header()
			}
		})

		header()
		for _, row := range data.TextRows() {
			for _, value := range row {
				pdf.CellFormat(width, pdfRowHeight, fit(pdf, tr(value), width), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.SetHeaderFunc(nil)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Records: %d", data.Summary.Count), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Duration: "+data.FormatDuration(data.Summary.Duration), "", 1, "L", false, 0, "")
	if data.ShowRates {
		for _, totals := range data.Summary.ByCurrency {
			line := fmt.Sprintf("Total %s: %s", totals.Currency, FormatValue(totals.Rate))
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf export: %w", err)
	}
	return nil
}

// fit shortens already translated single byte text until it fits into the cell.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	const padding = 2
	if pdf.GetStringWidth(text) <= width-padding {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"..") > width-padding {
		text = text[:len(text)-1]
	}
	return text + ".."
}
