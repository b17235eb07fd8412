package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ErrUnknownRenderer is returned for renderer ids that are not registered.
var ErrUnknownRenderer = errors.New("unknown invoice renderer")

// Renderer writes a hydrated invoice in one file format.
type Renderer interface {
	ID() string
	ContentType() string
	Extension() string
	Render(w io.Writer, view View) error
}

// Renderers maps ids to renderers.
type Renderers map[string]Renderer

// DefaultRenderers contains html, json, xlsx and pdf.
func DefaultRenderers() Renderers {
	r := Renderers{}
	for _, renderer := range []Renderer{HTMLRenderer{}, JSONRenderer{}, XLSXRenderer{}, PDFRenderer{}} {
		r[renderer.ID()] = renderer
	}
	return r
}

// Get returns the renderer for id.
func (r Renderers) Get(id string) (Renderer, error) {
	renderer, ok := r[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w %q, available: %s", ErrUnknownRenderer, id, strings.Join(r.IDs(), ", "))
	}
	return renderer, nil
}

// IDs lists the registered ids sorted.
func (r Renderers) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Filename is the sanitized invoice number plus the renderer's extension.
func Filename(number, extension string) string {
	var b strings.Builder
	for _, r := range number {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "invoice"
	}
	return name + "." + extension
}

// HTMLRenderer renders a printable invoice page.
type HTMLRenderer struct{}

func (HTMLRenderer) ID() string          { return "html" }
func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (HTMLRenderer) Extension() string   { return "html" }

var htmlInvoice = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{index .Values "template.title"}} {{index .Values "invoice.number"}}</title>
<style>
body { font-family: sans-serif; font-size: 13px; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #ccc; padding: 4px; text-align: left; }
td.num, th.num { text-align: right; }
</style>
</head>
<body>
<header>
<h1>{{index .Values "template.title"}}</h1>
<p>{{index .Values "template.company"}}<br>{{index .Values "template.address"}}</p>
</header>
<section>
<p><strong>{{index .Values "customer.company"}}</strong> {{index .Values "customer.name"}}<br>{{index .Values "customer.address"}}</p>
<p>Invoice {{index .Values "invoice.number"}}<br>Date {{index .Values "invoice.date"}}<br>Due {{index .Values "invoice.due_date"}}</p>
</section>
<table>
<thead><tr><th>Description</th><th>Date</th><th class="num">Amount</th><th class="num">Unit price</th><th class="num">Total</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.Description}}</td><td>{{.Begin}}</td><td class="num">{{.Amount}}</td><td class="num">{{.HourlyRate}}</td><td class="num">{{.Rate}}</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="4" class="num">Subtotal</td><td class="num">{{index .Values "invoice.subtotal"}}</td></tr>
<tr><td colspan="4" class="num">VAT {{index .Values "invoice.vat"}}%</td><td class="num">{{index .Values "invoice.tax"}}</td></tr>
<tr><td colspan="4" class="num"><strong>Total</strong></td><td class="num"><strong>{{index .Values "invoice.total"}}</strong></td></tr>
</tfoot>
</table>
<footer>
<p>{{index .Values "template.payment_terms"}}</p>
<p>{{index .Values "template.payment_details"}}</p>
<p>{{index .Values "template.vat_id"}}</p>
</footer>
</body>
</html>
`))

func (HTMLRenderer) Render(w io.Writer, view View) error {
	if err := htmlInvoice.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render html invoice: %w", err)
	}
	return nil
}

// JSONRenderer writes the hydrated values and items.
type JSONRenderer struct{}

func (JSONRenderer) ID() string          { return "json" }
func (JSONRenderer) ContentType() string { return "application/json" }
func (JSONRenderer) Extension() string   { return "json" }

func (JSONRenderer) Render(w io.Writer, view View) error {
	doc := struct {
		Values map[string]string `json:"values"`
		Items  []ItemView        `json:"items"`
	}{Values: view.Values, Items: view.Items}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json invoice: %w", err)
	}
	return nil
}

// XLSXRenderer writes the invoice header and items into one sheet.
type XLSXRenderer struct{}

func (XLSXRenderer) ID() string { return "xlsx" }
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXRenderer) Extension() string { return "xlsx" }

const invoiceSheet = "Invoice"

func (XLSXRenderer) Render(w io.Writer, view View) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", invoiceSheet)

	rows := [][]interface{}{
		{view.Value("template.title"), view.Value("invoice.number")},
		{"Date", view.Value("invoice.date")},
		{"Due date", view.Value("invoice.due_date")},
		{"Customer", view.Value("customer.name")},
		{},
		{"Description", "Date", "Amount", "Unit price", "Total"},
	}
	for _, item := range view.Invoice.Items {
		rows = append(rows, []interface{}{item.Description, formatTime(item.Begin), item.Amount, item.HourlyRate, item.Rate})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Subtotal", "", "", "", view.Invoice.Subtotal},
		[]interface{}{"VAT " + view.Value("invoice.vat") + "%", "", "", "", view.Invoice.Tax},
		[]interface{}{"Total", "", "", "", view.Invoice.Total},
		[]interface{}{"Currency", view.Invoice.Currency},
	)

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(invoiceSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx invoice: %w", err)
	}
	return nil
}

// PDFRenderer prints a portrait A4 invoice.
type PDFRenderer struct{}

func (PDFRenderer) ID() string          { return "pdf" }
func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

func (PDFRenderer) Render(w io.Writer, view View) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(view.Value("template.title")), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, tr(view.Value("template.company")+"\n"+view.Value("template.address")), "", "L", false)
	pdf.Ln(4)
	pdf.MultiCell(0, 5, tr(view.Value("customer.company")+" "+view.Value("customer.name")+"\n"+view.Value("customer.address")), "", "L", false)
	pdf.Ln(4)
	for _, line := range []string{
		"Invoice " + view.Value("invoice.number"),
		"Date " + view.Value("invoice.date"),
		"Due " + view.Value("invoice.due_date"),
	} {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{80, 25, 20, 27, 28}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Description", "Date", "Amount", "Unit price", "Total"} {
		align := "R"
		if i < 2 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range view.Items {
		cells := []string{item.Description, item.Begin, item.Amount, item.HourlyRate, item.Rate}
		for i, value := range cells {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(2)
	for _, line := range [][2]string{
		{"Subtotal", view.Value("invoice.subtotal")},
		{"VAT " + view.Value("invoice.vat") + "%", view.Value("invoice.tax")},
		{"Total", view.Value("invoice.total")},
	} {
		pdf.CellFormat(152, 6, tr(line[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, tr(line[1]), "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.MultiCell(0, 5, tr(view.Value("template.payment_terms")), "", "L", false)
	pdf.MultiCell(0, 5, tr(view.Value("template.payment_details")), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf invoice: %w", err)
	}
	return nil
}
