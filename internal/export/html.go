package export

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// HTMLRenderer renders a printable standalone page.
type HTMLRenderer struct{}

func (HTMLRenderer) ID() string          { return "html" }
func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (HTMLRenderer) Extension() string   { return "html" }

var htmlTemplate = template.Must(template.New("export").Funcs(template.FuncMap{
	"money": func(v float64) string { return FormatValue(v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px; text-align: left; }
th { background: #eee; }
tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Begin.Format "2006-01-02"}} to {{.End.Format "2006-01-02"}}</p>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<h2>Summary</h2>
<table>
<tr><th>Records</th><td>{{.Count}}</td></tr>
<tr><th>Duration</th><td>{{.Duration}}</td></tr>
{{if .ShowRates}}{{range .Currencies}}<tr><th>Total {{.Currency}}</th><td>{{money .Rate}}</td></tr>
{{end}}{{end}}</table>
</body>
</html>
`))

type htmlView struct {
	Title      string
	Begin, End time.Time
	Headers    []string
	Rows       [][]string
	Count      int
	Duration   string
	ShowRates  bool
	Currencies []Totals
}

func (HTMLRenderer) Render(w io.Writer, data Data) error {
	view := htmlView{
		Title:      data.Title,
		Begin:      data.Begin,
		End:        data.End,
		Headers:    data.Headers(),
		Rows:       data.TextRows(),
		Count:      data.Summary.Count,
		Duration:   data.FormatDuration(data.Summary.Duration),
		ShowRates:  data.ShowRates,
		Currencies: data.Summary.ByCurrency,
	}
	if err := htmlTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render html export: %w", err)
	}
	return nil
}
