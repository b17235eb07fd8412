package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

var day = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func record(id uint, begin time.Time, seconds int, rate float64, currency string) models.Timesheet {
	end := begin.Add(time.Duration(seconds) * time.Second)
	hourly := 80.0
	return models.Timesheet{
		ID:          id,
		Begin:       begin,
		End:         &end,
		Duration:    seconds,
		Rate:        rate,
		HourlyRate:  &hourly,
		Billable:    true,
		Category:    models.CategoryWork,
		Description: "Review, \"final\"",
		User:        models.User{Username: "susan", Alias: "Susan"},
		Project:     models.Project{Name: "Website", Customer: models.Customer{Name: "Acme", Currency: currency}},
		Activity:    models.Activity{Name: "Development"},
		Tags:        []models.Tag{{Name: "review"}},
		Meta:        []models.MetaField{{Name: "ticket", Value: "HR-7"}},
	}
}

type stubSource struct {
	records  []models.Timesheet
	query    db.TimesheetQuery
	exported []uint
}

func (s *stubSource) FindTimesheets(_ context.Context, q db.TimesheetQuery) ([]models.Timesheet, error) {
	s.query = q
	return s.records, nil
}

func (s *stubSource) MarkExported(_ context.Context, ids []uint) error {
	s.exported = append(s.exported, ids...)
	return nil
}

func (s *stubSource) VisibleMetaNames(context.Context, string) ([]string, error) {
	return []string{"ticket"}, nil
}

func testData(showRates bool, format string) Data {
	list := []models.Timesheet{
		record(1, day, 5400, 120, "EUR"),
		record(2, day.Add(24*time.Hour), 1800, 40, "EUR"),
	}
	converter := ColumnConverter{DurationFormat: format, ShowRates: showRates, MetaNames: []string{"ticket"}}
	return Data{
		Title:          "March",
		Begin:          day,
		End:            day.Add(24 * time.Hour),
		Columns:        converter.Columns(),
		Timesheets:     list,
		Summary:        Summarize(list),
		ShowRates:      showRates,
		DurationFormat: format,
	}
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func TestColumnConverterHidesRates(t *testing.T) {
	withRates := columnNames(ColumnConverter{ShowRates: true}.Columns())
	withoutRates := columnNames(ColumnConverter{}.Columns())

	assert.Contains(t, withRates, "rate")
	assert.Contains(t, withRates, "hourly_rate")
	assert.NotContains(t, withoutRates, "rate")
	assert.NotContains(t, withoutRates, "internal_rate")
	assert.Contains(t, withoutRates, "duration")
}

func TestColumnConverterSelection(t *testing.T) {
	cols := ColumnConverter{Only: []string{"project", "meta.ticket", "rate", "unknown"}, MetaNames: []string{"ticket"}}.Columns()
	assert.Equal(t, []string{"project", "meta.ticket"}, columnNames(cols))
}

func TestDurationFormats(t *testing.T) {
	assert.Equal(t, 1.5, ColumnConverter{DurationFormat: DurationDecimal}.duration(5400))
	assert.Equal(t, "1:30", ColumnConverter{DurationFormat: DurationClock}.duration(5400))
	assert.Equal(t, "-1:00", ColumnConverter{DurationFormat: DurationClock}.duration(-3600))
}

func TestSummarizeGroupsByCurrency(t *testing.T) {
	s := Summarize([]models.Timesheet{
		record(1, day, 3600, 80, "EUR"),
		record(2, day, 3600, 100, "USD"),
		record(3, day, 1800, 40, "EUR"),
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 9000, s.Duration)
	require.Len(t, s.ByCurrency, 2)
	assert.Equal(t, Totals{Currency: "EUR", Count: 2, Duration: 5400, Rate: 120}, s.ByCurrency[0])
	assert.Equal(t, "USD", s.ByCurrency[1].Currency)
}

func TestCSVRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVRenderer{}.Render(&buf, testData(false, DurationDecimal)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "ticket", rows[0][len(rows[0])-1])
	assert.Equal(t, "2026-03-02", rows[1][0])
	assert.Equal(t, "1.50", rows[1][3])
	assert.Contains(t, rows[1], `Review, "final"`)
	assert.NotContains(t, rows[0], "Total price")
}

func TestXLSXRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXRenderer{}.Render(&buf, testData(true, DurationDecimal)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "2", rows[3][3])
}

func TestPDFRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDFRenderer{}.Render(&buf, testData(true, DurationClock)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestHTMLRendererEscapes(t *testing.T) {
	var buf bytes.Buffer
	data := testData(true, DurationClock)
	data.Title = "<script>"
	require.NoError(t, HTMLRenderer{}.Render(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "<th>Project</th>")
	assert.Contains(t, out, "Total EUR")
	assert.Contains(t, out, "2:00")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, testData(false, DurationDecimal)))

	var doc struct {
		Records []map[string]interface{} `json:"records"`
		Summary Summary                  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "Acme", doc.Records[0]["customer"])
	assert.NotContains(t, doc.Records[0], "rate")
	assert.Empty(t, doc.Summary.ByCurrency)
	assert.Equal(t, 7200, doc.Summary.Duration)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"csv", "html", "json", "pdf", "xlsx"}, r.IDs())

	renderer, err := r.Get("XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", renderer.Extension())

	_, err = r.Get("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hourly-export-20260301-20260331.csv",
		Filename(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), "csv"))
}

func TestExporterMarksRecordsAndDispatches(t *testing.T) {
	source := &stubSource{records: []models.Timesheet{record(4, day, 3600, 80, "EUR"), record(5, day, 60, 1, "EUR")}}
	dispatcher := events.NewDispatcher(nil)
	var formats []interface{}
	dispatcher.Subscribe(events.ExportCreated, events.SubscriberFunc(func(_ context.Context, e events.Event) error {
		formats = append(formats, e.Payload.(map[string]interface{})["format"])
		return nil
	}))

	exporter := NewExporter(source, nil, dispatcher, "")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := exporter.Export(context.Background(), Request{
		Format:       "csv",
		Query:        db.TimesheetQuery{Begin: &from},
		MarkExported: true,
	})
	require.NoError(t, err)

	assert.Equal(t, db.StateStopped, source.query.State)
	assert.Equal(t, []uint{4, 5}, source.exported)
	assert.Equal(t, "hourly-export-20260301-20260302.csv", result.Filename)
	assert.True(t, strings.HasPrefix(result.ContentType, "text/csv"))
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, []interface{}{"csv"}, formats)

	_, err = exporter.Export(context.Background(), Request{Format: "odt"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
