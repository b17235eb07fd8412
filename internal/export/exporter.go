package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

// Source is the part of the store an export reads from.
type Source interface {
	FindTimesheets(ctx context.Context, q db.TimesheetQuery) ([]models.Timesheet, error)
	MarkExported(ctx context.Context, ids []uint) error
	VisibleMetaNames(ctx context.Context, ownerType string) ([]string, error)
}

// Request describes one export.
type Request struct {
	Format       string
	Query        db.TimesheetQuery
	Columns      []string
	ShowRates    bool
	MarkExported bool
	UserID       uint
	Title        string
}

// Result is a rendered file.
type Result struct {
	Filename    string
	ContentType string
	Body        []byte
	Count       int
}

// Exporter loads records, renders them and optionally marks them as exported.
type Exporter struct {
	source         Source
	registry       *Registry
	events         *events.Dispatcher
	durationFormat string
	now            func() time.Time
}

// NewExporter wires the exporter. A nil registry means DefaultRegistry.
func NewExporter(source Source, registry *Registry, dispatcher *events.Dispatcher, durationFormat string) *Exporter {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if durationFormat == "" {
		durationFormat = DurationDecimal
	}
	return &Exporter{source: source, registry: registry, events: dispatcher, durationFormat: durationFormat, now: time.Now}
}

// Registry exposes the renderers.
func (e *Exporter) Registry() *Registry {
	return e.registry
}

// Export renders all stopped records matching the request.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	renderer, err := e.registry.Get(req.Format)
	if err != nil {
		return nil, err
	}

	q := req.Query
	q.State = db.StateStopped
	list, err := e.source.FindTimesheets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	metaNames, err := e.source.VisibleMetaNames(ctx, models.OwnerTimesheet)
	if err != nil {
		return nil, err
	}

	begin, end := period(req.Query, list, e.now())
	title := req.Title
	if title == "" {
		title = "Timesheet export"
	}
	converter := ColumnConverter{
		DurationFormat: e.durationFormat,
		ShowRates:      req.ShowRates,
		MetaNames:      metaNames,
		Only:           req.Columns,
	}
	data := Data{
		Title:          title,
		Begin:          begin,
		End:            end,
		Columns:        converter.Columns(),
		Timesheets:     list,
		Summary:        Summarize(list),
		ShowRates:      req.ShowRates,
		DurationFormat: e.durationFormat,
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, data); err != nil {
		return nil, err
	}

	if req.MarkExported && len(list) > 0 {
		ids := make([]uint, len(list))
		for i, t := range list {
			ids[i] = t.ID
		}
		if err := e.source.MarkExported(ctx, ids); err != nil {
			return nil, err
		}
	}

	e.events.Dispatch(ctx, events.New(events.ExportCreated, req.UserID, 0, map[string]interface{}{
		"format":  renderer.ID(),
		"records": len(list),
	}))

	return &Result{
		Filename:    Filename(begin, end, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        buf.Bytes(),
		Count:       len(list),
	}, nil
}

// period prefers the requested range and falls back to the records' range.
func period(q db.TimesheetQuery, list []models.Timesheet, now time.Time) (time.Time, time.Time) {
	var begin, end time.Time
	if q.Begin != nil {
		begin = *q.Begin
	}
	if q.End != nil {
		end = *q.End
	}
	for _, t := range list {
		if q.Begin == nil && (begin.IsZero() || t.Begin.Before(begin)) {
			begin = t.Begin
		}
		if q.End == nil && (end.IsZero() || t.Begin.After(end)) {
			end = t.Begin
		}
	}
	if begin.IsZero() {
		begin = now
	}
	if end.IsZero() {
		end = now
	}
	return begin, end
}
