package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/permissions"
)

func (h *Handler) export(c echo.Context) error {
	user := actor(c)
	q, err := h.timesheetQuery(c)
	if err != nil {
		return err
	}

	if !h.Voter.Records(user, permissions.AttrExport, q.UserIDs) {
		return apierr.Forbidden()
	}
	markExported := boolQuery(c, "markAsExported")
	if markExported && !h.Voter.Records(user, permissions.AttrEditExport, q.UserIDs) {
		return apierr.Forbidden()
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	var columns []string
	if raw := c.QueryParam("columns"); raw != "" {
		for _, col := range strings.Split(raw, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
	}

	result, err := h.Exporter.Export(c.Request().Context(), export.Request{
		Format:       format,
		Query:        q,
		Columns:      columns,
		ShowRates:    h.Voter.Records(user, permissions.AttrViewRate, q.UserIDs),
		MarkExported: markExported,
		UserID:       user.ID,
		Title:        c.QueryParam("title"),
	})
	if err != nil {
		return apierr.From(err)
	}
	return attachment(c, result.Filename, result.ContentType, result.Body)
}
