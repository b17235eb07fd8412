package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/auth"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// Pagination headers.
const (
	HeaderPage       = "X-Page"
	HeaderPerPage    = "X-Per-Page"
	HeaderTotalCount = "X-Total-Count"
	HeaderTotalPages = "X-Total-Pages"
)

func actor(c echo.Context) models.User {
	user, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return models.User{}
	}
	return *user
}

func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.BadRequest(fmt.Sprintf("%q must be a positive number", name), err)
	}
	return uint(id), nil
}

func idList(c echo.Context, name string) ([]uint, error) {
	var ids []uint
	for _, raw := range c.QueryParams()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, apierr.BadRequest(fmt.Sprintf("%q must be a list of ids", name), err)
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}

func intQuery(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.BadRequest(fmt.Sprintf("%q must be a number", name), err)
	}
	return n, nil
}

func boolQuery(c echo.Context, name string) bool {
	switch strings.ToLower(c.QueryParam(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// filterQuery maps 1/0 onto FilterYes/FilterNo.
func filterQuery(c echo.Context, name string) string {
	switch strings.ToLower(c.QueryParam(name)) {
	case "1", "true", "yes":
		return db.FilterYes
	case "0", "false", "no":
		return db.FilterNo
	}
	return db.FilterAll
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts RFC3339 or local date-times interpreted in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

func timeQuery(c echo.Context, name string, loc *time.Location) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := parseTime(raw, loc)
	if err != nil {
		return nil, apierr.BadRequest(fmt.Sprintf("%q must be a date like 2006-01-02T15:04:05", name), err)
	}
	return &t, nil
}

func baseQuery(c echo.Context) (db.BaseQuery, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return db.BaseQuery{}, err
	}
	size, err := intQuery(c, "size", db.DefaultPageSize)
	if err != nil {
		return db.BaseQuery{}, err
	}
	visibility, err := intQuery(c, "visible", 1)
	if err != nil {
		return db.BaseQuery{}, err
	}
	q := db.BaseQuery{
		Page:     page,
		PageSize: size,
		OrderBy:  c.QueryParam("orderBy"),
		Order:    c.QueryParam("order"),
		Term:     c.QueryParam("term"),
	}
	switch visibility {
	case 2:
		q.Visibility = db.VisibilityHidden
	case 3:
		q.Visibility = db.VisibilityBoth
	default:
		q.Visibility = db.VisibilityVisible
	}
	if user := actor(c); user.ID != 0 {
		q.Viewer = &user
	}
	return q, nil
}

func paginated[T any](c echo.Context, page db.Paginated[T], items interface{}) error {
	header := c.Response().Header()
	header.Set(HeaderPage, strconv.Itoa(page.Page))
	header.Set(HeaderPerPage, strconv.Itoa(page.PageSize))
	header.Set(HeaderTotalCount, strconv.FormatInt(page.Total, 10))
	header.Set(HeaderTotalPages, strconv.Itoa(page.TotalPages()))
	if items == nil {
		items = page.Items
		if page.Items == nil {
			items = []T{}
		}
	}
	return c.JSON(200, items)
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apierr.BadRequest("invalid request body", err)
	}
	return nil
}

func attachment(c echo.Context, filename, contentType string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(200, contentType, body)
}
