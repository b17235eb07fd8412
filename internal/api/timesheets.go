package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

// timesheetResponse hides the rate fields of the embedded record unless they are set.
// The owner is reduced to a summary so the user's own rates never leak.
type timesheetResponse struct {
	models.Timesheet
	User         timesheetOwner `json:"user"`
	Rate         *float64       `json:"rate,omitempty"`
	InternalRate *float64       `json:"internal_rate,omitempty"`
	HourlyRate   *float64       `json:"hourly_rate,omitempty"`
	FixedRate    *float64       `json:"fixed_rate,omitempty"`
}

type timesheetOwner struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Alias    string `json:"alias"`
	Title    string `json:"title"`
	Timezone string `json:"timezone"`
}

func (h *Handler) timesheetView(viewer models.User, t models.Timesheet) timesheetResponse {
	resp := timesheetResponse{
		Timesheet: t,
		User: timesheetOwner{
			ID:       t.UserID,
			Username: t.User.Username,
			Alias:    t.User.Alias,
			Title:    t.User.Title,
			Timezone: t.User.Timezone,
		},
	}
	if h.Voter.Timesheet(viewer, permissions.AttrViewRate, t.UserID) {
		rate, internal := t.Rate, t.InternalRate
		resp.Rate = &rate
		resp.InternalRate = &internal
		resp.HourlyRate = t.HourlyRate
		resp.FixedRate = t.FixedRate
	}
	return resp
}

func (h *Handler) timesheetViews(viewer models.User, list []models.Timesheet) []timesheetResponse {
	out := make([]timesheetResponse, 0, len(list))
	for _, t := range list {
		out = append(out, h.timesheetView(viewer, t))
	}
	return out
}

// timesheetQuery parses the list filters. Without a user filter only the
// caller's records are returned; user=all expands to every visible user.
func (h *Handler) timesheetQuery(c echo.Context) (db.TimesheetQuery, error) {
	user := actor(c)
	base, err := baseQuery(c)
	if err != nil {
		return db.TimesheetQuery{}, err
	}
	q := db.TimesheetQuery{BaseQuery: base}
	// Visibility of customers, projects and activities does not hide records.
	q.Visibility = db.VisibilityBoth

	if q.UserIDs, err = h.userFilter(c, user); err != nil {
		return q, err
	}
	if q.CustomerIDs, err = idList(c, "customer"); err != nil {
		return q, err
	}
	if q.ProjectIDs, err = idList(c, "project"); err != nil {
		return q, err
	}
	if q.ActivityIDs, err = idList(c, "activity"); err != nil {
		return q, err
	}
	for _, raw := range c.QueryParams()["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.Tags = append(q.Tags, tag)
			}
		}
	}
	loc := user.Location()
	if q.Begin, err = timeQuery(c, "begin", loc); err != nil {
		return q, err
	}
	if q.End, err = timeQuery(c, "end", loc); err != nil {
		return q, err
	}
	switch c.QueryParam("active") {
	case "1", "true":
		q.State = db.StateRunning
	case "0", "false":
		q.State = db.StateStopped
	}
	q.Exported = filterQuery(c, "exported")
	q.Billable = filterQuery(c, "billable")
	q.Category = c.QueryParam("category")
	return q, nil
}

func (h *Handler) userFilter(c echo.Context, user models.User) ([]uint, error) {
	raw := c.QueryParam("user")
	switch {
	case raw == "":
		return []uint{user.ID}, nil
	case raw == "all":
		ids, _ := h.Voter.VisibleOwners(user)
		return ids, nil
	}
	ids, err := idList(c, "user")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !h.Voter.Timesheet(user, permissions.AttrView, id) {
			return nil, apierr.Forbidden()
		}
	}
	return ids, nil
}

func (h *Handler) listTimesheets(c echo.Context) error {
	q, err := h.timesheetQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Store.ListTimesheets(c.Request().Context(), q)
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, h.timesheetViews(actor(c), page.Items))
}

func (h *Handler) loadTimesheet(c echo.Context, attribute string) (*models.Timesheet, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	t, err := h.Store.GetTimesheet(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Timesheet(actor(c), attribute, t.UserID) {
		return nil, apierr.Forbidden()
	}
	return t, nil
}

func (h *Handler) getTimesheet(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.timesheetView(actor(c), *t))
}

type timesheetForm struct {
	UserID      *uint    `json:"user"`
	ProjectID   *uint    `json:"project"`
	ActivityID  *uint    `json:"activity"`
	Begin       *string  `json:"begin"`
	End         *string  `json:"end"`
	Duration    *int     `json:"duration"`
	Description *string  `json:"description"`
	Tags        *string  `json:"tags"`
	Category    *string  `json:"category"`
	Billable    *bool    `json:"billable"`
	Exported    *bool    `json:"exported"`
	HourlyRate  *float64 `json:"hourly_rate"`
	FixedRate   *float64 `json:"fixed_rate"`
}

func (f timesheetForm) tags() []string {
	if f.Tags == nil {
		return nil
	}
	tags := []string{}
	for _, tag := range strings.Split(*f.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (f timesheetForm) times(loc *time.Location) (*time.Time, *time.Time, error) {
	var begin, end *time.Time
	if f.Begin != nil && *f.Begin != "" {
		t, err := parseTime(*f.Begin, loc)
		if err != nil {
			return nil, nil, db.NewValidationError("begin", "must be a date like 2006-01-02T15:04:05")
		}
		begin = &t
	}
	if f.End != nil && *f.End != "" {
		t, err := parseTime(*f.End, loc)
		if err != nil {
			return nil, nil, db.NewValidationError("end", "must be a date like 2006-01-02T15:04:05")
		}
		end = &t
	}
	return begin, end, nil
}

// checkRestricted verifies rate and export fields against the voter.
func (h *Handler) checkRestricted(user models.User, ownerID uint, f timesheetForm) error {
	if (f.HourlyRate != nil || f.FixedRate != nil) && !h.Voter.Timesheet(user, permissions.AttrEditRate, ownerID) {
		return apierr.Forbidden()
	}
	if f.Exported != nil && !h.Voter.Timesheet(user, permissions.AttrEditExport, ownerID) {
		return apierr.Forbidden()
	}
	return nil
}

func (h *Handler) createTimesheet(c echo.Context) error {
	user := actor(c)
	var form timesheetForm
	if err := bind(c, &form); err != nil {
		return err
	}
	ownerID := user.ID
	if form.UserID != nil && *form.UserID != 0 {
		ownerID = *form.UserID
	}
	if !h.Voter.Timesheet(user, permissions.AttrStart, ownerID) {
		return apierr.Forbidden()
	}
	if err := h.checkRestricted(user, ownerID, form); err != nil {
		return err
	}
	if form.ProjectID == nil || form.ActivityID == nil {
		return apierr.From(db.NewValidationError("project", "project and activity are required"))
	}
	begin, end, err := form.times(user.Location())
	if err != nil {
		return apierr.From(err)
	}
	var description, category string
	setString(&description, form.Description)
	setString(&category, form.Category)

	ctx := c.Request().Context()
	var t *models.Timesheet
	if end == nil && (form.Duration == nil || *form.Duration == 0) {
		t, err = h.Store.Start(ctx, db.StartRequest{
			UserID:      ownerID,
			ProjectID:   *form.ProjectID,
			ActivityID:  *form.ActivityID,
			Description: description,
			Tags:        form.tags(),
			Category:    category,
			Billable:    form.Billable,
			HourlyRate:  form.HourlyRate,
			FixedRate:   form.FixedRate,
			Begin:       begin,
		})
	} else {
		if begin == nil {
			return apierr.From(db.NewValidationError("begin", "is required for finished records"))
		}
		req := db.CreateTimesheetRequest{
			UserID:      ownerID,
			ProjectID:   *form.ProjectID,
			ActivityID:  *form.ActivityID,
			Begin:       *begin,
			End:         end,
			Description: description,
			Tags:        form.tags(),
			Category:    category,
			Billable:    form.Billable,
			HourlyRate:  form.HourlyRate,
			FixedRate:   form.FixedRate,
		}
		setInt(&req.Duration, form.Duration)
		setBool(&req.Exported, form.Exported)
		t, err = h.Store.CreateTimesheet(ctx, req)
	}
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(user, *t))
}

func (h *Handler) updateTimesheet(c echo.Context) error {
	user := actor(c)
	t, err := h.loadTimesheet(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form timesheetForm
	if err := bind(c, &form); err != nil {
		return err
	}
	if err := h.checkRestricted(user, t.UserID, form); err != nil {
		return err
	}
	if form.UserID != nil && *form.UserID != t.UserID && !h.Voter.Timesheet(user, permissions.AttrEdit, *form.UserID) {
		return apierr.Forbidden()
	}
	begin, end, err := form.times(user.Location())
	if err != nil {
		return apierr.From(err)
	}
	updated, err := h.Store.UpdateTimesheet(c.Request().Context(), t.ID, db.UpdateTimesheetRequest{
		UserID:      form.UserID,
		ProjectID:   form.ProjectID,
		ActivityID:  form.ActivityID,
		Begin:       begin,
		End:         end,
		Duration:    form.Duration,
		Description: form.Description,
		Tags:        form.tags(),
		Category:    form.Category,
		Billable:    form.Billable,
		Exported:    form.Exported,
		HourlyRate:  form.HourlyRate,
		FixedRate:   form.FixedRate,
	})
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(user, *updated))
}

func (h *Handler) deleteTimesheet(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrDelete)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteTimesheet(c.Request().Context(), t.ID); err != nil {
		return apierr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) activeTimesheets(c echo.Context) error {
	user := actor(c)
	list, err := h.Store.Active(c.Request().Context(), user.ID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetViews(user, list))
}

func (h *Handler) recentTimesheets(c echo.Context) error {
	user := actor(c)
	limit, err := intQuery(c, "size", 10)
	if err != nil {
		return err
	}
	list, err := h.Store.Recent(c.Request().Context(), user.ID, limit)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetViews(user, list))
}

func (h *Handler) stopTimesheet(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	stopped, err := h.Store.Stop(c.Request().Context(), t.ID, h.Store.Now())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(actor(c), *stopped))
}

func (h *Handler) restartTimesheet(c echo.Context) error {
	user := actor(c)
	t, err := h.loadTimesheet(c, permissions.AttrView)
	if err != nil {
		return err
	}
	if !h.Voter.Timesheet(user, permissions.AttrStart, user.ID) {
		return apierr.Forbidden()
	}
	restarted, err := h.Store.Restart(c.Request().Context(), t.ID, user.ID, h.Store.Now())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(user, *restarted))
}

func (h *Handler) duplicateTimesheet(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	copied, err := h.Store.Duplicate(c.Request().Context(), t.ID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(actor(c), *copied))
}

func (h *Handler) toggleExported(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrEditExport)
	if err != nil {
		return err
	}
	toggled, err := h.Store.ToggleExported(c.Request().Context(), t.ID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(actor(c), *toggled))
}

func (h *Handler) setTimesheetMeta(c echo.Context) error {
	t, err := h.loadTimesheet(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form metaForm
	if err := bind(c, &form); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.Store.SetMeta(ctx, models.OwnerTimesheet, t.ID, form.Name, form.Value, form.visible()); err != nil {
		return apierr.From(err)
	}
	reloaded, err := h.Store.GetTimesheet(ctx, t.ID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, h.timesheetView(actor(c), *reloaded))
}
