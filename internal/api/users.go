package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

type userResponse struct {
	models.User
	Roles []string `json:"roles"`
}

func userView(u models.User) userResponse {
	return userResponse{User: u, Roles: u.RoleList()}
}

type userForm struct {
	Username     string   `json:"username"`
	Email        *string  `json:"email"`
	Password     *string  `json:"password"`
	Alias        *string  `json:"alias"`
	Title        *string  `json:"title"`
	Roles        []string `json:"roles"`
	Enabled      *bool    `json:"enabled"`
	Timezone     *string  `json:"timezone"`
	Language     *string  `json:"language"`
	HourlyRate   *float64 `json:"hourly_rate"`
	InternalRate *float64 `json:"internal_rate"`
	// Seconds per weekday, Monday first.
	WorkingTime []int `json:"working_time"`
}

func (h *Handler) listUsers(c echo.Context) error {
	user := actor(c)
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	q := db.UserQuery{BaseQuery: base, Role: c.QueryParam("role")}
	if !h.Voter.Matrix().Has(user, permissions.ViewUser) {
		// team leads see the members of their teams, everybody else only themselves
		q.UserIDs = append([]uint{user.ID}, permissions.LedUserIDs(user)...)
	}
	page, err := h.Store.ListUsers(c.Request().Context(), q)
	if err != nil {
		return apierr.From(err)
	}
	views := make([]userResponse, 0, len(page.Items))
	for _, u := range page.Items {
		views = append(views, userView(u))
	}
	return paginated(c, page, views)
}

func (h *Handler) me(c echo.Context) error {
	return c.JSON(http.StatusOK, userView(actor(c)))
}

func (h *Handler) loadUser(c echo.Context, attribute string) (*models.User, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	target, err := h.Store.GetUser(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.User(actor(c), attribute, *target) {
		return nil, apierr.Forbidden()
	}
	return target, nil
}

func (h *Handler) getUser(c echo.Context) error {
	target, err := h.loadUser(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userView(*target))
}

func (h *Handler) createUser(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.CreateUser); err != nil {
		return apierr.From(err)
	}
	var form userForm
	if err := bind(c, &form); err != nil {
		return err
	}
	req := db.CreateUserRequest{Username: form.Username, Roles: form.Roles, InternalRate: form.InternalRate, WorkingTime: form.WorkingTime}
	setString(&req.Email, form.Email)
	setString(&req.Password, form.Password)
	setString(&req.Alias, form.Alias)
	setString(&req.Title, form.Title)
	setString(&req.Timezone, form.Timezone)
	setString(&req.Language, form.Language)
	setFloat(&req.HourlyRate, form.HourlyRate)
	created, err := h.Store.CreateUser(c.Request().Context(), req)
	if err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("user created", "created_user_id", created.ID)
	return c.JSON(http.StatusOK, userView(*created))
}

func (h *Handler) updateUser(c echo.Context) error {
	user := actor(c)
	target, err := h.loadUser(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form userForm
	if err := bind(c, &form); err != nil {
		return err
	}
	// roles and the enabled flag are not part of the own profile
	if (form.Roles != nil || form.Enabled != nil) && !h.Voter.Matrix().Has(user, permissions.EditUser) {
		return apierr.Forbidden()
	}
	updated, err := h.Store.UpdateUser(c.Request().Context(), target.ID, db.UpdateUserRequest{
		Email:        form.Email,
		Password:     form.Password,
		Alias:        form.Alias,
		Title:        form.Title,
		Roles:        form.Roles,
		Enabled:      form.Enabled,
		Timezone:     form.Timezone,
		Language:     form.Language,
		HourlyRate:   form.HourlyRate,
		InternalRate: form.InternalRate,
		WorkingTime:  form.WorkingTime,
	})
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, userView(*updated))
}

func (h *Handler) workingTime(c echo.Context) error {
	user := actor(c)
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if id != user.ID && !h.Voter.Timesheet(user, permissions.AttrView, id) {
		return apierr.Forbidden()
	}
	target, err := h.Store.GetUser(c.Request().Context(), id)
	if err != nil {
		return apierr.From(err)
	}
	now := time.Now().In(target.Location())
	year, err := intQuery(c, "year", now.Year())
	if err != nil {
		return err
	}
	month, err := intQuery(c, "month", int(now.Month()))
	if err != nil {
		return err
	}
	result, err := h.Statistics.WorkingTime(c.Request().Context(), *target, year, time.Month(month))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, result)
}
