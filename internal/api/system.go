package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/config"
)

func (h *Handler) ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "pong"})
}

func (h *Handler) version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"name": "hourly", "version": h.Version})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) token(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.Store.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return apierr.From(err)
	}
	token, expires, err := h.Tokens.Issue(*user)
	if err != nil {
		return apierr.InternalServerError(err)
	}
	h.Log.WithUser(user.ID).Audit("api token issued", "expires_at", expires)
	return c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}

type timesheetConfigResponse struct {
	ActiveEntriesHardLimit int                   `json:"active_entries_hard_limit"`
	Rounding               []config.RoundingRule `json:"rounding"`
	Rates                  []config.RateFactor   `json:"rates"`
	Currency               string                `json:"currency"`
	DurationFormat         string                `json:"duration_format"`
}

func (h *Handler) timesheetConfig(c echo.Context) error {
	cfg := h.Config
	return c.JSON(http.StatusOK, timesheetConfigResponse{
		ActiveEntriesHardLimit: cfg.Timesheet.ActiveEntries.HardLimit,
		Rounding:               cfg.Timesheet.Rounding,
		Rates:                  cfg.Timesheet.Rates,
		Currency:               cfg.Currency,
		DurationFormat:         cfg.Export.DurationFormat,
	})
}
