package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/permissions"
)

func (h *Handler) listTags(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.ViewTag); err != nil {
		return apierr.From(err)
	}
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Store.ListTags(c.Request().Context(), db.TagQuery{BaseQuery: base})
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

type tagForm struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *Handler) createTag(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.CreateTag); err != nil {
		return apierr.From(err)
	}
	var form tagForm
	if err := bind(c, &form); err != nil {
		return err
	}
	tag, err := h.Store.CreateTag(c.Request().Context(), form.Name, form.Color)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, tag)
}

func (h *Handler) deleteTag(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.DeleteTag); err != nil {
		return apierr.From(err)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteTag(c.Request().Context(), id); err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("tag deleted", "tag_id", id)
	return c.NoContent(http.StatusNoContent)
}
