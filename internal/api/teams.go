package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

type teamForm struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Teamlead uint   `json:"teamlead"`
}

func (h *Handler) listTeams(c echo.Context) error {
	user := actor(c)
	if err := h.Voter.Matrix().Require(user, permissions.ViewTeam); err != nil {
		return apierr.From(err)
	}
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Store.ListTeams(c.Request().Context(), db.TeamQuery{BaseQuery: base})
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

func (h *Handler) loadTeam(c echo.Context, attribute string) (*models.Team, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	team, err := h.Store.GetTeam(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Team(actor(c), attribute, *team) {
		return nil, apierr.Forbidden()
	}
	return team, nil
}

func (h *Handler) getTeam(c echo.Context) error {
	team, err := h.loadTeam(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, team)
}

func (h *Handler) createTeam(c echo.Context) error {
	user := actor(c)
	if err := h.Voter.Matrix().Require(user, permissions.CreateTeam); err != nil {
		return apierr.From(err)
	}
	var form teamForm
	if err := bind(c, &form); err != nil {
		return err
	}
	if form.Teamlead == 0 {
		form.Teamlead = user.ID
	}
	team, err := h.Store.CreateTeam(c.Request().Context(), form.Name, form.Color, form.Teamlead)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, team)
}

func (h *Handler) updateTeam(c echo.Context) error {
	team, err := h.loadTeam(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form teamForm
	if err := bind(c, &form); err != nil {
		return err
	}
	updated, err := h.Store.RenameTeam(c.Request().Context(), team.ID, form.Name, form.Color)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteTeam(c echo.Context) error {
	team, err := h.loadTeam(c, permissions.AttrDelete)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteTeam(c.Request().Context(), team.ID); err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("team deleted", "team_id", team.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) addTeamMember(c echo.Context) error {
	team, err := h.loadTeam(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}
	updated, err := h.Store.AddTeamMember(c.Request().Context(), team.ID, userID, boolQuery(c, "teamlead"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) removeTeamMember(c echo.Context) error {
	team, err := h.loadTeam(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}
	updated, err := h.Store.RemoveTeamMember(c.Request().Context(), team.ID, userID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) assign(kind string, add bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		team, err := h.loadTeam(c, permissions.AttrEdit)
		if err != nil {
			return err
		}
		entityID, err := idParam(c, "entityId")
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		var updated *models.Team
		if add {
			updated, err = h.Store.AssignToTeam(ctx, team.ID, kind, entityID)
		} else {
			updated, err = h.Store.UnassignFromTeam(ctx, team.ID, kind, entityID)
		}
		if err != nil {
			return apierr.From(err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}
