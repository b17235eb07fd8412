package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TeamQuery filters the team list.
type TeamQuery struct {
	BaseQuery
}

var teamOrder = map[string]string{
	"id":   "teams.id",
	"name": "teams.name",
}

// CreateTeam stores a team with its initial team lead.
func (s *Store) CreateTeam(ctx context.Context, name, color string, leadID uint) (*models.Team, error) {
	var v violations
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 100 {
		v.add("name", "must be between 2 and 100 characters")
	}
	if color != "" && !colorPattern.MatchString(color) {
		v.add("color", "must be a hex color like #a1b2c3")
	}
	if leadID == 0 {
		v.add("teamlead", "a team needs at least one team lead")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	team := models.Team{Name: name, Color: color}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("team %q already exists: %w", name, ErrConflict)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}
		return addMember(tx, team.ID, leadID, true)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTeam(ctx, team.ID)
}

// GetTeam loads a team with members and assigned entities.
func (s *Store) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	err := s.DB(ctx).
		Preload("Members.User").
		Preload("Customers").
		Preload("Projects").
		Preload("Activities").
		First(&team, id).Error
	if err != nil {
		return nil, notFound(err, "team", id)
	}
	return &team, nil
}

// RenameTeam changes name and color.
func (s *Store) RenameTeam(ctx context.Context, id uint, name, color string) (*models.Team, error) {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	var v violations
	if name = strings.TrimSpace(name); name != "" {
		if len(name) < 2 || len(name) > 100 {
			v.add("name", "must be between 2 and 100 characters")
		}
		team.Name = name
	}
	if color != "" {
		if !colorPattern.MatchString(color) {
			v.add("color", "must be a hex color like #a1b2c3")
		}
		team.Color = color
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	err = s.DB(ctx).Model(&models.Team{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": team.Name, "color": team.Color}).Error
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("team %q already exists: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to update team #%d: %w", id, err)
	}
	return team, nil
}

// DeleteTeam removes the team, its memberships and all assignments.
func (s *Store) DeleteTeam(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team := models.Team{ID: id}
		for _, assoc := range []string{"Customers", "Projects", "Activities"} {
			if err := tx.Model(&team).Association(assoc).Clear(); err != nil {
				return fmt.Errorf("failed to detach %s: %w", strings.ToLower(assoc), err)
			}
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete members: %w", err)
		}
		res := tx.Delete(&models.Team{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete team #%d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("team #%d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListTeams returns one page of teams. Non admins only see teams they belong to.
func (s *Store) ListTeams(ctx context.Context, q TeamQuery) (Paginated[models.Team], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Team{})
	tx = applyTerm(tx, q.Term, "teams.name")
	if q.Viewer != nil && !permissions.IsAdmin(*q.Viewer) {
		tx = tx.Where("teams.id IN (SELECT team_id FROM team_members WHERE user_id = ?)", q.Viewer.ID)
	}
	return paginate[models.Team](tx, q.BaseQuery, teamOrder, "teams.name ASC", "Members.User")
}

// AddTeamMember adds or updates a membership.
func (s *Store) AddTeamMember(ctx context.Context, teamID, userID uint, teamlead bool) (*models.Team, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := addMember(s.DB(ctx), teamID, userID, teamlead); err != nil {
		return nil, err
	}
	return s.GetTeam(ctx, teamID)
}

// RemoveTeamMember removes a membership. The last team lead cannot be removed.
func (s *Store) RemoveTeamMember(ctx context.Context, teamID, userID uint) (*models.Team, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(userID) {
		return nil, fmt.Errorf("user #%d in team #%d: %w", userID, teamID, ErrNotFound)
	}
	leads := team.Teamleads()
	if len(leads) == 1 && leads[0] == userID {
		return nil, invalid("members", "a team needs at least one team lead")
	}
	err = s.DB(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	return s.GetTeam(ctx, teamID)
}

func addMember(tx *gorm.DB, teamID, userID uint, teamlead bool) error {
	member := models.TeamMember{TeamID: teamID, UserID: userID, Teamlead: teamlead}
	err := tx.Omit("Team", "User").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"teamlead"}),
	}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// Team assignment targets.
const (
	AssignCustomer = "customer"
	AssignProject  = "project"
	AssignActivity = "activity"
)

// AssignToTeam restricts an entity to the team.
func (s *Store) AssignToTeam(ctx context.Context, teamID uint, kind string, entityID uint) (*models.Team, error) {
	return s.changeAssignment(ctx, teamID, kind, entityID, true)
}

// UnassignFromTeam removes the restriction again.
func (s *Store) UnassignFromTeam(ctx context.Context, teamID uint, kind string, entityID uint) (*models.Team, error) {
	return s.changeAssignment(ctx, teamID, kind, entityID, false)
}

var assignmentTables = map[string][2]string{
	AssignCustomer: {"customer_teams", "customer_id"},
	AssignProject:  {"project_teams", "project_id"},
	AssignActivity: {"activity_teams", "activity_id"},
}

func (s *Store) changeAssignment(ctx context.Context, teamID uint, kind string, entityID uint, add bool) (*models.Team, error) {
	table, ok := assignmentTables[kind]
	if !ok {
		return nil, invalid("kind", "unknown assignment %q", kind)
	}
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}

	var err error
	switch kind {
	case AssignCustomer:
		_, err = s.GetCustomer(ctx, entityID)
	case AssignProject:
		_, err = s.GetProject(ctx, entityID)
	case AssignActivity:
		_, err = s.GetActivity(ctx, entityID)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		where := fmt.Sprintf("team_id = ? AND %s = ?", table[1])
		if err := tx.Table(table[0]).Where(where, teamID, entityID).Count(&count).Error; err != nil {
			return err
		}
		switch {
		case add && count == 0:
			return tx.Exec(fmt.Sprintf("INSERT INTO %s (%s, team_id) VALUES (?, ?)", table[0], table[1]), entityID, teamID).Error
		case !add && count > 0:
			return tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", table[0], where), teamID, entityID).Error
		case !add:
			return fmt.Errorf("%s #%d is not assigned: %w", kind, entityID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change %s assignment: %w", kind, err)
	}
	return s.GetTeam(ctx, teamID)
}
