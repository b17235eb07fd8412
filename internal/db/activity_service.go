package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
)

// ActivityQuery filters the activity list.
type ActivityQuery struct {
	BaseQuery
	ProjectIDs []uint
	// Globals limits the result to global activities. With ProjectIDs set,
	// GlobalsToo adds the global activities to the project activities.
	Globals    bool
	GlobalsToo bool
}

var activityOrder = map[string]string{
	"id":      "activities.id",
	"name":    "activities.name",
	"project": "activities.project_id",
	"number":  "activities.number",
}

// CreateActivity validates and stores a new activity.
func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if err := s.validateActivity(ctx, activity); err != nil {
		return err
	}
	if err := s.DB(ctx).Omit("Project").Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return s.reloadActivity(ctx, activity)
}

// GetActivity loads an activity with its project, customer, teams and meta fields.
func (s *Store) GetActivity(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	err := s.DB(ctx).
		Preload("Project").
		Preload("Project.Teams").
		Preload("Project.Customer").
		Preload("Project.Customer.Teams").
		Preload("Teams").
		Preload("Meta").
		First(&activity, id).Error
	if err != nil {
		return nil, notFound(err, "activity", id)
	}
	return &activity, nil
}

func (s *Store) reloadActivity(ctx context.Context, activity *models.Activity) error {
	loaded, err := s.GetActivity(ctx, activity.ID)
	if err != nil {
		return err
	}
	*activity = *loaded
	return nil
}

// UpdateActivity saves all columns of an existing activity.
func (s *Store) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	if err := s.validateActivity(ctx, activity); err != nil {
		return err
	}
	if err := s.DB(ctx).Omit("Project", "Teams", "Meta").Save(activity).Error; err != nil {
		return fmt.Errorf("failed to update activity #%d: %w", activity.ID, err)
	}
	return s.reloadActivity(ctx, activity)
}

// DeleteActivity removes an activity without timesheets.
func (s *Store) DeleteActivity(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteActivityTx(tx, id)
	})
}

func deleteActivityTx(tx *gorm.DB, id uint) error {
	if err := ensureNoTimesheets(tx, "activity_id", id, "activity"); err != nil {
		return err
	}
	activity := models.Activity{ID: id}
	if err := tx.Model(&activity).Association("Teams").Clear(); err != nil {
		return fmt.Errorf("failed to detach teams: %w", err)
	}
	if err := deleteMeta(tx, models.OwnerActivity, id); err != nil {
		return err
	}
	if err := deleteRates(tx, models.OwnerActivity, id); err != nil {
		return err
	}
	res := tx.Delete(&models.Activity{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete activity #%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("activity #%d: %w", id, ErrNotFound)
	}
	return nil
}

// ListActivities returns one page of activities.
func (s *Store) ListActivities(ctx context.Context, q ActivityQuery) (Paginated[models.Activity], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Activity{})
	tx = applyVisibility(tx, "activities.visible", q.Visibility)

	switch {
	case q.Globals:
		tx = tx.Where("activities.project_id IS NULL")
	case len(q.ProjectIDs) > 0 && q.GlobalsToo:
		tx = tx.Where("(activities.project_id IN ? OR activities.project_id IS NULL)", q.ProjectIDs)
	case len(q.ProjectIDs) > 0:
		tx = tx.Where("activities.project_id IN ?", q.ProjectIDs)
	}

	tx = applyTerm(tx, q.Term, "activities.name", "activities.number", "activities.comment")
	tx = restrictToViewer(tx, q.Viewer, "activities.id", "activity_teams", "activity_id")
	return paginate[models.Activity](tx, q.BaseQuery, activityOrder, "activities.name ASC", "Project", "Project.Customer", "Teams")
}

// FindActivityByName prefers an activity of the project over a global one.
func (s *Store) FindActivityByName(ctx context.Context, name string, projectID uint) (*models.Activity, error) {
	var found []models.Activity
	err := s.DB(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Where("(project_id = ? OR project_id IS NULL)", projectID).
		Order("project_id IS NULL").
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find activity %q: %w", name, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("activity %q: %w", name, ErrNotFound)
	}
	return s.GetActivity(ctx, found[0].ID)
}

func (s *Store) validateActivity(ctx context.Context, a *models.Activity) error {
	var v violations
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		v.add("name", "must not be empty")
	}
	if a.ProjectID != nil {
		var count int64
		if err := s.DB(ctx).Model(&models.Project{}).Where("id = ?", *a.ProjectID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		if count == 0 {
			v.add("project", "project #%d does not exist", *a.ProjectID)
		}
	}
	validateBudget(&v, a.Budget, a.TimeBudget, a.BudgetType)
	return v.err()
}
