package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
)

// ProjectQuery filters the project list.
type ProjectQuery struct {
	BaseQuery
	CustomerIDs []uint
}

var projectOrder = map[string]string{
	"id":       "projects.id",
	"name":     "projects.name",
	"customer": "customers.name",
	"number":   "projects.number",
	"end":      "projects.end_date",
}

// CreateProject validates and stores a new project.
func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	if err := s.validateProject(ctx, project); err != nil {
		return err
	}
	if err := s.DB(ctx).Omit("Customer").Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return s.reloadProject(ctx, project)
}

// GetProject loads a project with its customer, teams and meta fields.
func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := s.DB(ctx).
		Preload("Customer").
		Preload("Customer.Teams").
		Preload("Teams").
		Preload("Meta").
		First(&project, id).Error
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return &project, nil
}

func (s *Store) reloadProject(ctx context.Context, project *models.Project) error {
	loaded, err := s.GetProject(ctx, project.ID)
	if err != nil {
		return err
	}
	*project = *loaded
	return nil
}

// UpdateProject saves all columns of an existing project.
func (s *Store) UpdateProject(ctx context.Context, project *models.Project) error {
	if err := s.validateProject(ctx, project); err != nil {
		return err
	}
	if err := s.DB(ctx).Omit("Customer", "Teams", "Meta").Save(project).Error; err != nil {
		return fmt.Errorf("failed to update project #%d: %w", project.ID, err)
	}
	return s.reloadProject(ctx, project)
}

// DeleteProject removes a project without timesheets. Its project activities go with it.
func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNoTimesheets(tx, "project_id", id, "project"); err != nil {
			return err
		}
		var activityIDs []uint
		if err := tx.Model(&models.Activity{}).Where("project_id = ?", id).Pluck("id", &activityIDs).Error; err != nil {
			return fmt.Errorf("failed to list project activities: %w", err)
		}
		for _, activityID := range activityIDs {
			if err := deleteActivityTx(tx, activityID); err != nil {
				return err
			}
		}
		project := models.Project{ID: id}
		if err := tx.Model(&project).Association("Teams").Clear(); err != nil {
			return fmt.Errorf("failed to detach teams: %w", err)
		}
		if err := deleteMeta(tx, models.OwnerProject, id); err != nil {
			return err
		}
		if err := deleteRates(tx, models.OwnerProject, id); err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete project #%d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("project #%d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListProjects returns one page of projects. Hidden customers hide their projects.
func (s *Store) ListProjects(ctx context.Context, q ProjectQuery) (Paginated[models.Project], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Project{}).Joins("JOIN customers ON customers.id = projects.customer_id")
	if q.Visibility == VisibilityVisible {
		tx = tx.Where("projects.visible = ? AND customers.visible = ?", true, true)
	} else {
		tx = applyVisibility(tx, "projects.visible", q.Visibility)
	}
	if len(q.CustomerIDs) > 0 {
		tx = tx.Where("projects.customer_id IN ?", q.CustomerIDs)
	}
	tx = applyTerm(tx, q.Term, "projects.name", "projects.number", "projects.order_number", "projects.comment")
	tx = restrictToViewer(tx, q.Viewer, "projects.id", "project_teams", "project_id")
	tx = restrictToViewer(tx, q.Viewer, "projects.customer_id", "customer_teams", "customer_id")
	return paginate[models.Project](tx, q.BaseQuery, projectOrder, "customers.name ASC, projects.name ASC", "Customer", "Teams")
}

// FindProjectByName resolves "name" or "customer/name", case insensitive.
func (s *Store) FindProjectByName(ctx context.Context, name string) (*models.Project, error) {
	tx := s.DB(ctx).Preload("Customer").Joins("JOIN customers ON customers.id = projects.customer_id")
	projectName := name
	if i := strings.Index(name, "/"); i > 0 {
		tx = tx.Where("LOWER(customers.name) = ?", strings.ToLower(strings.TrimSpace(name[:i])))
		projectName = name[i+1:]
	}
	var found []models.Project
	err := tx.Where("LOWER(projects.name) = ?", strings.ToLower(strings.TrimSpace(projectName))).
		Limit(2).Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find project %q: %w", name, err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	case 1:
		return s.GetProject(ctx, found[0].ID)
	}
	return nil, invalid("project", "name %q is ambiguous, use customer/project", name)
}

func (s *Store) validateProject(ctx context.Context, p *models.Project) error {
	var v violations
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		v.add("name", "must not be empty")
	}
	if p.CustomerID == 0 {
		v.add("customer", "must be set")
	} else {
		var count int64
		if err := s.DB(ctx).Model(&models.Customer{}).Where("id = ?", p.CustomerID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check customer: %w", err)
		}
		if count == 0 {
			v.add("customer", "customer #%d does not exist", p.CustomerID)
		}
	}
	if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
		v.add("end", "must not be before the start date")
	}
	validateBudget(&v, p.Budget, p.TimeBudget, p.BudgetType)
	return v.err()
}

func ensureNoTimesheets(tx *gorm.DB, column string, id uint, what string) error {
	var count int64
	if err := tx.Model(&models.Timesheet{}).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count timesheets: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s #%d still has %d timesheets: %w", what, id, count, ErrConflict)
	}
	return nil
}
