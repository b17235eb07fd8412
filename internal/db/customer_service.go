package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
)

// CustomerQuery filters the customer list.
type CustomerQuery struct {
	BaseQuery
}

var customerOrder = map[string]string{
	"id":     "customers.id",
	"name":   "customers.name",
	"number": "customers.number",
}

// CreateCustomer validates and stores a new customer.
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	if err := s.DB(ctx).Create(customer).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetCustomer loads a customer with teams and meta fields.
func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := s.DB(ctx).Preload("Teams").Preload("Meta").First(&customer, id).Error
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	return &customer, nil
}

// UpdateCustomer saves all columns of an existing customer.
func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	err := s.DB(ctx).Omit("Teams", "Meta").Save(customer).Error
	if err != nil {
		return fmt.Errorf("failed to update customer #%d: %w", customer.ID, err)
	}
	return nil
}

// DeleteCustomer removes a customer without projects.
func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projects int64
		if err := tx.Model(&models.Project{}).Where("customer_id = ?", id).Count(&projects).Error; err != nil {
			return fmt.Errorf("failed to count projects: %w", err)
		}
		if projects > 0 {
			return fmt.Errorf("customer #%d still has %d projects: %w", id, projects, ErrConflict)
		}
		customer := models.Customer{ID: id}
		if err := tx.Model(&customer).Association("Teams").Clear(); err != nil {
			return fmt.Errorf("failed to detach teams: %w", err)
		}
		if err := deleteMeta(tx, models.OwnerCustomer, id); err != nil {
			return err
		}
		if err := deleteRates(tx, models.OwnerCustomer, id); err != nil {
			return err
		}
		res := tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete customer #%d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("customer #%d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListCustomers returns one page of customers.
func (s *Store) ListCustomers(ctx context.Context, q CustomerQuery) (Paginated[models.Customer], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Customer{})
	tx = applyVisibility(tx, "customers.visible", q.Visibility)
	tx = applyTerm(tx, q.Term, "customers.name", "customers.number", "customers.company", "customers.comment")
	tx = restrictToViewer(tx, q.Viewer, "customers.id", "customer_teams", "customer_id")
	return paginate[models.Customer](tx, q.BaseQuery, customerOrder, "customers.name ASC", "Teams")
}

// FindCustomerByName is used by the CLI to resolve names.
func (s *Store) FindCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	var customer models.Customer
	err := s.DB(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer %q: %w", name, err)
	}
	return &customer, nil
}

func validateCustomer(c *models.Customer) error {
	var v violations
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		v.add("name", "must not be empty")
	}
	if len(c.Name) > 150 {
		v.add("name", "must not be longer than 150 characters")
	}
	if c.Country != "" && len(c.Country) != 2 {
		v.add("country", "must be a two letter country code")
	}
	if c.Currency != "" && len(c.Currency) != 3 {
		v.add("currency", "must be a three letter currency code")
	}
	validateBudget(&v, c.Budget, c.TimeBudget, c.BudgetType)
	return v.err()
}

func validateBudget(v *violations, budget float64, timeBudget int, budgetType string) {
	if budget < 0 {
		v.add("budget", "must not be negative")
	}
	if timeBudget < 0 {
		v.add("time_budget", "must not be negative")
	}
	if budgetType != models.BudgetTypeFull && budgetType != models.BudgetTypeMonth {
		v.add("budget_type", "must be empty or %q", models.BudgetTypeMonth)
	}
}
