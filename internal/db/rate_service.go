package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
)

var rateOwners = map[string]interface{}{
	models.OwnerCustomer: &models.Customer{},
	models.OwnerProject:  &models.Project{},
	models.OwnerActivity: &models.Activity{},
}

// AddRate stores a rate for a customer, project or activity. There is at most one
// rate per owner and user, an existing one is replaced.
func (s *Store) AddRate(ctx context.Context, rate *models.Rate) error {
	owner, ok := rateOwners[rate.Kind]
	if !ok {
		return invalid("kind", "must be customer, project or activity")
	}
	var v violations
	if rate.Rate < 0 {
		v.add("rate", "must not be negative")
	}
	if rate.InternalRate != nil && *rate.InternalRate < 0 {
		v.add("internal_rate", "must not be negative")
	}
	if err := v.err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(owner).Where("id = ?", rate.OwnerID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check %s: %w", rate.Kind, err)
		}
		if count == 0 {
			return fmt.Errorf("%s #%d: %w", rate.Kind, rate.OwnerID, ErrNotFound)
		}

		existing := tx.Where("kind = ? AND owner_id = ?", rate.Kind, rate.OwnerID)
		if rate.UserID == nil {
			existing = existing.Where("user_id IS NULL")
		} else {
			existing = existing.Where("user_id = ?", *rate.UserID)
		}
		if err := existing.Delete(&models.Rate{}).Error; err != nil {
			return fmt.Errorf("failed to replace rate: %w", err)
		}
		rate.ID = 0
		if err := tx.Create(rate).Error; err != nil {
			return fmt.Errorf("failed to create rate: %w", err)
		}
		return nil
	})
}

// ListRates returns the rates of one owner.
func (s *Store) ListRates(ctx context.Context, kind string, ownerID uint) ([]models.Rate, error) {
	var list []models.Rate
	err := s.DB(ctx).Where("kind = ? AND owner_id = ?", kind, ownerID).Order("id ASC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	return list, nil
}

// DeleteRate removes a rate that belongs to the given owner.
func (s *Store) DeleteRate(ctx context.Context, kind string, ownerID, rateID uint) error {
	res := s.DB(ctx).Where("kind = ? AND owner_id = ?", kind, ownerID).Delete(&models.Rate{}, rateID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete rate #%d: %w", rateID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rate #%d: %w", rateID, ErrNotFound)
	}
	return nil
}

// ratesForRecord collects the customer, project and activity rates relevant to a record.
func ratesForRecord(tx *gorm.DB, customerID, projectID, activityID uint) ([]models.Rate, error) {
	var list []models.Rate
	err := tx.Where(
		"(kind = ? AND owner_id = ?) OR (kind = ? AND owner_id = ?) OR (kind = ? AND owner_id = ?)",
		models.OwnerCustomer, customerID,
		models.OwnerProject, projectID,
		models.OwnerActivity, activityID,
	).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}
	return list, nil
}

func deleteRates(tx *gorm.DB, kind string, ownerID uint) error {
	if err := tx.Where("kind = ? AND owner_id = ?", kind, ownerID).Delete(&models.Rate{}).Error; err != nil {
		return fmt.Errorf("failed to delete rates of %s #%d: %w", kind, ownerID, err)
	}
	return nil
}
