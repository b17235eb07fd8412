package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/balkashynov/hourly/internal/models"
)

var metaOwners = map[string]interface{}{
	models.OwnerTimesheet: &models.Timesheet{},
	models.OwnerCustomer:  &models.Customer{},
	models.OwnerProject:   &models.Project{},
	models.OwnerActivity:  &models.Activity{},
	models.OwnerUser:      &models.User{},
}

// SetMeta creates or replaces the named meta field of an entity.
func (s *Store) SetMeta(ctx context.Context, ownerType string, ownerID uint, name, value string, visible bool) (*models.MetaField, error) {
	owner, ok := metaOwners[ownerType]
	if !ok {
		return nil, invalid("owner", "unknown owner type %q", ownerType)
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return nil, invalid("name", "must be between 1 and 50 characters")
	}

	var count int64
	if err := s.DB(ctx).Model(owner).Where("id = ?", ownerID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", ownerType, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%s #%d: %w", ownerType, ownerID, ErrNotFound)
	}

	field := models.MetaField{OwnerType: ownerType, OwnerID: ownerID, Name: name, Value: value, Visible: visible}
	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "visible"}),
	}).Create(&field).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save meta field %s: %w", name, err)
	}
	return &field, nil
}

// MetaFor loads the meta fields of the given entities, grouped by owner id.
func (s *Store) MetaFor(ctx context.Context, ownerType string, ownerIDs ...uint) (map[uint][]models.MetaField, error) {
	result := map[uint][]models.MetaField{}
	if len(ownerIDs) == 0 {
		return result, nil
	}
	var fields []models.MetaField
	err := s.DB(ctx).
		Where("owner_type = ? AND owner_id IN ?", ownerType, ownerIDs).
		Order("name ASC").
		Find(&fields).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load meta fields: %w", err)
	}
	for _, f := range fields {
		result[f.OwnerID] = append(result[f.OwnerID], f)
	}
	return result, nil
}

// VisibleMetaNames lists the distinct names of visible meta fields of an owner type.
func (s *Store) VisibleMetaNames(ctx context.Context, ownerType string) ([]string, error) {
	var names []string
	err := s.DB(ctx).Model(&models.MetaField{}).
		Where("owner_type = ? AND visible = ?", ownerType, true).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meta names: %w", err)
	}
	return names, nil
}

func deleteMeta(tx *gorm.DB, ownerType string, ownerID uint) error {
	if err := tx.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).Delete(&models.MetaField{}).Error; err != nil {
		return fmt.Errorf("failed to delete meta fields of %s #%d: %w", ownerType, ownerID, err)
	}
	return nil
}
