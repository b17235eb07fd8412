package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
)

// TagQuery filters the tag list.
type TagQuery struct {
	BaseQuery
}

var tagOrder = map[string]string{
	"id":   "tags.id",
	"name": "tags.name",
}

// FindOrCreateTags finds existing tags or creates new ones
func (s *Store) FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	return findOrCreateTags(s.DB(ctx), names)
}

func findOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	seen := map[string]bool{}

	for _, name := range names {
		name = normalizeTag(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if len(name) > 100 {
			return nil, invalid("tags", "tag %q is longer than 100 characters", name)
		}

		var tag models.Tag

		// Try to find existing tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Tag doesn't exist, create it
			tag = models.Tag{Name: name, Visible: true}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to load tag %q: %w", name, err)
		}

		tags = append(tags, tag)
	}

	return tags, nil
}

// normalizeTag trims whitespace and a leading #.
func normalizeTag(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

// CreateTag stores a single tag, failing for duplicates.
func (s *Store) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	var v violations
	name = normalizeTag(name)
	if name == "" || len(name) > 100 {
		v.add("name", "must be between 1 and 100 characters")
	}
	if color != "" && !colorPattern.MatchString(color) {
		v.add("color", "must be a hex color like #a1b2c3")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	tag := models.Tag{Name: name, Color: color, Visible: true}
	if err := s.DB(ctx).Create(&tag).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("tag %q already exists: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &tag, nil
}

// ListTags returns one page of tags.
func (s *Store) ListTags(ctx context.Context, q TagQuery) (Paginated[models.Tag], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Tag{})
	tx = applyVisibility(tx, "tags.visible", q.Visibility)
	tx = applyTerm(tx, q.Term, "tags.name")
	return paginate[models.Tag](tx, q.BaseQuery, tagOrder, "tags.name ASC")
}

// DeleteTag removes the tag from all timesheets and deletes it.
func (s *Store) DeleteTag(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.TimesheetTag{}).Error; err != nil {
			return fmt.Errorf("failed to detach tag #%d: %w", id, err)
		}
		res := tx.Delete(&models.Tag{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete tag #%d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("tag #%d: %w", id, ErrNotFound)
		}
		return nil
	})
}
