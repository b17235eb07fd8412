package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

// Visibility filters on the visible flag of customers, projects, activities and tags.
const (
	VisibilityVisible = "visible"
	VisibilityHidden  = "hidden"
	VisibilityBoth    = "both"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// BaseQuery holds paging, ordering and search options shared by all list queries.
type BaseQuery struct {
	Page       int
	PageSize   int
	OrderBy    string
	Order      string // ASC or DESC
	Term       string
	Visibility string

	// Viewer restricts results to what the user may see through team assignments.
	// Nil means unrestricted (CLI and internal callers).
	Viewer *models.User
}

func (q BaseQuery) normalized() BaseQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if strings.EqualFold(q.Order, "desc") {
		q.Order = "DESC"
	} else {
		q.Order = "ASC"
	}
	if q.Visibility == "" {
		q.Visibility = VisibilityVisible
	}
	return q
}

// Paginated is one page of a list query.
type Paginated[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int64
}

// TotalPages is at least one.
func (p Paginated[T]) TotalPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// paginate counts tx, then loads the requested page ordered by one of the allowed columns.
// Associations are preloaded for the page only.
func paginate[T any](tx *gorm.DB, q BaseQuery, orderColumns map[string]string, fallbackOrder string, preloads ...string) (Paginated[T], error) {
	q = q.normalized()
	result := Paginated[T]{Page: q.Page, PageSize: q.PageSize}

	if err := tx.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("failed to count: %w", err)
	}

	order := fallbackOrder
	if column, ok := orderColumns[q.OrderBy]; ok {
		order = column + " " + q.Order
	}

	for _, p := range preloads {
		tx = tx.Preload(p)
	}
	err := tx.Order(order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&result.Items).Error
	if err != nil {
		return result, fmt.Errorf("failed to list: %w", err)
	}
	return result, nil
}

func applyVisibility(tx *gorm.DB, column, visibility string) *gorm.DB {
	switch visibility {
	case VisibilityHidden:
		return tx.Where(column+" = ?", false)
	case VisibilityBoth:
		return tx
	default:
		return tx.Where(column+" = ?", true)
	}
}

func applyTerm(tx *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return tx
	}
	like := "%" + strings.ToLower(term) + "%"
	clauses := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, c := range columns {
		clauses = append(clauses, "LOWER("+c+") LIKE ?")
		args = append(args, like)
	}
	return tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

// teamRestriction renders "entity has no teams, or one of the viewer's teams".
// joinTable and key are the many2many table and its entity column, idColumn the
// qualified id of the entity in the outer query.
func teamRestriction(idColumn, joinTable, key string, teamIDs []uint) (string, []interface{}) {
	noTeams := fmt.Sprintf("%s NOT IN (SELECT %s FROM %s)", idColumn, key, joinTable)
	if len(teamIDs) == 0 {
		return noTeams, nil
	}
	return fmt.Sprintf("(%s OR %s IN (SELECT %s FROM %s WHERE team_id IN ?))", noTeams, idColumn, key, joinTable),
		[]interface{}{teamIDs}
}

func restrictToViewer(tx *gorm.DB, viewer *models.User, idColumn, joinTable, key string) *gorm.DB {
	if viewer == nil || permissions.IsAdmin(*viewer) {
		return tx
	}
	clause, args := teamRestriction(idColumn, joinTable, key, permissions.TeamIDs(*viewer))
	return tx.Where(clause, args...)
}
