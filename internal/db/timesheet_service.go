package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/rates"
)

// StartRequest holds the data needed to start a running timesheet
type StartRequest struct {
	UserID      uint
	ProjectID   uint
	ActivityID  uint
	Description string
	Tags        []string
	Category    string
	Billable    *bool
	HourlyRate  *float64
	FixedRate   *float64
	Begin       *time.Time // defaults to now
}

// CreateTimesheetRequest records a finished entry. End wins over Duration.
type CreateTimesheetRequest struct {
	UserID      uint
	ProjectID   uint
	ActivityID  uint
	Begin       time.Time
	End         *time.Time
	Duration    int // seconds
	Description string
	Tags        []string
	Category    string
	Billable    *bool
	Exported    bool
	HourlyRate  *float64
	FixedRate   *float64
}

// UpdateTimesheetRequest changes only the fields that are set. Tags replace
// the current tags when not nil.
type UpdateTimesheetRequest struct {
	UserID      *uint
	ProjectID   *uint
	ActivityID  *uint
	Begin       *time.Time
	End         *time.Time
	Duration    *int
	Description *string
	Tags        []string
	Category    *string
	Billable    *bool
	Exported    *bool
	HourlyRate  *float64
	FixedRate   *float64
}

// Timesheet states for TimesheetQuery.State.
const (
	StateAll     = ""
	StateRunning = "running"
	StateStopped = "stopped"
)

// Tri-state filters for TimesheetQuery.Exported and Billable.
const (
	FilterAll = ""
	FilterYes = "yes"
	FilterNo  = "no"
)

// TimesheetQuery filters timesheet lists, exports and invoices.
type TimesheetQuery struct {
	BaseQuery
	// UserIDs limits the owners when not nil. An empty non nil slice matches nothing.
	UserIDs     []uint
	CustomerIDs []uint
	ProjectIDs  []uint
	ActivityIDs []uint
	Tags        []string
	Begin       *time.Time // records beginning at or after
	End         *time.Time // records beginning at or before
	State       string
	Exported    string
	Billable    string
	Category    string
}

var timesheetOrder = map[string]string{
	"id":          "timesheets.id",
	"begin":       "timesheets.start_time",
	"end":         "timesheets.end_time",
	"duration":    "timesheets.duration",
	"rate":        "timesheets.rate",
	"description": "timesheets.description",
	"customer":    "customers.name",
	"project":     "projects.name",
	"activity":    "activities.name",
	"user":        "users.username",
}

var timesheetPreloads = []string{"User", "Project", "Project.Customer", "Activity", "Tags", "Meta"}

// Start starts a new running record. When the user already runs as many
// records as the hard limit allows, the oldest ones are stopped first.
func (s *Store) Start(ctx context.Context, req StartRequest) (*models.Timesheet, error) {
	begin := s.now()
	if req.Begin != nil {
		begin = *req.Begin
	}

	var (
		record  models.Timesheet
		stopped []models.Timesheet
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, project, activity, err := s.recordContext(tx, req.UserID, req.ProjectID, req.ActivityID)
		if err != nil {
			return err
		}
		if err := validateRecord(user, project, activity, req.Category, begin, nil, true); err != nil {
			return err
		}

		var running []models.Timesheet
		err = preloadTimesheet(tx).
			Where("user_id = ? AND end_time IS NULL", user.ID).
			Order("start_time ASC").
			Find(&running).Error
		if err != nil {
			return fmt.Errorf("failed to load active records: %w", err)
		}
		for i := 0; i <= len(running)-s.hardLimit; i++ {
			ts := running[i]
			end := s.now()
			if end.Before(ts.Begin) {
				end = ts.Begin
			}
			ts.End = &end
			if err := s.finish(tx, &ts); err != nil {
				return err
			}
			if err := tx.Omit(omitTimesheetAssociations...).Save(&ts).Error; err != nil {
				return fmt.Errorf("failed to stop record #%d: %w", ts.ID, err)
			}
			stopped = append(stopped, ts)
		}

		record = models.Timesheet{
			UserID:      user.ID,
			ProjectID:   project.ID,
			ActivityID:  activity.ID,
			Begin:       begin,
			Description: strings.TrimSpace(req.Description),
			Category:    categoryOrDefault(req.Category),
			HourlyRate:  req.HourlyRate,
			FixedRate:   req.FixedRate,
		}
		record.Billable = defaultBillable(record.Category, project, activity)
		if req.Billable != nil {
			record.Billable = *req.Billable
		}
		return s.insertRecord(tx, &record, req.Tags)
	})
	if err != nil {
		return nil, err
	}

	for _, ts := range stopped {
		s.dispatch(ctx, events.TimesheetStopped, ts.UserID, ts.ID, ts)
	}
	loaded, err := s.GetTimesheet(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, events.TimesheetStarted, loaded.UserID, loaded.ID, loaded)
	return loaded, nil
}

// Stop ends a running record at the given time, rounds it and calculates its rates.
func (s *Store) Stop(ctx context.Context, id uint, at time.Time) (*models.Timesheet, error) {
	var record models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := preloadTimesheet(tx).First(&record, id).Error; err != nil {
			return notFound(err, "timesheet", id)
		}
		if !record.IsRunning() {
			return invalid("end", "timesheet #%d is already stopped", id)
		}
		if at.Before(record.Begin) {
			return invalid("end", "must not be before the begin")
		}
		record.End = &at
		if err := s.finish(tx, &record); err != nil {
			return err
		}
		if err := tx.Omit(omitTimesheetAssociations...).Save(&record).Error; err != nil {
			return fmt.Errorf("failed to stop record #%d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, events.TimesheetStopped, record.UserID, record.ID, record)
	return &record, nil
}

// StopActive stops all running records of a user.
func (s *Store) StopActive(ctx context.Context, userID uint, at time.Time) ([]models.Timesheet, error) {
	active, err := s.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	var stopped []models.Timesheet
	for _, ts := range active {
		end := at
		if end.Before(ts.Begin) {
			end = ts.Begin
		}
		done, err := s.Stop(ctx, ts.ID, end)
		if err != nil {
			return stopped, err
		}
		stopped = append(stopped, *done)
	}
	return stopped, nil
}

// CreateTimesheet records a finished entry.
func (s *Store) CreateTimesheet(ctx context.Context, req CreateTimesheetRequest) (*models.Timesheet, error) {
	end := req.End
	if end == nil {
		if req.Duration <= 0 {
			return nil, invalid("end", "either end or a positive duration is required")
		}
		e := req.Begin.Add(time.Duration(req.Duration) * time.Second)
		end = &e
	}

	var record models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, project, activity, err := s.recordContext(tx, req.UserID, req.ProjectID, req.ActivityID)
		if err != nil {
			return err
		}
		if err := validateRecord(user, project, activity, req.Category, req.Begin, end, true); err != nil {
			return err
		}

		record = models.Timesheet{
			UserID:      user.ID,
			ProjectID:   project.ID,
			ActivityID:  activity.ID,
			Begin:       req.Begin,
			End:         end,
			Description: strings.TrimSpace(req.Description),
			Category:    categoryOrDefault(req.Category),
			Exported:    req.Exported,
			HourlyRate:  req.HourlyRate,
			FixedRate:   req.FixedRate,
			User:        *user,
			Project:     *project,
			Activity:    *activity,
		}
		record.Billable = defaultBillable(record.Category, project, activity)
		if req.Billable != nil {
			record.Billable = *req.Billable
		}
		if err := s.finish(tx, &record); err != nil {
			return err
		}
		return s.insertRecord(tx, &record, req.Tags)
	})
	if err != nil {
		return nil, err
	}
	loaded, err := s.GetTimesheet(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, events.TimesheetCreated, loaded.UserID, loaded.ID, loaded)
	return loaded, nil
}

// UpdateTimesheet applies the set fields. Finished records are rounded and priced again.
func (s *Store) UpdateTimesheet(ctx context.Context, id uint, req UpdateTimesheetRequest) (*models.Timesheet, error) {
	var record models.Timesheet
	var wasRunning bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := preloadTimesheet(tx).First(&record, id).Error; err != nil {
			return notFound(err, "timesheet", id)
		}
		wasRunning = record.IsRunning()

		userID, projectID, activityID := record.UserID, record.ProjectID, record.ActivityID
		if req.UserID != nil {
			userID = *req.UserID
		}
		if req.ProjectID != nil {
			projectID = *req.ProjectID
		}
		if req.ActivityID != nil {
			activityID = *req.ActivityID
		}
		moved := userID != record.UserID || projectID != record.ProjectID || activityID != record.ActivityID

		user, project, activity, err := s.recordContext(tx, userID, projectID, activityID)
		if err != nil {
			return err
		}

		if req.Begin != nil {
			record.Begin = *req.Begin
		}
		switch {
		case req.End != nil:
			record.End = req.End
		case req.Duration != nil && !record.IsRunning():
			end := record.Begin.Add(time.Duration(*req.Duration) * time.Second)
			record.End = &end
		case req.Begin != nil && !record.IsRunning():
			end := record.Begin.Add(time.Duration(record.Duration) * time.Second)
			record.End = &end
		}
		if req.Description != nil {
			record.Description = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			record.Category = categoryOrDefault(*req.Category)
		}
		if req.Billable != nil {
			record.Billable = *req.Billable
		}
		if req.Exported != nil {
			record.Exported = *req.Exported
		}
		// moved records are priced from scratch unless rates are given
		if moved && req.HourlyRate == nil && req.FixedRate == nil {
			record.HourlyRate = nil
			record.FixedRate = nil
		}
		if req.HourlyRate != nil {
			record.HourlyRate = req.HourlyRate
			record.FixedRate = nil
		}
		if req.FixedRate != nil {
			record.FixedRate = req.FixedRate
		}

		if err := validateRecord(user, project, activity, record.Category, record.Begin, record.End, moved); err != nil {
			return err
		}
		record.UserID, record.ProjectID, record.ActivityID = user.ID, project.ID, activity.ID
		record.User, record.Project, record.Activity = *user, *project, *activity

		if !record.IsRunning() {
			if err := s.finish(tx, &record); err != nil {
				return err
			}
		}
		if err := tx.Omit(omitTimesheetAssociations...).Save(&record).Error; err != nil {
			return fmt.Errorf("failed to update record #%d: %w", id, err)
		}
		if req.Tags != nil {
			return replaceTags(tx, &record, req.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	loaded, err := s.GetTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	if wasRunning && !loaded.IsRunning() {
		s.dispatch(ctx, events.TimesheetStopped, loaded.UserID, loaded.ID, loaded)
	}
	s.dispatch(ctx, events.TimesheetUpdated, loaded.UserID, loaded.ID, loaded)
	return loaded, nil
}

// DeleteTimesheet removes a record with its tags and meta fields.
func (s *Store) DeleteTimesheet(ctx context.Context, id uint) error {
	var record models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			return notFound(err, "timesheet", id)
		}
		if err := tx.Model(&record).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to detach tags: %w", err)
		}
		if err := tx.Exec("DELETE FROM invoice_timesheets WHERE timesheet_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach invoices: %w", err)
		}
		if err := deleteMeta(tx, models.OwnerTimesheet, id); err != nil {
			return err
		}
		if err := tx.Delete(&models.Timesheet{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete record #%d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, events.TimesheetDeleted, record.UserID, record.ID, record)
	return nil
}

// Restart starts a new record with project, activity, description and tags of an existing one.
func (s *Store) Restart(ctx context.Context, id, userID uint, at time.Time) (*models.Timesheet, error) {
	source, err := s.GetTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Start(ctx, StartRequest{
		UserID:      userID,
		ProjectID:   source.ProjectID,
		ActivityID:  source.ActivityID,
		Description: source.Description,
		Tags:        source.TagNames(),
		Category:    source.Category,
		Begin:       &at,
	})
}

// Duplicate copies a finished record, including rates and tags. The copy is not exported.
func (s *Store) Duplicate(ctx context.Context, id uint) (*models.Timesheet, error) {
	source, err := s.GetTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.IsRunning() {
		return nil, invalid("end", "running records cannot be duplicated")
	}
	billable := source.Billable
	return s.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID:      source.UserID,
		ProjectID:   source.ProjectID,
		ActivityID:  source.ActivityID,
		Begin:       source.Begin,
		End:         source.End,
		Description: source.Description,
		Tags:        source.TagNames(),
		Category:    source.Category,
		Billable:    &billable,
		HourlyRate:  source.HourlyRate,
		FixedRate:   source.FixedRate,
	})
}

// ToggleExported flips the exported flag.
func (s *Store) ToggleExported(ctx context.Context, id uint) (*models.Timesheet, error) {
	record, err := s.GetTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.DB(ctx).Model(&models.Timesheet{}).Where("id = ?", id).Update("exported", !record.Exported).Error
	if err != nil {
		return nil, fmt.Errorf("failed to toggle export state of #%d: %w", id, err)
	}
	record.Exported = !record.Exported
	s.dispatch(ctx, events.TimesheetUpdated, record.UserID, record.ID, record)
	return record, nil
}

// MarkExported flags all given records as exported.
func (s *Store) MarkExported(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.DB(ctx).Model(&models.Timesheet{}).Where("id IN ?", ids).Update("exported", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark records as exported: %w", err)
	}
	return nil
}

// GetTimesheet loads a record with all relations.
func (s *Store) GetTimesheet(ctx context.Context, id uint) (*models.Timesheet, error) {
	var record models.Timesheet
	if err := preloadTimesheet(s.DB(ctx)).First(&record, id).Error; err != nil {
		return nil, notFound(err, "timesheet", id)
	}
	return &record, nil
}

// CountRunning counts the running records of all users.
func (s *Store) CountRunning(ctx context.Context) (int64, error) {
	var n int64
	if err := s.DB(ctx).Model(&models.Timesheet{}).Where("end_time IS NULL").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count running records: %w", err)
	}
	return n, nil
}

// Active returns the running records of a user, newest first.
func (s *Store) Active(ctx context.Context, userID uint) ([]models.Timesheet, error) {
	var list []models.Timesheet
	err := preloadTimesheet(s.DB(ctx)).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active records: %w", err)
	}
	return list, nil
}

// Recent returns the latest record of each distinct project and activity
// combination the user worked on, newest first.
func (s *Store) Recent(ctx context.Context, userID uint, limit int) ([]models.Timesheet, error) {
	if limit <= 0 {
		limit = 10
	}
	var ids []uint
	err := s.DB(ctx).Model(&models.Timesheet{}).
		Select("MAX(id)").
		Where("user_id = ?", userID).
		Group("project_id, activity_id").
		Order("MAX(start_time) DESC").
		Limit(limit).
		Pluck("MAX(id)", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activities: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var list []models.Timesheet
	err = preloadTimesheet(s.DB(ctx)).Where("id IN ?", ids).Order("start_time DESC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent records: %w", err)
	}
	return list, nil
}

// ListTimesheets returns one page of records.
func (s *Store) ListTimesheets(ctx context.Context, q TimesheetQuery) (Paginated[models.Timesheet], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := filterTimesheets(s.DB(ctx).Model(&models.Timesheet{}), q)
	return paginate[models.Timesheet](tx, q.BaseQuery, timesheetOrder, "timesheets.start_time DESC", timesheetPreloads...)
}

// FindTimesheets returns every matching record ordered by begin, for exports and invoices.
func (s *Store) FindTimesheets(ctx context.Context, q TimesheetQuery) ([]models.Timesheet, error) {
	var list []models.Timesheet
	tx := filterTimesheets(s.DB(ctx).Model(&models.Timesheet{}), q)
	for _, p := range timesheetPreloads {
		tx = tx.Preload(p)
	}
	if err := tx.Order("timesheets.start_time ASC, timesheets.id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	return list, nil
}

// TimesheetSums aggregates durations and rates of matching records.
type TimesheetSums struct {
	Count            int64
	Duration         int64
	Rate             float64
	InternalRate     float64
	BillableDuration int64
	BillableRate     float64
}

// SumTimesheets aggregates the stopped records matching q.
func (s *Store) SumTimesheets(ctx context.Context, q TimesheetQuery) (TimesheetSums, error) {
	var sums TimesheetSums
	q.State = StateStopped
	err := filterTimesheets(s.DB(ctx).Model(&models.Timesheet{}), q).
		Select(`COUNT(timesheets.id) AS count,
			COALESCE(SUM(timesheets.duration), 0) AS duration,
			COALESCE(SUM(timesheets.rate), 0) AS rate,
			COALESCE(SUM(timesheets.internal_rate), 0) AS internal_rate,
			COALESCE(SUM(CASE WHEN timesheets.billable THEN timesheets.duration ELSE 0 END), 0) AS billable_duration,
			COALESCE(SUM(CASE WHEN timesheets.billable THEN timesheets.rate ELSE 0 END), 0) AS billable_rate`).
		Scan(&sums).Error
	if err != nil {
		return sums, fmt.Errorf("failed to sum records: %w", err)
	}
	return sums, nil
}

func filterTimesheets(tx *gorm.DB, q TimesheetQuery) *gorm.DB {
	tx = tx.
		Joins("JOIN projects ON projects.id = timesheets.project_id").
		Joins("JOIN customers ON customers.id = projects.customer_id").
		Joins("JOIN activities ON activities.id = timesheets.activity_id").
		Joins("JOIN users ON users.id = timesheets.user_id")

	if q.UserIDs != nil {
		tx = tx.Where("timesheets.user_id IN ?", append([]uint{0}, q.UserIDs...))
	}
	if len(q.CustomerIDs) > 0 {
		tx = tx.Where("projects.customer_id IN ?", q.CustomerIDs)
	}
	if len(q.ProjectIDs) > 0 {
		tx = tx.Where("timesheets.project_id IN ?", q.ProjectIDs)
	}
	if len(q.ActivityIDs) > 0 {
		tx = tx.Where("timesheets.activity_id IN ?", q.ActivityIDs)
	}
	if len(q.Tags) > 0 {
		names := make([]string, 0, len(q.Tags))
		for _, t := range q.Tags {
			names = append(names, normalizeTag(t))
		}
		tx = tx.Where(`timesheets.id IN (SELECT timesheet_tags.timesheet_id FROM timesheet_tags
			JOIN tags ON tags.id = timesheet_tags.tag_id WHERE tags.name IN ?)`, names)
	}
	if q.Begin != nil {
		tx = tx.Where("timesheets.start_time >= ?", *q.Begin)
	}
	if q.End != nil {
		tx = tx.Where("timesheets.start_time <= ?", *q.End)
	}
	switch q.State {
	case StateRunning:
		tx = tx.Where("timesheets.end_time IS NULL")
	case StateStopped:
		tx = tx.Where("timesheets.end_time IS NOT NULL")
	}
	switch q.Exported {
	case FilterYes:
		tx = tx.Where("timesheets.exported = ?", true)
	case FilterNo:
		tx = tx.Where("timesheets.exported = ?", false)
	}
	switch q.Billable {
	case FilterYes:
		tx = tx.Where("timesheets.billable = ?", true)
	case FilterNo:
		tx = tx.Where("timesheets.billable = ?", false)
	}
	if q.Category != "" {
		tx = tx.Where("timesheets.category = ?", q.Category)
	}
	tx = applyTerm(tx, q.Term, "timesheets.description")
	tx = restrictToViewer(tx, q.Viewer, "timesheets.project_id", "project_teams", "project_id")
	tx = restrictToViewer(tx, q.Viewer, "projects.customer_id", "customer_teams", "customer_id")
	return tx
}

var omitTimesheetAssociations = []string{"User", "Project", "Activity", "Tags", "Meta"}

func preloadTimesheet(tx *gorm.DB) *gorm.DB {
	for _, p := range timesheetPreloads {
		tx = tx.Preload(p)
	}
	return tx
}

func (s *Store) insertRecord(tx *gorm.DB, record *models.Timesheet, tags []string) error {
	if err := tx.Omit(omitTimesheetAssociations...).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	if len(tags) > 0 {
		return replaceTags(tx, record, tags)
	}
	return nil
}

func replaceTags(tx *gorm.DB, record *models.Timesheet, names []string) error {
	tags, err := findOrCreateTags(tx, names)
	if err != nil {
		return err
	}
	if err := tx.Model(record).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	record.Tags = tags
	return nil
}

// recordContext loads user, project (with customer) and activity of a record.
func (s *Store) recordContext(tx *gorm.DB, userID, projectID, activityID uint) (*models.User, *models.Project, *models.Activity, error) {
	var (
		user     models.User
		project  models.Project
		activity models.Activity
		v        violations
	)
	if err := tx.First(&user, userID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("failed to load user: %w", err)
		}
		v.add("user", "user #%d does not exist", userID)
	}
	if err := tx.Preload("Customer").First(&project, projectID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("failed to load project: %w", err)
		}
		v.add("project", "project #%d does not exist", projectID)
	}
	if err := tx.First(&activity, activityID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("failed to load activity: %w", err)
		}
		v.add("activity", "activity #%d does not exist", activityID)
	}
	if err := v.err(); err != nil {
		return nil, nil, nil, err
	}
	return &user, &project, &activity, nil
}

// validateRecord checks the business rules of a record. Visibility and project
// dates are only checked for new or moved records, so old entries stay editable.
func validateRecord(user *models.User, project *models.Project, activity *models.Activity, category string, begin time.Time, end *time.Time, strict bool) error {
	var v violations
	if !user.Enabled {
		v.add("user", "user %s is disabled", user.Username)
	}
	if activity.ProjectID != nil && *activity.ProjectID != project.ID {
		v.add("activity", "activity %q does not belong to project %q", activity.Name, project.Name)
	}
	if activity.ProjectID == nil && !project.GlobalActivities {
		v.add("activity", "project %q does not allow global activities", project.Name)
	}
	if category != "" && !validCategory(category) {
		v.add("category", "must be one of %s", strings.Join(models.Categories, ", "))
	}
	if begin.IsZero() {
		v.add("begin", "must be set")
	}
	if end != nil && end.Before(begin) {
		v.add("end", "must not be before the begin")
	}
	if strict {
		if !project.Customer.Visible {
			v.add("customer", "customer %q is hidden", project.Customer.Name)
		}
		if !project.Visible {
			v.add("project", "project %q is hidden", project.Name)
		}
		if !activity.Visible {
			v.add("activity", "activity %q is hidden", activity.Name)
		}
		if project.EndedBefore(begin) {
			v.add("project", "project %q has ended", project.Name)
		}
		if project.StartsAfter(begin) {
			v.add("project", "project %q has not started yet", project.Name)
		}
	}
	return v.err()
}

func validCategory(category string) bool {
	for _, c := range models.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func categoryOrDefault(category string) string {
	if category == "" {
		return models.CategoryWork
	}
	return category
}

// defaultBillable is true for work on billable customers, projects and activities.
func defaultBillable(category string, project *models.Project, activity *models.Activity) bool {
	return category == models.CategoryWork && project.Customer.Billable && project.Billable && activity.Billable
}

// finish rounds a stopped record and calculates its rates. The record's user
// and project must be loaded.
func (s *Store) finish(tx *gorm.DB, record *models.Timesheet) error {
	if record.User.ID == 0 {
		if err := tx.First(&record.User, record.UserID).Error; err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
	}

	// Weekday rules and rounding to midnight follow the user's wall clock.
	stored := record.Begin.Location()
	local := record.User.Location()
	rounded := s.rounder.Apply(record.Begin.In(local), record.End.In(local))
	record.Begin = rounded.Begin.In(stored)
	end := rounded.End.In(stored)
	record.End = &end
	record.Duration = rounded.Duration

	if record.Project.ID == 0 {
		if err := tx.First(&record.Project, record.ProjectID).Error; err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
	}
	configured, err := ratesForRecord(tx, record.Project.CustomerID, record.ProjectID, record.ActivityID)
	if err != nil {
		return err
	}
	res := s.rates.Calculate(rates.Input{
		Begin:      rounded.Begin,
		Duration:   record.Duration,
		HourlyRate: record.HourlyRate,
		FixedRate:  record.FixedRate,
		User:       record.User,
		Rates:      configured,
	})
	record.Rate = res.Rate
	record.InternalRate = res.InternalRate
	record.HourlyRate = res.HourlyRate
	record.FixedRate = res.FixedRate
	return nil
}
