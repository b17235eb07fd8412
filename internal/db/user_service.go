package db

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

// ErrInvalidCredentials is returned for unknown users, wrong passwords and disabled accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateUserRequest holds the data needed to create a new user
type CreateUserRequest struct {
	Username     string
	Email        string
	Password     string
	Alias        string
	Title        string
	Roles        []string
	Timezone     string
	Language     string
	HourlyRate   float64
	InternalRate *float64
	// Weekly contract in seconds, Monday first. Nil means no contract.
	WorkingTime []int
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Email        *string
	Password     *string
	Alias        *string
	Title        *string
	Roles        []string
	Enabled      *bool
	Timezone     *string
	Language     *string
	HourlyRate   *float64
	InternalRate *float64
	WorkingTime  []int
}

// UserQuery filters the user list.
type UserQuery struct {
	BaseQuery
	Role string
	// UserIDs limits the list when not nil, used for team leads.
	UserIDs []uint
}

var userOrder = map[string]string{
	"id":       "users.id",
	"username": "users.username",
	"alias":    "users.alias",
	"email":    "users.email",
}

// CreateUser hashes the password and stores a new enabled user.
func (s *Store) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	var v violations
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 2 || len(req.Username) > 180 {
		v.add("username", "must be between 2 and 180 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		v.add("email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		v.add("password", "must be at least 8 characters")
	}
	validateTimezone(&v, req.Timezone)
	validateWorkingTime(&v, req.WorkingTime)
	if req.HourlyRate < 0 {
		v.add("hourly_rate", "must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		Alias:        req.Alias,
		Title:        req.Title,
		PasswordHash: string(hash),
		Enabled:      true,
		Timezone:     req.Timezone,
		Language:     req.Language,
		HourlyRate:   req.HourlyRate,
		InternalRate: req.InternalRate,
	}
	user.SetRoles(req.Roles)
	applyWorkingTime(&user, req.WorkingTime)

	if err := s.DB(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("username or email already taken: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetUser loads a user with team memberships, including the members of those teams.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB(ctx).
		Preload("Memberships.Team.Members").
		First(&user, id).Error
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// GetUserByName resolves a username.
func (s *Store) GetUserByName(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	return s.GetUser(ctx, user.ID)
}

// Authenticate checks username and password of an enabled user.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByName(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.dispatch(ctx, events.UserLogin, user.ID, user.ID, nil)
	return user, nil
}

// UpdateUser applies the set fields of req.
func (s *Store) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var v violations
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			v.add("email", "must be a valid email address")
		}
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			v.add("password", "must be at least 8 characters")
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
	}
	if req.Timezone != nil {
		validateTimezone(&v, *req.Timezone)
		user.Timezone = *req.Timezone
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			v.add("hourly_rate", "must not be negative")
		}
		user.HourlyRate = *req.HourlyRate
	}
	if req.InternalRate != nil {
		user.InternalRate = req.InternalRate
	}
	validateWorkingTime(&v, req.WorkingTime)
	if err := v.err(); err != nil {
		return nil, err
	}

	if req.Alias != nil {
		user.Alias = *req.Alias
	}
	if req.Title != nil {
		user.Title = *req.Title
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}
	if req.Roles != nil {
		user.SetRoles(req.Roles)
	}
	applyWorkingTime(user, req.WorkingTime)

	if err := s.DB(ctx).Omit("Memberships").Save(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("email already taken: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to update user #%d: %w", id, err)
	}
	return user, nil
}

// ListUsers returns one page of users. Visibility maps onto the enabled flag.
func (s *Store) ListUsers(ctx context.Context, q UserQuery) (Paginated[models.User], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.User{})
	tx = applyVisibility(tx, "users.enabled", q.Visibility)
	tx = applyTerm(tx, q.Term, "users.username", "users.alias", "users.email", "users.title")
	if q.Role != "" {
		tx = tx.Where("users.roles LIKE ?", "%"+strings.ToUpper(q.Role)+"%")
	}
	if q.UserIDs != nil {
		tx = tx.Where("users.id IN ?", append([]uint{0}, q.UserIDs...))
	}
	return paginate[models.User](tx, q.BaseQuery, userOrder, "users.username ASC", "Memberships")
}

// CountUsers is used by the CLI to bootstrap the first super admin.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func validateTimezone(v *violations, tz string) {
	if tz == "" {
		return
	}
	if _, err := time.LoadLocation(tz); err != nil {
		v.add("timezone", "unknown timezone %q", tz)
	}
}

func validateWorkingTime(v *violations, seconds []int) {
	if seconds == nil {
		return
	}
	if len(seconds) != 7 {
		v.add("working_time", "must list seven days, Monday first")
		return
	}
	for _, value := range seconds {
		if value < 0 || value > 24*3600 {
			v.add("working_time", "must be between 0 and 24 hours per day")
			return
		}
	}
}

func applyWorkingTime(u *models.User, seconds []int) {
	if len(seconds) != 7 {
		return
	}
	u.WorkMonday = seconds[0]
	u.WorkTuesday = seconds[1]
	u.WorkWednesday = seconds[2]
	u.WorkThursday = seconds[3]
	u.WorkFriday = seconds[4]
	u.WorkSaturday = seconds[5]
	u.WorkSunday = seconds[6]
}
