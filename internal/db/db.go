package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/logger"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/rates"
	"github.com/balkashynov/hourly/internal/rounding"
)

// Options carries the timesheet rules applied by the store.
type Options struct {
	HardLimit int
	Rounder   *rounding.Rounder
	Rates     *rates.Calculator
	Events    *events.Dispatcher
	Log       *logger.Logger
	Now       func() time.Time
}

// OptionsFromConfig builds the timesheet rules from configuration.
func OptionsFromConfig(cfg config.Config, dispatcher *events.Dispatcher, log *logger.Logger) Options {
	return Options{
		HardLimit: cfg.Timesheet.ActiveEntries.HardLimit,
		Rounder:   rounding.New(cfg.Timesheet.Rounding),
		Rates:     rates.NewCalculator(cfg.Timesheet.Rates),
		Events:    dispatcher,
		Log:       log,
	}
}

// Store is the gorm backed persistence layer.
type Store struct {
	db        *gorm.DB
	hardLimit int
	rounder   *rounding.Rounder
	rates     *rates.Calculator
	events    *events.Dispatcher
	log       *logger.Logger
	now       func() time.Time
}

// Open sets up the database connection and runs migrations
func Open(cfg config.Database, opts Options) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logMode := gormlogger.Silent // quiet by default
	if cfg.Debug {
		logMode = gormlogger.Info
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(gdb); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewStore(gdb, opts), nil
}

// NewStore wraps an already migrated connection.
func NewStore(gdb *gorm.DB, opts Options) *Store {
	s := &Store{
		db:        gdb,
		hardLimit: opts.HardLimit,
		rounder:   opts.Rounder,
		rates:     opts.Rates,
		events:    opts.Events,
		log:       opts.Log,
		now:       opts.Now,
	}
	if s.hardLimit < 1 {
		s.hardLimit = 1
	}
	if s.rounder == nil {
		s.rounder = rounding.New(nil)
	}
	if s.rates == nil {
		s.rates = rates.NewCalculator(nil)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		// Ensure the directory exists
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// foreign keys are off by default in sqlite
		return sqlite.Open(cfg.Path + "?_pragma=foreign_keys(1)"), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// runMigrations creates/updates the database schema
func runMigrations(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Customer{},
		&models.Project{},
		&models.Activity{},
		&models.Tag{},
		&models.Timesheet{},
		&models.TimesheetTag{},
		&models.MetaField{},
		&models.Rate{},
		&models.InvoiceTemplate{},
		&models.Invoice{},
		&models.InvoiceItem{},
	)
}

// DB exposes the underlying handle, bound to ctx.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Now returns the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) dispatch(ctx context.Context, name string, userID, entityID uint, payload interface{}) {
	s.events.Dispatch(ctx, events.New(name, userID, entityID, payload))
}
