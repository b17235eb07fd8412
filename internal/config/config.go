// Package config loads the hourly configuration from a YAML file, a .env file and
// HOURLY_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Server      Server      `yaml:"server"`
	Database    Database    `yaml:"database"`
	Log         Log         `yaml:"log"`
	Auth        Auth        `yaml:"auth"`
	Timesheet   Timesheet   `yaml:"timesheet"`
	Invoice     Invoice     `yaml:"invoice"`
	Export      Export      `yaml:"export"`
	Events      Events      `yaml:"events"`
	Permissions Permissions `yaml:"permissions"`
	Currency    string      `yaml:"currency"`
}

type Server struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Database selects the gorm dialector. Path is used by sqlite, DSN by mysql and postgres.
type Database struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type Auth struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type Timesheet struct {
	ActiveEntries ActiveEntries  `yaml:"active_entries"`
	Rounding      []RoundingRule `yaml:"rounding"`
	Rates         []RateFactor   `yaml:"rates"`
}

type ActiveEntries struct {
	HardLimit int `yaml:"hard_limit"`
}

// RoundingRule rounds begin, end and duration (all in minutes) on the listed weekdays.
type RoundingRule struct {
	Name     string   `yaml:"name"`
	Days     []string `yaml:"days"`
	Begin    int      `yaml:"begin"`
	End      int      `yaml:"end"`
	Duration int      `yaml:"duration"`
	Mode     string   `yaml:"mode"`
}

// RateFactor multiplies hourly rates of entries starting on the listed weekdays.
type RateFactor struct {
	Name   string   `yaml:"name"`
	Days   []string `yaml:"days"`
	Factor float64  `yaml:"factor"`
}

type Invoice struct {
	NumberFormat string `yaml:"number_format"`
	DueDays      int    `yaml:"due_days"`
}

type Export struct {
	DurationFormat string `yaml:"duration_format"` // decimal or hh:mm
}

type Events struct {
	Kafka Kafka `yaml:"kafka"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Permissions replaces the permission list of a role when set.
type Permissions struct {
	Roles map[string][]string `yaml:"roles"`
}

var (
	validDrivers        = []string{"sqlite", "mysql", "postgres"}
	validRoundingModes  = []string{"default", "closest", "floor", "ceil"}
	validDurationFormat = []string{"decimal", "hh:mm"}
	weekdayNames        = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
)

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Server: Server{
			Address:      ":8001",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			Driver: "sqlite",
			Path:   defaultDatabasePath(),
		},
		Log: Log{Level: "info", Format: "console"},
		Auth: Auth{
			Secret:   "change-me",
			Issuer:   "hourly",
			TokenTTL: 30 * 24 * time.Hour,
		},
		Timesheet: Timesheet{
			ActiveEntries: ActiveEntries{HardLimit: 1},
		},
		Invoice: Invoice{
			NumberFormat: "{Y}/{cy,3}",
			DueDays:      30,
		},
		Export:   Export{DurationFormat: "decimal"},
		Events:   Events{Kafka: Kafka{Topic: "hourly.events"}},
		Currency: "EUR",
	}
}

// defaultDatabasePath is ~/.hourly/hourly.db.
func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "hourly.db"
	}
	return filepath.Join(homeDir, ".hourly", "hourly.db")
}

// Load reads path (optional), then .env, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// a missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Address = getEnv("HOURLY_SERVER_ADDRESS", cfg.Server.Address)
	cfg.Database.Driver = getEnv("HOURLY_DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getEnv("HOURLY_DATABASE_PATH", cfg.Database.Path)
	cfg.Database.DSN = getEnv("HOURLY_DATABASE_DSN", cfg.Database.DSN)
	cfg.Log.Level = getEnv("HOURLY_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("HOURLY_LOG_FORMAT", cfg.Log.Format)
	cfg.Auth.Secret = getEnv("HOURLY_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Auth.Issuer = getEnv("HOURLY_AUTH_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.TokenTTL = getDurationEnv("HOURLY_AUTH_TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Timesheet.ActiveEntries.HardLimit = getIntEnv("HOURLY_ACTIVE_ENTRIES_HARD_LIMIT", cfg.Timesheet.ActiveEntries.HardLimit)
	cfg.Invoice.NumberFormat = getEnv("HOURLY_INVOICE_NUMBER_FORMAT", cfg.Invoice.NumberFormat)
	cfg.Currency = getEnv("HOURLY_CURRENCY", cfg.Currency)
	if brokers := getEnv("HOURLY_KAFKA_BROKERS", ""); brokers != "" {
		cfg.Events.Kafka.Brokers = splitAndTrim(brokers)
	}
	cfg.Events.Kafka.Topic = getEnv("HOURLY_KAFKA_TOPIC", cfg.Events.Kafka.Topic)
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var problems []string

	if !contains(validDrivers, c.Database.Driver) {
		problems = append(problems, fmt.Sprintf("database.driver must be one of %s", strings.Join(validDrivers, ", ")))
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		problems = append(problems, "database.path is required for sqlite")
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required for "+c.Database.Driver)
	}
	if c.Timesheet.ActiveEntries.HardLimit < 1 {
		problems = append(problems, "timesheet.active_entries.hard_limit must be at least 1")
	}
	for _, rule := range c.Timesheet.Rounding {
		if rule.Mode != "" && !contains(validRoundingModes, rule.Mode) {
			problems = append(problems, fmt.Sprintf("rounding rule %q: unknown mode %q", rule.Name, rule.Mode))
		}
		if rule.Begin < 0 || rule.End < 0 || rule.Duration < 0 {
			problems = append(problems, fmt.Sprintf("rounding rule %q: minutes must not be negative", rule.Name))
		}
		if err := validateDays(rule.Days); err != nil {
			problems = append(problems, fmt.Sprintf("rounding rule %q: %v", rule.Name, err))
		}
	}
	for _, rate := range c.Timesheet.Rates {
		if err := validateDays(rate.Days); err != nil {
			problems = append(problems, fmt.Sprintf("rate factor %q: %v", rate.Name, err))
		}
	}
	if c.Export.DurationFormat != "" && !contains(validDurationFormat, c.Export.DurationFormat) {
		problems = append(problems, fmt.Sprintf("export.duration_format must be one of %s", strings.Join(validDurationFormat, ", ")))
	}
	if c.Invoice.DueDays < 0 {
		problems = append(problems, "invoice.due_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateDays(days []string) error {
	for _, day := range days {
		if _, ok := ParseWeekday(day); !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
	}
	return nil
}

// ParseWeekday accepts full english weekday names in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, day := range weekdayNames {
		if day == name {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
