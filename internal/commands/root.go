package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/logger"
	"github.com/balkashynov/hourly/internal/metrics"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
	"github.com/balkashynov/hourly/internal/statistics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	username   string
)

var rootCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Time tracking and invoicing",
	Long: `hourly tracks working time against customers, projects and activities,
exports timesheets and bills them as invoices. Run "hourly serve" for the JSON API
or use the commands below directly against the database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg        config.Config
	log        *logger.Logger
	store      *db.Store
	events     *events.Dispatcher
	kafka      *events.KafkaPublisher
	voter      *permissions.Voter
	exporter   *export.Exporter
	invoices   *invoice.Service
	statistics *statistics.Service
}

// newApp loads the configuration and opens the database. verbose selects a real logger,
// the interactive commands keep stderr quiet.
func newApp(verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if verbose {
		log = logger.New("hourly", cfg.Log.Level, cfg.Log.Format)
	}

	dispatcher := events.NewDispatcher(log.Named("events"))
	dispatcher.Subscribe(events.Wildcard, metrics.Subscriber())
	dispatcher.Subscribe(events.Wildcard, events.AuditLog(log.Named("audit")))

	a := &app{cfg: cfg, log: log, events: dispatcher}
	if len(cfg.Events.Kafka.Brokers) > 0 {
		a.kafka = events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, log.Named("kafka"))
		dispatcher.Subscribe(events.Wildcard, a.kafka)
	}

	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	a.store, err = db.Open(cfg.Database, db.OptionsFromConfig(cfg, dispatcher, log.Named("store")))
	if err != nil {
		return nil, err
	}

	a.voter = permissions.NewVoter(permissions.DefaultMatrix(cfg.Permissions.Roles))
	a.exporter = export.NewExporter(a.store, nil, dispatcher, cfg.Export.DurationFormat)
	a.invoices = invoice.NewService(a.store, cfg)
	a.statistics = statistics.NewService(a.store)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	errs = append(errs, a.store.Close())
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// currentUser resolves --user. Without it the only existing user is taken.
func (a *app) currentUser(ctx context.Context) (*models.User, error) {
	if username != "" {
		user, err := a.store.GetUserByName(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("unknown user %q: %w", username, err)
		}
		if !user.Enabled {
			return nil, fmt.Errorf("user %q is disabled", username)
		}
		return a.store.GetUser(ctx, user.ID)
	}

	page, err := a.store.ListUsers(ctx, db.UserQuery{BaseQuery: db.BaseQuery{PageSize: 2}})
	if err != nil {
		return nil, err
	}
	switch len(page.Items) {
	case 0:
		return nil, errors.New("no users yet, create one with 'hourly user add'")
	case 1:
		return a.store.GetUser(ctx, page.Items[0].ID)
	}
	return nil, errors.New("several users exist, select one with --user or HOURLY_USER")
}

// withApp opens the app for the duration of fn.
func withApp(verbose bool, fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(verbose)
		if err != nil {
			return err
		}
		defer func() { err = closeLogged(a.log, a, err) }()
		return fn(cmd, args, a)
	}
}

// closeLogged closes c and logs a failure. The close error is returned
// only when the command itself succeeded.
func closeLogged(log *logger.Logger, c io.Closer, err error) error {
	cerr := c.Close()
	if cerr == nil {
		return err
	}
	log.Warnw("failed to close", "error", cerr)
	if err != nil {
		return err
	}
	return cerr
}

// withUser additionally resolves the acting user.
func withUser(fn func(cmd *cobra.Command, args []string, a *app, user *models.User) error) func(*cobra.Command, []string) error {
	return withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		user, err := a.currentUser(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, args, a, user)
	})
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("HOURLY_CONFIG"), "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", os.Getenv("HOURLY_USER"), "Act as this user")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(customerCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(invoiceCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
