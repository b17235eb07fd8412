package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

// fixture is a store with one user, customer, project and activity.
type fixture struct {
	store    *Store
	clock    *fakeClock
	user     *models.User
	customer *models.Customer
	project  *models.Project
	activity *models.Activity
	events   *eventRecorder
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type eventRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *eventRecorder) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.Name)
	return nil
}

func (r *eventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.names...)
}

// monday 2026-01-05 09:00 UTC
var testNow = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, cfg config.Config) (*Store, *fakeClock, *eventRecorder) {
	t.Helper()
	clock := &fakeClock{now: testNow}
	recorder := &eventRecorder{}
	dispatcher := events.NewDispatcher(nil)
	dispatcher.Subscribe(events.Wildcard, recorder)

	opts := OptionsFromConfig(cfg, dispatcher, nil)
	opts.Now = clock.Now

	store, err := Open(config.Database{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "hourly.db")}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock, recorder
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	store, clock, recorder := newTestStore(t, cfg)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, CreateUserRequest{
		Username:   "susan",
		Email:      "susan@example.com",
		Password:   "secret-password",
		HourlyRate: 80,
	})
	require.NoError(t, err)

	customer := &models.Customer{Name: "Acme", Visible: true, Billable: true, Currency: "EUR"}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	project := &models.Project{CustomerID: customer.ID, Name: "Website", Visible: true, Billable: true, GlobalActivities: true}
	require.NoError(t, store.CreateProject(ctx, project))

	activity := &models.Activity{Name: "Development", Visible: true, Billable: true}
	require.NoError(t, store.CreateActivity(ctx, activity))

	return &fixture{
		store:    store,
		clock:    clock,
		user:     user,
		customer: customer,
		project:  project,
		activity: activity,
		events:   recorder,
	}
}

func (f *fixture) start(t *testing.T, at time.Time) *models.Timesheet {
	t.Helper()
	ts, err := f.store.Start(context.Background(), StartRequest{
		UserID:     f.user.ID,
		ProjectID:  f.project.ID,
		ActivityID: f.activity.ID,
		Begin:      &at,
	})
	require.NoError(t, err)
	return ts
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "oracle"}, Options{})
	require.Error(t, err)
}

func TestPingAndClose(t *testing.T) {
	store, _, _ := newTestStore(t, config.Default())
	require.NoError(t, store.Ping(context.Background()))
}
