package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/logger"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

func TestParseWorkingHours(t *testing.T) {
	seconds, err := parseWorkingHours("8,8,8,8,6")
	require.NoError(t, err)
	assert.Equal(t, []int{28800, 28800, 28800, 28800, 21600, 0, 0}, seconds)

	seconds, err = parseWorkingHours("7.5,,4")
	require.NoError(t, err)
	assert.Equal(t, 27000, seconds[0])
	assert.Equal(t, 0, seconds[1])
	assert.Equal(t, 14400, seconds[2])

	_, err = parseWorkingHours("8,8,8,8,8,8,8,8")
	assert.Error(t, err)
	_, err = parseWorkingHours("8,x")
	assert.Error(t, err)
	_, err = parseWorkingHours("25")
	assert.Error(t, err)
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, models.RoleSuperAdmin, normalizeRole("super-admin"))
	assert.Equal(t, models.RoleTeamlead, normalizeRole(" teamlead "))
	assert.Equal(t, models.RoleAdmin, normalizeRole("ROLE_ADMIN"))
}

func TestLogBegin(t *testing.T) {
	now := time.Date(2026, time.March, 4, 16, 30, 0, 0, time.UTC)

	begin, err := logBegin(now, "today", "", 5400)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 4, 15, 0, 0, 0, time.UTC), begin)

	begin, err = logBegin(now, "yesterday", "", 3600)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC), begin)

	begin, err = logBegin(now, "2026-03-02", "13:15", 3600)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 2, 13, 15, 0, 0, time.UTC), begin)

	_, err = logBegin(now, "someday", "", 3600)
	assert.Error(t, err)
}

func TestBudgetText(t *testing.T) {
	assert.Equal(t, "-", budgetText(0, 0, models.BudgetTypeFull))
	assert.Equal(t, "1000.00 / 10.0h", budgetText(1000, 36000, ""))
	assert.Equal(t, "500.00 monthly", budgetText(500, 0, models.BudgetTypeMonth))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Büroarb...", truncate("Büroarbeit am Morgen", 10))
}

func TestRenderHelpListsCommands(t *testing.T) {
	help := renderHelp(helpSections)
	for _, name := range []string{"start", "log", "export", "invoice", "report week", "serve", "@project"} {
		assert.Contains(t, help, name)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseLoggedReportsCloseFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	closeErr := errors.New("database is locked")
	failing := closerFunc(func() error { return closeErr })

	assert.ErrorIs(t, closeLogged(log, failing, nil), closeErr)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to close", logs.All()[0].Message)

	cmdErr := errors.New("no such project")
	assert.Equal(t, cmdErr, closeLogged(log, failing, cmdErr))
	assert.Equal(t, 2, logs.Len())

	assert.NoError(t, closeLogged(log, closerFunc(func() error { return nil }), nil))
	assert.Equal(t, 2, logs.Len())
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestTrackAndExportAgainstDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOURLY_DATABASE_DRIVER", "sqlite")
	t.Setenv("HOURLY_DATABASE_PATH", filepath.Join(dir, "data", "hourly.db"))
	t.Setenv("HOURLY_CURRENCY", "EUR")

	require.NoError(t, run(t, "user", "add", "admin", "--email", "admin@example.com", "--password", "secret-password"))
	require.NoError(t, run(t, "customer", "add", "Acme", "--rate", "100"))
	require.NoError(t, run(t, "project", "add", "Website", "--customer", "Acme"))
	require.NoError(t, run(t, "activity", "add", "Development"))
	require.NoError(t, run(t, "log", "Landing page @Website +Development #frontend ~1h30m", "--date", "2026-01-05", "--begin", "09:00"))

	output := filepath.Join(dir, "out", "january.csv")
	require.NoError(t, run(t, "export", "--from", "2026-01-01", "--to", "2026-01-31", "-o", output))

	body, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Website")
	assert.Contains(t, string(body), "Landing page")

	a, err := newApp(false)
	require.NoError(t, err)
	defer a.Close()

	user, err := a.currentUser(context.Background())
	require.NoError(t, err)
	assert.True(t, user.HasRole(models.RoleSuperAdmin))

	list, err := a.store.FindTimesheets(context.Background(), db.TimesheetQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5400, list[0].Duration)
	assert.InDelta(t, 150.0, list[0].Rate, 0.001)
	assert.Equal(t, []string{"frontend"}, list[0].TagNames())

	assert.Error(t, run(t, "log", "Missing target ~1h"))
}

func TestRestrictedUserCannotReachOtherRecords(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOURLY_DATABASE_DRIVER", "sqlite")
	t.Setenv("HOURLY_DATABASE_PATH", filepath.Join(dir, "hourly.db"))
	t.Cleanup(func() {
		username = ""
		_ = listCmd.Flags().Set("all-users", "false")
		_ = exportCmd.Flags().Set("all-users", "false")
		_ = exportCmd.Flags().Set("mark", "false")
	})

	require.NoError(t, run(t, "user", "add", "admin", "--email", "admin@example.com", "--password", "secret-password"))
	require.NoError(t, run(t, "user", "add", "bob", "--email", "bob@example.com", "--password", "secret-password"))
	require.NoError(t, run(t, "customer", "add", "Acme", "--rate", "100", "--user", "admin"))
	require.NoError(t, run(t, "project", "add", "Website", "--customer", "Acme", "--user", "admin"))
	require.NoError(t, run(t, "activity", "add", "Development", "--user", "admin"))
	require.NoError(t, run(t, "log", "Review @Website +Development ~1h", "--date", "2026-01-05", "--begin", "09:00", "--user", "admin"))

	err := run(t, "ls", "--all-users=true", "--user", "bob")
	assert.ErrorIs(t, err, permissions.ErrAccessDenied)
	require.NoError(t, run(t, "ls", "--all-users=false", "--user", "bob"))

	output := filepath.Join(dir, "all.csv")
	err = run(t, "export", "--all-users=true", "--mark=false", "-o", output, "--user", "bob")
	assert.ErrorIs(t, err, permissions.ErrAccessDenied)
	err = run(t, "export", "--all-users=false", "--mark=true", "-o", output, "--user", "bob")
	assert.ErrorIs(t, err, permissions.ErrAccessDenied)

	require.NoError(t, run(t, "export", "--all-users=true", "--mark=true", "-o", output, "--user", "admin"))
	body, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Review")
}
