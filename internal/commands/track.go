package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
	"github.com/balkashynov/hourly/internal/tui"
)

const smartSyntaxHelp = `Smart syntax inside the description:
  #tag1,tag2   Tags (comma separated or repeated)
  @project     Project name, underscores stand for spaces
  +activity    Activity name
  ~1h30m       Duration (log only): 1h30m, 90m, 1.5h, 1:30`

var startCmd = &cobra.Command{
	Use:   "start [description]",
	Short: "Start tracking time",
	Long: `Start a running timesheet record. Opens the interactive timer unless --no-ui is given.

` + smartSyntaxHelp + `

Examples:
  hourly start "Landing page @website +development #frontend"
  hourly start -p Website -a Development --at 08:30 --no-ui`,
	Args: cobra.ArbitraryArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		ctx := cmd.Context()
		entry, err := parseEntry(cmd, args)
		if err != nil {
			return err
		}
		project, activity, err := a.resolveTarget(ctx, entry.Project, entry.Activity)
		if err != nil {
			return err
		}

		req := db.StartRequest{
			UserID:      user.ID,
			ProjectID:   project.ID,
			ActivityID:  activity.ID,
			Description: entry.Description,
			Tags:        entry.Tags,
		}
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			begin, err := parser.ParseDateTime(at, a.store.Now().In(user.Location()))
			if err != nil {
				return err
			}
			req.Begin = &begin
		}

		ts, err := a.store.Start(ctx, req)
		if err != nil {
			return err
		}

		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			fmt.Printf("⏱️  Started #%d: %s\n", ts.ID, describe(*ts))
			fmt.Printf("Started at: %s\n", ts.Begin.In(user.Location()).Format("15:04:05"))
			return nil
		}
		return runTimer(ctx, a, user, ts)
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all running records",
	Args:  cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		stopped, err := a.store.StopActive(cmd.Context(), user.ID, a.store.Now())
		if err != nil {
			return err
		}
		if len(stopped) == 0 {
			fmt.Println("Nothing is running")
			return nil
		}
		for _, ts := range stopped {
			fmt.Printf("⏹️  Stopped #%d: %s\n", ts.ID, describe(ts))
			fmt.Printf("Duration: %s\n", parser.FormatDuration(ts.Duration))
		}
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running records",
	Args:  cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		ctx := cmd.Context()
		active, err := a.store.Active(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			fmt.Println("Nothing is running")
			return nil
		}

		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI || len(active) > 1 {
			now := a.store.Now().In(user.Location())
			for _, ts := range active {
				fmt.Printf("⏱️  #%d %s\n", ts.ID, describe(ts))
				fmt.Printf("   %s\n", parser.FormatSince(ts.Begin.In(user.Location()), now))
			}
			return nil
		}
		return runTimer(ctx, a, user, &active[0])
	}),
}

var logCmd = &cobra.Command{
	Use:   "log [description]",
	Short: "Record a finished entry",
	Long: `Record time after the fact.

` + smartSyntaxHelp + `

Without --begin the record ends now for today, or begins at 09:00 on earlier days.

Examples:
  hourly log "Sprint planning @website +meeting ~1h30m"
  hourly log -d 45m --date yesterday --begin 14:00 "Code review @website +development"`,
	Args: cobra.ArbitraryArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		ctx := cmd.Context()
		entry, err := mergeEntry(cmd, args)
		if err != nil {
			return err
		}
		dateFlag, _ := cmd.Flags().GetString("date")
		beginFlag, _ := cmd.Flags().GetString("begin")
		rawDuration, _ := cmd.Flags().GetString("duration")

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			draft := tui.EntryDraft{
				Description: entry.Description,
				Project:     entry.Project,
				Activity:    entry.Activity,
				Tags:        entry.Tags,
				Duration:    rawDuration,
				Date:        dateFlag,
				Begin:       beginFlag,
			}
			if rawDuration == "" && entry.Duration > 0 {
				draft.Duration = parser.FormatDuration(entry.Duration)
			}
			draft, ok, err := tui.RunEntryTUI(draft)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("❌ Cancelled.")
				return nil
			}
			entry.Description, entry.Project, entry.Activity, entry.Tags = draft.Description, draft.Project, draft.Activity, draft.Tags
			rawDuration, dateFlag, beginFlag = draft.Duration, draft.Date, draft.Begin
		}

		if err := requireTarget(entry); err != nil {
			return err
		}
		if rawDuration != "" {
			if entry.Duration, err = parser.ParseDuration(rawDuration); err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
		}
		if entry.Duration == 0 {
			return fmt.Errorf("a duration is required, use ~1h30m or --duration")
		}

		now := a.store.Now().In(user.Location())
		begin, err := logBegin(now, dateFlag, beginFlag, entry.Duration)
		if err != nil {
			return err
		}

		project, activity, err := a.resolveTarget(ctx, entry.Project, entry.Activity)
		if err != nil {
			return err
		}
		ts, err := a.store.CreateTimesheet(ctx, db.CreateTimesheetRequest{
			UserID:      user.ID,
			ProjectID:   project.ID,
			ActivityID:  activity.ID,
			Begin:       begin,
			Duration:    entry.Duration,
			Description: entry.Description,
			Tags:        entry.Tags,
		})
		if err != nil {
			return err
		}
		fmt.Printf("✅ Logged #%d: %s\n", ts.ID, describe(*ts))
		fmt.Printf("%s %s-%s (%s)\n", ts.Begin.In(user.Location()).Format("Mon 02/01"),
			ts.Begin.In(user.Location()).Format("15:04"), ts.End.In(user.Location()).Format("15:04"),
			parser.FormatDuration(ts.Duration))
		return nil
	}),
}

// logBegin places a logged entry. Today it ends now, earlier days start at 09:00.
func logBegin(now time.Time, dateFlag, beginFlag string, duration int) (time.Time, error) {
	day, err := parser.ParseDate(dateFlag, now)
	if err != nil {
		return time.Time{}, err
	}
	if beginFlag != "" {
		return parser.ParseClock(beginFlag, day)
	}
	if day.Equal(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())) {
		return now.Add(-time.Duration(duration) * time.Second), nil
	}
	return day.Add(9 * time.Hour), nil
}

// parseEntry merges the smart syntax of args with the explicit flags; flags win.
func parseEntry(cmd *cobra.Command, args []string) (parser.ParsedEntry, error) {
	entry, err := mergeEntry(cmd, args)
	if err != nil {
		return entry, err
	}
	return entry, requireTarget(entry)
}

func mergeEntry(cmd *cobra.Command, args []string) (parser.ParsedEntry, error) {
	entry := parser.ParseDescription(strings.Join(args, " "))
	if !entry.Valid() {
		return entry, fmt.Errorf("could not parse description: %s", strings.Join(entry.Errors, ", "))
	}
	if project, _ := cmd.Flags().GetString("project"); project != "" {
		entry.Project = project
	}
	if activity, _ := cmd.Flags().GetString("activity"); activity != "" {
		entry.Activity = activity
	}
	if tags, _ := cmd.Flags().GetStringSlice("tags"); len(tags) > 0 {
		entry.Tags = append(entry.Tags, tags...)
	}
	return entry, nil
}

func requireTarget(entry parser.ParsedEntry) error {
	if entry.Project == "" || entry.Activity == "" {
		return fmt.Errorf("project and activity are required, use @project +activity or --project/--activity")
	}
	return nil
}

// resolveTarget looks project and activity up by id or name.
func (a *app) resolveTarget(ctx context.Context, projectRef, activityRef string) (*models.Project, *models.Activity, error) {
	project, err := a.findProject(ctx, projectRef)
	if err != nil {
		return nil, nil, err
	}
	var activity *models.Activity
	if id, convErr := strconv.ParseUint(activityRef, 10, 32); convErr == nil {
		activity, err = a.store.GetActivity(ctx, uint(id))
	} else {
		activity, err = a.store.FindActivityByName(ctx, activityRef, project.ID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("activity %q: %w", activityRef, err)
	}
	return project, activity, nil
}

func (a *app) findProject(ctx context.Context, ref string) (*models.Project, error) {
	var (
		project *models.Project
		err     error
	)
	if id, convErr := strconv.ParseUint(ref, 10, 32); convErr == nil {
		project, err = a.store.GetProject(ctx, uint(id))
	} else {
		project, err = a.store.FindProjectByName(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, err)
	}
	return project, nil
}

func (a *app) findCustomer(ctx context.Context, ref string) (*models.Customer, error) {
	var (
		customer *models.Customer
		err      error
	)
	if id, convErr := strconv.ParseUint(ref, 10, 32); convErr == nil {
		customer, err = a.store.GetCustomer(ctx, uint(id))
	} else {
		customer, err = a.store.FindCustomerByName(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("customer %q: %w", ref, err)
	}
	return customer, nil
}

// describe is the one line summary of a record.
func describe(ts models.Timesheet) string {
	text := fmt.Sprintf("%s / %s", ts.Project.Name, ts.Activity.Name)
	if ts.Project.Customer.Name != "" {
		text = ts.Project.Customer.Name + " / " + text
	}
	if ts.Description != "" {
		text += " - " + ts.Description
	}
	if tags := ts.TagNames(); len(tags) > 0 {
		text += " #" + strings.Join(tags, " #")
	}
	return text
}

// runTimer shows the timer UI and stops the record when the user asks for it.
func runTimer(ctx context.Context, a *app, user *models.User, ts *models.Timesheet) error {
	stop := func() (*models.Timesheet, error) {
		return a.store.Stop(ctx, ts.ID, a.store.Now())
	}
	return tui.RunTimerTUI(*ts, user.Location(), stop)
}

func addEntryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "Project name or id")
	cmd.Flags().StringP("activity", "a", "", "Activity name or id")
	cmd.Flags().StringSliceP("tags", "t", nil, "Comma separated tags")
}

func init() {
	addEntryFlags(startCmd)
	startCmd.Flags().String("at", "", "Begin at hh:mm or 'yyyy-mm-dd hh:mm' instead of now")
	startCmd.Flags().Bool("no-ui", false, "Start without the interactive timer")

	statusCmd.Flags().Bool("no-ui", false, "Print the status instead of opening the timer")

	addEntryFlags(logCmd)
	logCmd.Flags().StringP("duration", "d", "", "Duration like 1h30m, 90m or 1.5h")
	logCmd.Flags().String("date", "today", "Day: today, yesterday, yyyy-mm-dd, dd/mm/yyyy, 3 days ago or a weekday")
	logCmd.Flags().String("begin", "", "Begin at hh:mm")
	logCmd.Flags().BoolP("interactive", "i", false, "Fill in the entry step by step")
}
