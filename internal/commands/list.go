package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
	"github.com/balkashynov/hourly/internal/permissions"
	"github.com/balkashynov/hourly/internal/tui"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List timesheet records",
	Long: `List your timesheet records, newest first.

Examples:
  hourly ls --from monday
  hourly ls --from 2026-03-01 --to 2026-03-31 -p Website
  hourly ls -i          # interactive browser`,
	Args: cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		ctx := cmd.Context()
		q, err := a.timesheetQuery(cmd, user)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		q.PageSize = limit
		q.OrderBy = "begin"
		q.Order = "DESC"

		page, err := a.store.ListTimesheets(ctx, q)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			fmt.Println("No records found. Use 'hourly start' or 'hourly log' to create one.")
			return nil
		}

		showRates := a.voter.Records(*user, permissions.AttrViewRate, q.UserIDs)
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			return tui.RunListTUI(page.Items, user.Location(), showRates)
		}
		printTimesheets(page, user.Location(), showRates)
		return nil
	}),
}

// timesheetQuery builds the filter shared by ls and export.
func (a *app) timesheetQuery(cmd *cobra.Command, user *models.User) (db.TimesheetQuery, error) {
	ctx := cmd.Context()
	q := db.TimesheetQuery{UserIDs: []uint{user.ID}}
	now := a.store.Now().In(user.Location())

	if all, _ := cmd.Flags().GetBool("all-users"); all {
		ids, ok := a.voter.VisibleOwners(*user)
		if !ok {
			return q, fmt.Errorf("records of other users: %w", permissions.ErrAccessDenied)
		}
		q.UserIDs = ids
	}
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		begin, err := parser.ParseDate(from, now)
		if err != nil {
			return q, err
		}
		q.Begin = &begin
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		day, err := parser.ParseDate(to, now)
		if err != nil {
			return q, err
		}
		end := day.AddDate(0, 0, 1).Add(-time.Second)
		q.End = &end
	}
	if ref, _ := cmd.Flags().GetString("project"); ref != "" {
		project, err := a.findProject(ctx, ref)
		if err != nil {
			return q, err
		}
		q.ProjectIDs = []uint{project.ID}
	}
	if ref, _ := cmd.Flags().GetString("customer"); ref != "" {
		customer, err := a.findCustomer(ctx, ref)
		if err != nil {
			return q, err
		}
		q.CustomerIDs = []uint{customer.ID}
	}
	if tags, _ := cmd.Flags().GetStringSlice("tags"); len(tags) > 0 {
		q.Tags = tags
	}
	if running, _ := cmd.Flags().GetBool("running"); running {
		q.State = db.StateRunning
	}
	if cmd.Flags().Changed("exported") {
		exported, _ := cmd.Flags().GetBool("exported")
		q.Exported = db.FilterNo
		if exported {
			q.Exported = db.FilterYes
		}
	}
	return q, nil
}

func printTimesheets(page db.Paginated[models.Timesheet], loc *time.Location, showRates bool) {
	fmt.Printf("%-5s %-10s %-11s %-8s %-30s %-30s", "ID", "DATE", "TIME", "DURATION", "PROJECT / ACTIVITY", "DESCRIPTION")
	if showRates {
		fmt.Printf(" %10s", "RATE")
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", 100))

	total := 0
	for _, ts := range page.Items {
		begin := ts.Begin.In(loc)
		span := begin.Format("15:04") + "-"
		duration := "running"
		if ts.End != nil {
			span += ts.End.In(loc).Format("15:04")
			duration = parser.FormatClock(ts.Duration)
			total += ts.Duration
		}
		fmt.Printf("%-5d %-10s %-11s %-8s %-30s %-30s", ts.ID, begin.Format("2006-01-02"), span, duration,
			truncate(ts.Project.Name+" / "+ts.Activity.Name, 30), truncate(ts.Description, 30))
		if showRates {
			fmt.Printf(" %10.2f", ts.Rate)
		}
		fmt.Println()
	}
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%d of %d records, %s tracked (page %d of %d)\n",
		len(page.Items), page.Total, parser.FormatDuration(total), page.Page, page.TotalPages())
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First day (today, yesterday, yyyy-mm-dd, monday, ...)")
	cmd.Flags().String("to", "", "Last day, inclusive")
	cmd.Flags().StringP("project", "p", "", "Only this project")
	cmd.Flags().String("customer", "", "Only this customer")
	cmd.Flags().StringSliceP("tags", "t", nil, "Only records with one of these tags")
	cmd.Flags().Bool("exported", false, "Only exported (true) or unexported (false) records")
	cmd.Flags().Bool("all-users", false, "Records of all users instead of only yours")
}

func init() {
	addQueryFlags(listCmd)
	listCmd.Flags().Bool("running", false, "Only running records")
	listCmd.Flags().IntP("limit", "n", 50, "Maximum number of records")
	listCmd.Flags().BoolP("interactive", "i", false, "Browse in the interactive UI")
}
