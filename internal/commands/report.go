package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
	"github.com/balkashynov/hourly/internal/statistics"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Weekly grid and budget reports",
}

var reportWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show the weekly grid of tracked hours",
	Long: `Show tracked time of one calendar week grouped by customer, project and activity.

Example output:
  Project / Activity                 Mon   Tue   Wed   Thu   Fri   Sat   Sun   Total
  Acme / Website / Development      2:00  3:15  1:00     -     -     -     -    6:15
  Total                             2:00  3:15  1:00  0:00  0:00  0:00  0:00    6:15`,
	Args: cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		now := a.store.Now().In(user.Location())
		dayFlag, _ := cmd.Flags().GetString("date")
		day, err := parser.ParseDate(dayFlag, now)
		if err != nil {
			return err
		}
		grid, err := a.statistics.Week(cmd.Context(), *user, day)
		if err != nil {
			return err
		}
		if len(grid.Rows) == 0 {
			fmt.Println("No time tracked this week.")
			return nil
		}
		printWeekGrid(grid)
		return nil
	}),
}

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func printWeekGrid(grid *statistics.WeekGrid) {
	labelWidth := 20
	for _, row := range grid.Rows {
		if n := len([]rune(row.Label())); n > labelWidth {
			labelWidth = n
		}
	}
	if labelWidth > 50 {
		labelWidth = 50
	}

	fmt.Printf("%-*s", labelWidth, "Project / Activity")
	for _, name := range dayNames {
		fmt.Printf("  %5s", name)
	}
	fmt.Printf("  %7s\n", "Total")
	separator := strings.Repeat("-", labelWidth+7*7+9)
	fmt.Println(separator)

	for _, row := range grid.Rows {
		fmt.Printf("%-*s", labelWidth, truncate(row.Label(), labelWidth))
		for _, seconds := range row.Days {
			if seconds == 0 {
				fmt.Printf("  %5s", "-")
				continue
			}
			fmt.Printf("  %5s", parser.FormatClock(seconds))
		}
		fmt.Printf("  %7s\n", parser.FormatClock(row.Total))
	}

	fmt.Println(separator)
	fmt.Printf("%-*s", labelWidth, "Total")
	for _, seconds := range grid.DayTotals {
		fmt.Printf("  %5s", parser.FormatClock(seconds))
	}
	fmt.Printf("  %7s\n", parser.FormatClock(grid.Total))

	fmt.Printf("\nWeek of %s to %s\n", grid.Begin.Format("Jan 2"), grid.Begin.AddDate(0, 0, 6).Format("Jan 2, 2006"))
}

var reportBudgetCmd = &cobra.Command{
	Use:   "budget <customer|project|activity> <name-or-id>",
	Short: "Show how much of a budget is spent",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		var (
			name string
			stat *statistics.BudgetStatistic
			err  error
		)
		switch args[0] {
		case "customer":
			customer, findErr := a.findCustomer(ctx, args[1])
			if findErr != nil {
				return findErr
			}
			name = customer.Name
			stat, err = a.statistics.CustomerBudget(ctx, *customer)
		case "project":
			project, findErr := a.findProject(ctx, args[1])
			if findErr != nil {
				return findErr
			}
			name = project.Customer.Name + " / " + project.Name
			stat, err = a.statistics.ProjectBudget(ctx, *project)
		case "activity":
			id, convErr := strconv.ParseUint(args[1], 10, 32)
			if convErr != nil {
				return fmt.Errorf("activities are looked up by id")
			}
			activity, findErr := a.store.GetActivity(ctx, uint(id))
			if findErr != nil {
				return findErr
			}
			name = activity.Name
			stat, err = a.statistics.ActivityBudget(ctx, *activity)
		default:
			return fmt.Errorf("unknown kind %q, use customer, project or activity", args[0])
		}
		if err != nil {
			return err
		}
		printBudget(name, stat)
		return nil
	}),
}

func printBudget(name string, stat *statistics.BudgetStatistic) {
	fmt.Printf("📊 %s\n", name)
	if stat.BudgetType == models.BudgetTypeMonth && stat.Begin != nil {
		fmt.Printf("   Monthly budget, %s\n", stat.Begin.Format("January 2006"))
	}
	fmt.Printf("   Records:   %d\n", stat.Count)
	fmt.Printf("   Tracked:   %s (billable %s)\n", parser.FormatClock(int(stat.Duration)), parser.FormatClock(int(stat.BillableDuration)))
	fmt.Printf("   Revenue:   %.2f (billable %.2f)\n", stat.Rate, stat.BillableRate)

	if stat.HasBudget() {
		fmt.Printf("   Budget:    %.2f spent of %.2f (%.2f%%), %.2f left\n",
			stat.BudgetSpent(), stat.Budget, stat.BudgetPercent(), stat.BudgetRemaining())
	}
	if stat.HasTimeBudget() {
		fmt.Printf("   Time:      %s spent of %s (%.2f%%), %s left\n",
			parser.FormatClock(int(stat.TimeBudgetSpent())), parser.FormatClock(int(stat.TimeBudget)),
			stat.TimeBudgetPercent(), parser.FormatClock(int(stat.TimeBudgetRemaining())))
	}
	if !stat.HasBudget() && !stat.HasTimeBudget() {
		fmt.Println("   No budget set")
	}
}

func init() {
	reportWeekCmd.Flags().String("date", "today", "Any day of the week to show")
	reportCmd.AddCommand(reportWeekCmd, reportBudgetCmd)
}
