package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/auth"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and API tokens",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Long: `Create a user. The first user ever created becomes super admin.

Example:
  hourly user add susan --email susan@example.com --password 's3cret!pass' --rate 80 --hours 8,8,8,8,6`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		req := db.CreateUserRequest{Username: args[0]}
		req.Email, _ = cmd.Flags().GetString("email")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Alias, _ = cmd.Flags().GetString("alias")
		req.Title, _ = cmd.Flags().GetString("title")
		req.Timezone, _ = cmd.Flags().GetString("timezone")
		req.HourlyRate, _ = cmd.Flags().GetFloat64("rate")
		req.Roles, _ = cmd.Flags().GetStringSlice("role")
		for i, role := range req.Roles {
			req.Roles[i] = normalizeRole(role)
		}

		count, err := a.store.CountUsers(ctx)
		if err != nil {
			return err
		}
		if count == 0 && len(req.Roles) == 0 {
			req.Roles = []string{models.RoleSuperAdmin}
		}

		if raw, _ := cmd.Flags().GetString("hours"); raw != "" {
			if req.WorkingTime, err = parseWorkingHours(raw); err != nil {
				return err
			}
		}

		user, err := a.store.CreateUser(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("✅ User %q added - ID: %d, roles: %s\n", user.Username, user.ID, strings.Join(user.RoleList(), ", "))
		return nil
	}),
}

var userListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		q := db.UserQuery{BaseQuery: db.BaseQuery{PageSize: db.MaxPageSize, Visibility: db.VisibilityBoth}}
		q.Term, _ = cmd.Flags().GetString("search")
		page, err := a.store.ListUsers(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-20s %-30s %-8s %-8s %s\n", "ID", "USERNAME", "EMAIL", "ENABLED", "RATE", "ROLES")
		fmt.Println(strings.Repeat("-", 90))
		for _, u := range page.Items {
			fmt.Printf("%-5d %-20s %-30s %-8s %-8.2f %s\n", u.ID, truncate(u.Username, 20), truncate(u.Email, 30),
				yesNo(u.Enabled), u.HourlyRate, strings.Join(u.RoleList(), ","))
		}
		return nil
	}),
}

var userTokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an API token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		user, err := a.store.GetUserByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		token, expires, err := auth.NewTokens(a.cfg.Auth).Issue(*user)
		if err != nil {
			return err
		}
		a.log.WithUser(user.ID).Audit("api token issued from cli", "expires_at", expires)
		fmt.Println(token)
		fmt.Printf("Expires: %s\n", expires.Format("2006-01-02 15:04"))
		return nil
	}),
}

var userWorkingTimeCmd = &cobra.Command{
	Use:   "working-time [yyyy-mm]",
	Short: "Compare recorded time with the weekly contract",
	Args:  cobra.MaximumNArgs(1),
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		now := a.store.Now().In(user.Location())
		year, month := now.Year(), now.Month()
		if len(args) == 1 {
			day, err := parser.ParseDate(args[0]+"-01", now)
			if err != nil {
				return fmt.Errorf("month must look like 2026-03: %w", err)
			}
			year, month = day.Year(), day.Month()
		}
		result, err := a.statistics.WorkingTime(cmd.Context(), *user, year, month)
		if err != nil {
			return err
		}
		fmt.Printf("Working time of %s in %s %d\n\n", user.DisplayName(), month, year)
		fmt.Printf("%-14s %8s %8s %8s\n", "DAY", "EXPECTED", "ACTUAL", "DIFF")
		for _, d := range result.Days {
			if d.Expected == 0 && d.Actual == 0 {
				continue
			}
			fmt.Printf("%-14s %8s %8s %8s\n", d.Date.Format("Mon 02/01"), parser.FormatClock(d.Expected),
				parser.FormatClock(d.Actual), parser.FormatClock(d.Overtime()))
		}
		fmt.Println(strings.Repeat("-", 41))
		fmt.Printf("%-14s %8s %8s %8s\n", "Total", parser.FormatClock(result.Expected),
			parser.FormatClock(result.Actual), parser.FormatClock(result.Overtime))
		return nil
	}),
}

// normalizeRole turns "admin" into ROLE_ADMIN.
func normalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	role = strings.ReplaceAll(role, "-", "_")
	if !strings.HasPrefix(role, "ROLE_") {
		role = "ROLE_" + role
	}
	return role
}

// parseWorkingHours reads "8,8,8,8,6" as hours per weekday starting Monday.
func parseWorkingHours(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) > 7 {
		return nil, fmt.Errorf("at most 7 weekdays, got %d", len(parts))
	}
	seconds := make([]int, 7)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hours, err := strconv.ParseFloat(part, 64)
		if err != nil || hours < 0 || hours > 24 {
			return nil, fmt.Errorf("invalid hours %q for weekday %d", part, i+1)
		}
		seconds[i] = int(hours * 3600)
	}
	return seconds, nil
}

func init() {
	userAddCmd.Flags().String("email", "", "Email address")
	userAddCmd.Flags().String("password", "", "Password, at least 8 characters")
	userAddCmd.Flags().String("alias", "", "Display name")
	userAddCmd.Flags().String("title", "", "Job title")
	userAddCmd.Flags().String("timezone", "", "IANA timezone, e.g. Europe/Berlin")
	userAddCmd.Flags().Float64("rate", 0, "Hourly rate")
	userAddCmd.Flags().StringSlice("role", nil, "Roles: teamlead, admin, super_admin")
	userAddCmd.Flags().String("hours", "", "Contracted hours per weekday from Monday, e.g. 8,8,8,8,6")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")

	userListCmd.Flags().StringP("search", "s", "", "Filter by name or email")

	userCmd.AddCommand(userAddCmd, userListCmd, userTokenCmd, userWorkingTimeCmd)
}
