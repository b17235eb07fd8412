package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
}

var customerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a customer",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		customer := &models.Customer{
			Name:     strings.Join(args, " "),
			Visible:  true,
			Billable: true,
			Currency: a.cfg.Currency,
		}
		customer.Number, _ = cmd.Flags().GetString("number")
		customer.Company, _ = cmd.Flags().GetString("company")
		customer.Country, _ = cmd.Flags().GetString("country")
		customer.Email, _ = cmd.Flags().GetString("email")
		customer.VatID, _ = cmd.Flags().GetString("vat-id")
		customer.Budget, _ = cmd.Flags().GetFloat64("budget")
		if currency, _ := cmd.Flags().GetString("currency"); currency != "" {
			customer.Currency = strings.ToUpper(currency)
		}
		if monthly, _ := cmd.Flags().GetBool("monthly-budget"); monthly {
			customer.BudgetType = models.BudgetTypeMonth
		}
		if err := a.store.CreateCustomer(cmd.Context(), customer); err != nil {
			return err
		}
		fmt.Printf("✅ Customer %q added - ID: %d\n", customer.Name, customer.ID)
		return a.addRateFlag(cmd, models.OwnerCustomer, customer.ID)
	}),
}

var customerListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List customers",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		base := entityBaseQuery(cmd)
		page, err := a.store.ListCustomers(cmd.Context(), db.CustomerQuery{BaseQuery: base})
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-30s %-10s %-8s %-8s %s\n", "ID", "NAME", "NUMBER", "CURRENCY", "VISIBLE", "BUDGET")
		fmt.Println(strings.Repeat("-", 80))
		for _, c := range page.Items {
			fmt.Printf("%-5d %-30s %-10s %-8s %-8s %s\n", c.ID, truncate(c.Name, 30), c.Number, c.Currency,
				yesNo(c.Visible), budgetText(c.Budget, c.TimeBudget, c.BudgetType))
		}
		return nil
	}),
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project for a customer",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		ref, _ := cmd.Flags().GetString("customer")
		customer, err := a.findCustomer(ctx, ref)
		if err != nil {
			return err
		}
		project := &models.Project{
			CustomerID:       customer.ID,
			Name:             strings.Join(args, " "),
			Visible:          true,
			Billable:         true,
			GlobalActivities: true,
		}
		project.Number, _ = cmd.Flags().GetString("number")
		project.OrderNumber, _ = cmd.Flags().GetString("order-number")
		project.Budget, _ = cmd.Flags().GetFloat64("budget")
		if hours, _ := cmd.Flags().GetFloat64("time-budget"); hours > 0 {
			project.TimeBudget = int(hours * 3600)
		}
		if monthly, _ := cmd.Flags().GetBool("monthly-budget"); monthly {
			project.BudgetType = models.BudgetTypeMonth
		}
		if only, _ := cmd.Flags().GetBool("own-activities"); only {
			project.GlobalActivities = false
		}
		if err := a.store.CreateProject(ctx, project); err != nil {
			return err
		}
		fmt.Printf("✅ Project %q added for %s - ID: %d\n", project.Name, customer.Name, project.ID)
		return a.addRateFlag(cmd, models.OwnerProject, project.ID)
	}),
}

var projectListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List projects",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		q := db.ProjectQuery{BaseQuery: entityBaseQuery(cmd)}
		if ref, _ := cmd.Flags().GetString("customer"); ref != "" {
			customer, err := a.findCustomer(ctx, ref)
			if err != nil {
				return err
			}
			q.CustomerIDs = []uint{customer.ID}
		}
		page, err := a.store.ListProjects(ctx, q)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-25s %-25s %-10s %s\n", "ID", "NAME", "CUSTOMER", "NUMBER", "BUDGET")
		fmt.Println(strings.Repeat("-", 80))
		for _, p := range page.Items {
			fmt.Printf("%-5d %-25s %-25s %-10s %s\n", p.ID, truncate(p.Name, 25), truncate(p.Customer.Name, 25),
				p.Number, budgetText(p.Budget, p.TimeBudget, p.BudgetType))
		}
		return nil
	}),
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Manage activities",
}

var activityAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a global or project activity",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		activity := &models.Activity{
			Name:     strings.Join(args, " "),
			Visible:  true,
			Billable: true,
		}
		if ref, _ := cmd.Flags().GetString("project"); ref != "" {
			project, err := a.findProject(ctx, ref)
			if err != nil {
				return err
			}
			activity.ProjectID = &project.ID
		}
		activity.Number, _ = cmd.Flags().GetString("number")
		activity.Budget, _ = cmd.Flags().GetFloat64("budget")
		if nonBillable, _ := cmd.Flags().GetBool("non-billable"); nonBillable {
			activity.Billable = false
		}
		if err := a.store.CreateActivity(ctx, activity); err != nil {
			return err
		}
		scope := "global"
		if !activity.IsGlobal() {
			scope = fmt.Sprintf("project #%d", *activity.ProjectID)
		}
		fmt.Printf("✅ Activity %q added (%s) - ID: %d\n", activity.Name, scope, activity.ID)
		return a.addRateFlag(cmd, models.OwnerActivity, activity.ID)
	}),
}

var activityListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List activities",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		q := db.ActivityQuery{BaseQuery: entityBaseQuery(cmd), GlobalsToo: true}
		if ref, _ := cmd.Flags().GetString("project"); ref != "" {
			project, err := a.findProject(ctx, ref)
			if err != nil {
				return err
			}
			q.ProjectIDs = []uint{project.ID}
		}
		page, err := a.store.ListActivities(ctx, q)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-30s %-25s %-9s %s\n", "ID", "NAME", "PROJECT", "BILLABLE", "BUDGET")
		fmt.Println(strings.Repeat("-", 80))
		for _, act := range page.Items {
			project := "(global)"
			if act.Project != nil {
				project = act.Project.Name
			}
			fmt.Printf("%-5d %-30s %-25s %-9s %s\n", act.ID, truncate(act.Name, 30), truncate(project, 25),
				yesNo(act.Billable), budgetText(act.Budget, act.TimeBudget, act.BudgetType))
		}
		return nil
	}),
}

// addRateFlag stores --rate as the hourly rate of the new entity.
func (a *app) addRateFlag(cmd *cobra.Command, kind string, ownerID uint) error {
	rate, _ := cmd.Flags().GetFloat64("rate")
	if rate <= 0 {
		return nil
	}
	fixed, _ := cmd.Flags().GetBool("fixed")
	if err := a.store.AddRate(cmd.Context(), &models.Rate{Kind: kind, OwnerID: ownerID, Rate: rate, Fixed: fixed}); err != nil {
		return err
	}
	unit := "per hour"
	if fixed {
		unit = "fixed per record"
	}
	fmt.Printf("💶 Rate %.2f %s\n", rate, unit)
	return nil
}

func entityBaseQuery(cmd *cobra.Command) db.BaseQuery {
	q := db.BaseQuery{PageSize: db.MaxPageSize, OrderBy: "name"}
	q.Term, _ = cmd.Flags().GetString("search")
	if hidden, _ := cmd.Flags().GetBool("hidden"); hidden {
		q.Visibility = db.VisibilityBoth
	}
	return q
}

func budgetText(money float64, seconds int, budgetType string) string {
	var parts []string
	if money > 0 {
		parts = append(parts, fmt.Sprintf("%.2f", money))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%.1fh", float64(seconds)/3600))
	}
	if len(parts) == 0 {
		return "-"
	}
	text := strings.Join(parts, " / ")
	if budgetType == models.BudgetTypeMonth {
		text += " monthly"
	}
	return text
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("search", "s", "", "Filter by name")
	cmd.Flags().Bool("hidden", false, "Include hidden entries")
}

func addRateFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("rate", 0, "Hourly rate")
	cmd.Flags().Bool("fixed", false, "Treat --rate as a fixed rate per record")
	cmd.Flags().Float64("budget", 0, "Money budget")
	cmd.Flags().Bool("monthly-budget", false, "Budgets reset every month")
	cmd.Flags().String("number", "", "Reference number")
}

func init() {
	addRateFlags(customerAddCmd)
	customerAddCmd.Flags().String("company", "", "Company name")
	customerAddCmd.Flags().String("country", "", "ISO country code")
	customerAddCmd.Flags().String("currency", "", "ISO currency code, defaults to the configured currency")
	customerAddCmd.Flags().String("email", "", "Contact email")
	customerAddCmd.Flags().String("vat-id", "", "VAT id")
	addListFlags(customerListCmd)
	customerCmd.AddCommand(customerAddCmd, customerListCmd)

	addRateFlags(projectAddCmd)
	projectAddCmd.Flags().String("customer", "", "Customer name or id")
	projectAddCmd.Flags().String("order-number", "", "Order number")
	projectAddCmd.Flags().Float64("time-budget", 0, "Time budget in hours")
	projectAddCmd.Flags().Bool("own-activities", false, "Only allow activities of this project")
	_ = projectAddCmd.MarkFlagRequired("customer")
	addListFlags(projectListCmd)
	projectListCmd.Flags().String("customer", "", "Only projects of this customer")
	projectCmd.AddCommand(projectAddCmd, projectListCmd)

	addRateFlags(activityAddCmd)
	activityAddCmd.Flags().StringP("project", "p", "", "Restrict to this project, global otherwise")
	activityAddCmd.Flags().Bool("non-billable", false, "Records of this activity are not billable")
	addListFlags(activityListCmd)
	activityListCmd.Flags().StringP("project", "p", "", "Activities usable with this project")
	activityCmd.AddCommand(activityAddCmd, activityListCmd)
}
