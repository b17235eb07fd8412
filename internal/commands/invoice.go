package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
	"github.com/balkashynov/hourly/internal/permissions"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Create and manage invoices",
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Bill the unexported records of a customer",
	Long: `Create an invoice from the billable, unexported records of a customer.

Examples:
  hourly invoice create --customer Acme --template 1 --from 2026-03-01 --to 2026-03-31 --mark
  hourly invoice create --customer Acme --template 1 --preview`,
	Args: cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		ctx := cmd.Context()
		if err := a.voter.Matrix().Require(*user, permissions.CreateInvoice); err != nil {
			return err
		}
		ref, _ := cmd.Flags().GetString("customer")
		customer, err := a.findCustomer(ctx, ref)
		if err != nil {
			return err
		}
		templateID, _ := cmd.Flags().GetUint("template")

		req := invoice.CreateRequest{CustomerID: customer.ID, TemplateID: templateID, UserID: user.ID}
		req.MarkExported, _ = cmd.Flags().GetBool("mark")
		req.IncludeExported, _ = cmd.Flags().GetBool("include-exported")
		req.Comment, _ = cmd.Flags().GetString("comment")

		now := a.store.Now().In(user.Location())
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			begin, err := parser.ParseDate(from, now)
			if err != nil {
				return err
			}
			req.Begin = &begin
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			day, err := parser.ParseDate(to, now)
			if err != nil {
				return err
			}
			end := day.AddDate(0, 0, 1).Add(-time.Second)
			req.End = &end
		}

		if preview, _ := cmd.Flags().GetBool("preview"); preview {
			inv, records, err := a.invoices.Preview(ctx, req)
			if err != nil {
				return err
			}
			printInvoice(inv)
			fmt.Printf("\n%d records, nothing was saved\n", len(records))
			return nil
		}

		inv, err := a.invoices.Create(ctx, req)
		if err != nil {
			return err
		}
		printInvoice(inv)

		if format, _ := cmd.Flags().GetString("render"); format != "" {
			return renderInvoice(cmd, a, inv, format)
		}
		return nil
	}),
}

var invoiceListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List invoices",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		q := db.InvoiceQuery{BaseQuery: db.BaseQuery{PageSize: db.MaxPageSize}}
		q.Status, _ = cmd.Flags().GetStringSlice("status")
		if ref, _ := cmd.Flags().GetString("customer"); ref != "" {
			customer, err := a.findCustomer(ctx, ref)
			if err != nil {
				return err
			}
			q.CustomerIDs = []uint{customer.ID}
		}
		page, err := a.store.ListInvoices(ctx, q)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			fmt.Println("No invoices found")
			return nil
		}
		fmt.Printf("%-5s %-14s %-25s %-10s %-9s %12s\n", "ID", "NUMBER", "CUSTOMER", "DATE", "STATUS", "TOTAL")
		fmt.Println(strings.Repeat("-", 80))
		for _, inv := range page.Items {
			fmt.Printf("%-5d %-14s %-25s %-10s %-9s %8.2f %s\n", inv.ID, inv.InvoiceNumber, truncate(inv.Customer.Name, 25),
				inv.CreatedAt.Format("2006-01-02"), inv.Status, inv.Total, inv.Currency)
		}
		return nil
	}),
}

var invoiceStatusCmd = &cobra.Command{
	Use:   "status <id> <new|pending|paid|canceled>",
	Short: "Change the status of an invoice",
	Args:  cobra.ExactArgs(2),
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid invoice id %q", args[0])
		}
		var paymentDate *time.Time
		if paid, _ := cmd.Flags().GetString("payment-date"); paid != "" {
			day, err := parser.ParseDate(paid, a.store.Now().In(user.Location()))
			if err != nil {
				return err
			}
			paymentDate = &day
		}
		inv, err := a.invoices.ChangeStatus(cmd.Context(), uint(id), strings.ToLower(args[1]), paymentDate, user.ID)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Invoice %s is now %s\n", inv.InvoiceNumber, inv.Status)
		return nil
	}),
}

var invoiceRenderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Write a stored invoice to a file",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid invoice id %q", args[0])
		}
		inv, err := a.store.GetInvoice(cmd.Context(), uint(id))
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("render")
		return renderInvoice(cmd, a, inv, format)
	}),
}

var invoiceTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage invoice templates",
}

var invoiceTemplateAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an invoice template",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		tmpl := &models.InvoiceTemplate{Name: strings.Join(args, " ")}
		tmpl.Title, _ = cmd.Flags().GetString("title")
		tmpl.Company, _ = cmd.Flags().GetString("company")
		tmpl.Address, _ = cmd.Flags().GetString("address")
		tmpl.VatID, _ = cmd.Flags().GetString("vat-id")
		tmpl.Vat, _ = cmd.Flags().GetFloat64("vat")
		tmpl.DueDays, _ = cmd.Flags().GetInt("due-days")
		tmpl.Calculator, _ = cmd.Flags().GetString("calculator")
		tmpl.Renderer, _ = cmd.Flags().GetString("renderer")
		tmpl.NumberFormat, _ = cmd.Flags().GetString("number-format")
		tmpl.PaymentTerms, _ = cmd.Flags().GetString("payment-terms")
		tmpl.PaymentDetails, _ = cmd.Flags().GetString("payment-details")
		if err := a.invoices.SaveTemplate(cmd.Context(), tmpl); err != nil {
			return err
		}
		fmt.Printf("✅ Invoice template %q added - ID: %d\n", tmpl.Name, tmpl.ID)
		return nil
	}),
}

var invoiceTemplateListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List invoice templates",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		list, err := a.store.ListInvoiceTemplates(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-25s %-10s %-10s %s\n", "ID", "NAME", "CALCULATOR", "RENDERER", "VAT")
		for _, t := range list {
			fmt.Printf("%-5d %-25s %-10s %-10s %.1f%%\n", t.ID, truncate(t.Name, 25), t.Calculator, t.Renderer, t.Vat)
		}
		return nil
	}),
}

func printInvoice(inv *models.Invoice) {
	fmt.Printf("🧾 Invoice %s for %s\n", inv.InvoiceNumber, inv.Customer.Name)
	for _, item := range inv.Items {
		fmt.Printf("   %-45s %8.2f x %8.2f = %10.2f\n", truncate(item.Description, 45), item.Amount, item.HourlyRate, item.Rate)
	}
	fmt.Printf("   %-45s %34.2f\n", "Subtotal", inv.Subtotal)
	fmt.Printf("   %-45s %34.2f\n", fmt.Sprintf("Tax %.1f%%", inv.Vat), inv.Tax)
	fmt.Printf("   %-45s %30.2f %s\n", "Total", inv.Total, inv.Currency)
	fmt.Printf("   Due %s\n", inv.DueDate().Format("2006-01-02"))
}

func renderInvoice(cmd *cobra.Command, a *app, inv *models.Invoice, format string) error {
	rendered, err := a.invoices.Render(cmd.Context(), inv, format)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = rendered.Filename
	}
	if err := writeFile(output, rendered.Body); err != nil {
		return err
	}
	fmt.Printf("📄 Written to %s\n", output)
	return nil
}

func init() {
	invoiceCreateCmd.Flags().String("customer", "", "Customer name or id")
	invoiceCreateCmd.Flags().Uint("template", 0, "Invoice template id")
	invoiceCreateCmd.Flags().String("from", "", "First day of billed records")
	invoiceCreateCmd.Flags().String("to", "", "Last day of billed records, inclusive")
	invoiceCreateCmd.Flags().Bool("mark", true, "Mark the billed records as exported")
	invoiceCreateCmd.Flags().Bool("include-exported", false, "Also bill records already exported")
	invoiceCreateCmd.Flags().String("comment", "", "Comment printed on the invoice")
	invoiceCreateCmd.Flags().Bool("preview", false, "Calculate without saving")
	invoiceCreateCmd.Flags().String("render", "", "Also write the invoice as html, pdf, xlsx or json")
	invoiceCreateCmd.Flags().StringP("output", "o", "", "Output file for --render")
	_ = invoiceCreateCmd.MarkFlagRequired("customer")
	_ = invoiceCreateCmd.MarkFlagRequired("template")

	invoiceListCmd.Flags().StringSlice("status", nil, "Only these statuses")
	invoiceListCmd.Flags().String("customer", "", "Only this customer")

	invoiceStatusCmd.Flags().String("payment-date", "", "Payment date when marking as paid, default today")

	invoiceRenderCmd.Flags().String("render", "", "html, pdf, xlsx or json; default from the template")
	invoiceRenderCmd.Flags().StringP("output", "o", "", "Output file")

	invoiceTemplateAddCmd.Flags().String("title", "Invoice", "Document title")
	invoiceTemplateAddCmd.Flags().String("company", "", "Your company name")
	invoiceTemplateAddCmd.Flags().String("address", "", "Your address")
	invoiceTemplateAddCmd.Flags().String("vat-id", "", "Your VAT id")
	invoiceTemplateAddCmd.Flags().Float64("vat", 0, "VAT percentage")
	invoiceTemplateAddCmd.Flags().Int("due-days", 30, "Days until payment is due")
	invoiceTemplateAddCmd.Flags().String("calculator", invoice.CalculatorDefault, "Grouping: "+strings.Join(invoice.CalculatorIDs(), ", "))
	invoiceTemplateAddCmd.Flags().String("renderer", "", "Default renderer: html, pdf, xlsx or json")
	invoiceTemplateAddCmd.Flags().String("number-format", "", "Number format, e.g. {Y}/{cy,3}")
	invoiceTemplateAddCmd.Flags().String("payment-terms", "", "Payment terms text")
	invoiceTemplateAddCmd.Flags().String("payment-details", "", "Bank details")
	_ = invoiceTemplateAddCmd.MarkFlagRequired("company")
	invoiceTemplateCmd.AddCommand(invoiceTemplateAddCmd, invoiceTemplateListCmd)

	invoiceCmd.AddCommand(invoiceCreateCmd, invoiceListCmd, invoiceStatusCmd, invoiceRenderCmd, invoiceTemplateCmd)
}
