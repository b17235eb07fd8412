package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export timesheet records to a file",
	Long: `Export timesheet records as csv, xlsx, pdf, html or json.

Examples:
  hourly export --from 2026-03-01 --to 2026-03-31 --format xlsx
  hourly export --customer Acme --exported=false --mark -o acme.csv`,
	Args: cobra.NoArgs,
	RunE: withUser(func(cmd *cobra.Command, args []string, a *app, user *models.User) error {
		q, err := a.timesheetQuery(cmd, user)
		if err != nil {
			return err
		}
		q.State = db.StateStopped

		format, _ := cmd.Flags().GetString("format")
		columns, _ := cmd.Flags().GetStringSlice("columns")
		mark, _ := cmd.Flags().GetBool("mark")
		title, _ := cmd.Flags().GetString("title")

		if !a.voter.Records(*user, permissions.AttrExport, q.UserIDs) {
			return fmt.Errorf("exporting records: %w", permissions.ErrAccessDenied)
		}
		if mark && !a.voter.Records(*user, permissions.AttrEditExport, q.UserIDs) {
			return fmt.Errorf("marking records as exported: %w", permissions.ErrAccessDenied)
		}

		result, err := a.exporter.Export(cmd.Context(), export.Request{
			Format:       strings.ToLower(format),
			Query:        q,
			Columns:      columns,
			ShowRates:    a.voter.Records(*user, permissions.AttrViewRate, q.UserIDs),
			MarkExported: mark,
			UserID:       user.ID,
			Title:        title,
		})
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = result.Filename
		}
		if err := writeFile(output, result.Body); err != nil {
			return err
		}
		fmt.Printf("📄 Exported to %s (%d bytes)\n", output, len(result.Body))
		return nil
	}),
}

func writeFile(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	addQueryFlags(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "csv, xlsx, pdf, html or json")
	exportCmd.Flags().StringSlice("columns", nil, "Columns to include, default all")
	exportCmd.Flags().Bool("mark", false, "Mark the exported records as exported")
	exportCmd.Flags().String("title", "", "Document title")
	exportCmd.Flags().StringP("output", "o", "", "Output file, default hourly-export-<from>-<to>.<ext>")
}
