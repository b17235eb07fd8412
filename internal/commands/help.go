package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/tui"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for hourly",
	Long:  `Display detailed help for all hourly commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(renderHelp(helpSections))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hourly %s (commit %s, built %s, %s)\n", version, commit, date, runtime.Version())
	},
}

type helpSection struct {
	title    string
	commands []helpCommand
}

type helpCommand struct {
	name        string
	description string
	examples    []string
	flags       []helpFlag
}

type helpFlag struct {
	name        string
	description string
}

var helpSections = []helpSection{
	{
		title: "TRACKING",
		commands: []helpCommand{
			{
				name:        "start [description]",
				description: "Start a running record with the interactive timer",
				flags: []helpFlag{
					{"-p, --project", "Project name or id"},
					{"-a, --activity", "Activity name or id"},
					{"-t, --tags", "Comma separated tags"},
					{"--at", "Begin at hh:mm instead of now"},
					{"--no-ui", "Skip the timer"},
				},
				examples: []string{`hourly start "Landing page @website +development #frontend"`},
			},
			{name: "stop", description: "Stop all running records"},
			{
				name:        "status",
				description: "Show the running record in the timer",
				flags:       []helpFlag{{"--no-ui", "Print instead of opening the timer"}},
			},
			{
				name:        "log [description]",
				description: "Record a finished entry",
				flags: []helpFlag{
					{"-d, --duration", "1h30m, 90m, 1.5h or 1:30"},
					{"--date", "today, yesterday, yyyy-mm-dd, monday, 3 days ago"},
					{"--begin", "Begin at hh:mm"},
				},
				examples: []string{`hourly log "Sprint planning @website +meeting ~1h30m"`},
			},
			{
				name:        "ls",
				description: "List records",
				flags: []helpFlag{
					{"--from, --to", "Date range"},
					{"-p, --project", "Only this project"},
					{"--running", "Only running records"},
					{"-i, --interactive", "Browse in the interactive UI"},
				},
			},
		},
	},
	{
		title: "SMART SYNTAX",
		commands: []helpCommand{
			{name: "#tag1,tag2", description: "Tags"},
			{name: "@project", description: "Project, underscores stand for spaces"},
			{name: "+activity", description: "Activity"},
			{name: "~1h30m", description: "Duration for log"},
		},
	},
	{
		title: "ADMINISTRATION",
		commands: []helpCommand{
			{name: "customer add|ls", description: "Manage customers, --rate sets an hourly rate"},
			{name: "project add|ls", description: "Manage projects of a customer"},
			{name: "activity add|ls", description: "Manage global or project activities"},
			{name: "user add|ls|token|working-time", description: "Manage users, issue API tokens, compare with contract"},
			{name: "team add|member|assign|ls", description: "Manage teams and restrict entities to them"},
		},
	},
	{
		title: "REPORTING AND BILLING",
		commands: []helpCommand{
			{
				name:        "export",
				description: "Export records as csv, xlsx, pdf, html or json",
				examples:    []string{"hourly export --from 2026-03-01 --to 2026-03-31 -f xlsx --mark"},
			},
			{name: "invoice create|ls|status|render|template", description: "Bill records of a customer"},
			{name: "report week", description: "Weekly grid of tracked hours"},
			{name: "report budget <kind> <name>", description: "Budget usage of a customer, project or activity"},
		},
	},
	{
		title: "SERVER",
		commands: []helpCommand{
			{name: "serve", description: "Run the JSON API with /metrics"},
			{name: "version", description: "Print version information"},
		},
	},
}

func renderHelp(sections []helpSection) string {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentMain)).Bold(true)
	heading := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentBright)).Bold(true)
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorSecondaryText))

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(title.Render(tui.Logo))
	b.WriteString("\n\nhourly - time tracking and invoicing\n")

	for _, section := range sections {
		b.WriteString("\n" + heading.Render(section.title) + "\n\n")
		for _, c := range section.commands {
			fmt.Fprintf(&b, "  %-34s %s\n", c.name, c.description)
			for _, f := range c.flags {
				fmt.Fprintf(&b, "    %-32s %s\n", f.name, muted.Render(f.description))
			}
			for _, ex := range c.examples {
				fmt.Fprintf(&b, "    %s\n", muted.Render("$ "+ex))
			}
		}
	}
	b.WriteString("\nGlobal flags: -c/--config <file> (HOURLY_CONFIG), -u/--user <username> (HOURLY_USER)\n")
	b.WriteString("Run 'hourly <command> --help' for all flags of a command.\n\n")
	return b.String()
}
