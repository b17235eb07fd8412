package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams",
}

var teamAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a team led by --lead",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		leadName, _ := cmd.Flags().GetString("lead")
		lead, err := a.store.GetUserByName(ctx, leadName)
		if err != nil {
			return err
		}
		color, _ := cmd.Flags().GetString("color")
		team, err := a.store.CreateTeam(ctx, strings.Join(args, " "), color, lead.ID)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Team %q added - ID: %d, lead: %s\n", team.Name, team.ID, lead.Username)
		return nil
	}),
}

var teamMemberCmd = &cobra.Command{
	Use:   "member <team> <username>",
	Short: "Add or remove a team member",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		team, err := a.findTeam(ctx, args[0])
		if err != nil {
			return err
		}
		user, err := a.store.GetUserByName(ctx, args[1])
		if err != nil {
			return err
		}

		if remove, _ := cmd.Flags().GetBool("remove"); remove {
			if _, err := a.store.RemoveTeamMember(ctx, team.ID, user.ID); err != nil {
				return err
			}
			fmt.Printf("➖ Removed %s from %s\n", user.Username, team.Name)
			return nil
		}
		lead, _ := cmd.Flags().GetBool("lead")
		if _, err := a.store.AddTeamMember(ctx, team.ID, user.ID, lead); err != nil {
			return err
		}
		role := "member"
		if lead {
			role = "team lead"
		}
		fmt.Printf("➕ Added %s to %s as %s\n", user.Username, team.Name, role)
		return nil
	}),
}

var teamAssignCmd = &cobra.Command{
	Use:   "assign <team> <customer|project|activity> <name-or-id>",
	Short: "Restrict a customer, project or activity to a team",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		team, err := a.findTeam(ctx, args[0])
		if err != nil {
			return err
		}

		var id uint
		switch args[1] {
		case db.AssignCustomer:
			c, err := a.findCustomer(ctx, args[2])
			if err != nil {
				return err
			}
			id = c.ID
		case db.AssignProject:
			p, err := a.findProject(ctx, args[2])
			if err != nil {
				return err
			}
			id = p.ID
		case db.AssignActivity:
			n, err := strconv.ParseUint(args[2], 10, 32)
			if err != nil {
				return fmt.Errorf("activities are assigned by id")
			}
			id = uint(n)
		default:
			return fmt.Errorf("unknown kind %q, use customer, project or activity", args[1])
		}

		if remove, _ := cmd.Flags().GetBool("remove"); remove {
			_, err = a.store.UnassignFromTeam(ctx, team.ID, args[1], id)
		} else {
			_, err = a.store.AssignToTeam(ctx, team.ID, args[1], id)
		}
		if err != nil {
			return err
		}
		fmt.Printf("✅ Updated %s #%d for team %s\n", args[1], id, team.Name)
		return nil
	}),
}

var teamListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List teams with their members",
	Args:    cobra.NoArgs,
	RunE: withApp(false, func(cmd *cobra.Command, args []string, a *app) error {
		page, err := a.store.ListTeams(cmd.Context(), db.TeamQuery{BaseQuery: db.BaseQuery{PageSize: db.MaxPageSize}})
		if err != nil {
			return err
		}
		for _, team := range page.Items {
			fmt.Printf("#%d %s\n", team.ID, team.Name)
			for _, m := range team.Members {
				marker := " "
				if m.Teamlead {
					marker = "*"
				}
				fmt.Printf("   %s %s\n", marker, m.User.Username)
			}
		}
		return nil
	}),
}

func (a *app) findTeam(ctx context.Context, ref string) (*models.Team, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return a.store.GetTeam(ctx, uint(id))
	}
	page, err := a.store.ListTeams(ctx, db.TeamQuery{BaseQuery: db.BaseQuery{Term: ref, PageSize: db.MaxPageSize}})
	if err != nil {
		return nil, err
	}
	for _, team := range page.Items {
		if strings.EqualFold(team.Name, ref) {
			return a.store.GetTeam(ctx, team.ID)
		}
	}
	return nil, fmt.Errorf("team %q: %w", ref, db.ErrNotFound)
}

func init() {
	teamAddCmd.Flags().String("lead", "", "Username of the team lead")
	teamAddCmd.Flags().String("color", "", "Hex color like #3b82f6")
	_ = teamAddCmd.MarkFlagRequired("lead")

	teamMemberCmd.Flags().Bool("lead", false, "Make the member a team lead")
	teamMemberCmd.Flags().Bool("remove", false, "Remove instead of add")

	teamAssignCmd.Flags().Bool("remove", false, "Remove the assignment")

	teamCmd.AddCommand(teamAddCmd, teamMemberCmd, teamAssignCmd, teamListCmd)
}
