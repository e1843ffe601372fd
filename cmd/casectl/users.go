package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/forensic-case-api/client"
)

func (a *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Approve and manage accounts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			return a.guard(client.AdminGuard)
		},
	}
	cmd.AddCommand(a.usersListCmd(), a.usersApproveCmd(), a.usersRejectCmd())
	return cmd
}

func (a *cli) usersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			page, _ := cmd.Flags().GetInt("page")
			search, _ := cmd.Flags().GetString("search")

			screen := client.NewUserAdmin(a.c, status)
			screen.SetFilter(client.UserQuery{
				ListQuery: client.ListQuery{Page: page, Limit: client.DefaultPageSize, Search: search},
				Status:    status,
			})
			if err := screen.Load(cmd.Context()); err != nil {
				return reported(err)
			}
			users := screen.Users()
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
			for _, u := range users.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID.Hex(), u.Name, u.Email, u.Role, u.Status)
			}
			fmt.Fprintf(w, "\npage %d, %d of %d\n", users.Page, len(users.Data), users.Total)
			return w.Flush()
		},
	}
	cmd.Flags().String("status", "", "pending, active, inactive or rejected")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().String("search", "", "name or e-mail")
	return cmd
}

func (a *cli) usersApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <user-id>",
		Short: "Activate a pending account with a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			user, err := a.c.Users.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Usuário não encontrado."))
			}
			return reported(client.NewUserAdmin(a.c, "").Approve(cmd.Context(), *user, client.ApproveUserInput{Role: role}))
		},
	}
	cmd.Flags().String("role", "", "one of "+strings.Join(client.ApprovableRoles(), ", "))
	return cmd
}

func (a *cli) usersRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <user-id>",
		Short: "Refuse a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.c.Users.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Usuário não encontrado."))
			}
			return reported(client.NewUserAdmin(a.c, "").Reject(cmd.Context(), *user))
		},
	}
}
