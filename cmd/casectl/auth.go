package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/forensic-case-api/client"
)

func (a *cli) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password := a.v.GetString("email"), a.v.GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or CASECTL_PASSWORD) are required")
			}
			if err := a.c.Auth.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("%s", client.ServerMessage(err, "Falha ao entrar."))
			}
			s := a.c.Session()
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", s.UserName(), s.Role())
			return nil
		},
	}
	cmd.Flags().String("email", "", "account e-mail")
	cmd.Flags().String("password", "", "account password")
	_ = a.v.BindPFlag("email", cmd.Flags().Lookup("email"))
	_ = a.v.BindPFlag("password", cmd.Flags().Lookup("password"))
	return cmd
}

func (a *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.c.Auth.Logout(cmd.Context()); err != nil {
				a.c.Session().Logout()
				fmt.Fprintln(a.err, client.Message(err, "Sessão encerrada localmente."))
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user and what they may do",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.guard(client.AuthGuard); err != nil {
				return err
			}
			s := a.c.Session()
			if _, err := s.Claims(); err != nil {
				return fmt.Errorf("stored token is unreadable, log in again")
			}
			caps := s.Capabilities()
			w := a.table()
			fmt.Fprintf(w, "id\t%s\n", s.UserID())
			fmt.Fprintf(w, "name\t%s\n", s.UserName())
			fmt.Fprintf(w, "role\t%s\n", s.Role())
			fmt.Fprintf(w, "edit occurrences\t%t\n", caps.CanCreateOrEdit)
			fmt.Fprintf(w, "add movements\t%t\n", caps.CanAddMovement)
			fmt.Fprintf(w, "admin modules\t%t\n", caps.CanAccessAdminModules)
			fmt.Fprintf(w, "super admin\t%t\n", caps.IsSuperAdmin)
			return w.Flush()
		},
	}
}
