package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/models"
)

const dateLayout = "02/01/2006"

func formatDeadline(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

// deadlineFlag labels the deadline state of a movement or occurrence
func deadlineFlag(overdue, near, extended bool) string {
	label := "no prazo"
	switch {
	case overdue:
		label = "VENCIDO"
	case near:
		label = "PRÓXIMO"
	}
	if extended {
		label += " (prorrogado)"
	}
	return label
}

func (a *cli) printMovements(movements []models.OccurrenceMovement) error {
	w := a.table()
	fmt.Fprintln(w, "WHEN\tBY\tDEADLINE\tFLAG\tDESCRIPTION")
	for _, m := range movements {
		by := m.PerformedBy.Name
		if m.IsSystemGenerated {
			by = "sistema"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.PerformedAt.Local().Format("02/01/2006 15:04"), by, formatDeadline(m.Deadline),
			deadlineFlag(m.IsOverdue, m.IsNearDeadline, m.WasExtended), m.Description)
	}
	return w.Flush()
}

func (a *cli) movementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "movements",
		Aliases: []string{"mv"},
		Short:   "Occurrence history and deadlines",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			return a.guard(client.AuthGuard)
		},
	}
	cmd.AddCommand(a.movementsListCmd(), a.movementsAddCmd(), a.movementsExtendCmd(), a.movementsStatusCmd())
	return cmd
}

func (a *cli) movementsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <occurrence-id>",
		Short: "List the movements of an occurrence, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movements, err := a.c.Movements.ForOccurrence(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar movimentações."))
			}
			return a.printMovements(movements)
		},
	}
}

func (a *cli) movementsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <occurrence-id>",
		Short: "Add a note to the history of an occurrence",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.guard(client.EditingAccessGuard)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			m, err := a.c.Workflow().AddMovement(cmd.Context(), client.AddMovementInput{OccurrenceID: args[0], Description: description})
			if err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, m.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "what happened")
	return cmd
}

func (a *cli) movementsExtendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extend <occurrence-id>",
		Short: "Extend the deadline of an occurrence",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.guard(client.EditingAccessGuard)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			justification, _ := cmd.Flags().GetString("justification")
			o, err := a.c.Occurrences.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar dados da ocorrência."))
			}
			m, err := a.c.Workflow().ExtendDeadline(cmd.Context(), *o, client.ExtendDeadlineInput{ExtensionDays: days, Justification: justification})
			if err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "new deadline %s\n", formatDeadline(m.Deadline))
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "days to add, 1 to 365")
	cmd.Flags().StringP("justification", "j", "", "why the deadline moves, at least 20 characters")
	return cmd
}

func (a *cli) movementsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Deadline status of every occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			search, _ := cmd.Flags().GetString("search")
			p, err := a.c.Movements.DeadlineStatusPage(cmd.Context(), client.ListQuery{Page: page, Limit: limit, Search: search})
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar prazos."))
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tCASE\tSTATUS\tDEADLINE\tFLAG\tEXPERT")
			for _, d := range p.Data {
				expert := "-"
				if d.ResponsibleExpert != nil && d.ResponsibleExpert.ID != "" {
					expert = d.ResponsibleExpert.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, orDash(d.CaseNumber), d.Status, formatDeadline(d.Deadline),
					deadlineFlag(d.IsOverdue, d.IsNearDeadline, d.WasExtended), expert)
			}
			fmt.Fprintf(w, "\npage %d, %d of %d\n", p.Page, len(p.Data), p.Total)
			return w.Flush()
		},
	}
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", client.DefaultPageSize, "rows per page")
	cmd.Flags().String("search", "", "case number")
	return cmd
}

func (a *cli) deadlinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "Deadline maintenance",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			return a.guard(client.AdminGuard)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Recompute the overdue and near deadline flags now",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.c.Workflow().RefreshDeadlineFlags(cmd.Context())
			if err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "%d movements updated, %d overdue\n", res.Updated, res.Expired)
			return nil
		},
	})
	return cmd
}
