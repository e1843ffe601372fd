package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/models"
)

func (a *cli) occurrencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "occurrences",
		Aliases: []string{"oc"},
		Short:   "Browse and close occurrences",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			return a.guard(client.AuthGuard)
		},
	}
	cmd.AddCommand(a.occurrencesListCmd(), a.occurrencesShowCmd(), a.occurrencesWatchCmd(), a.occurrencesCloseCmd())
	return cmd
}

func listFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", client.DefaultPageSize, "rows per page")
	cmd.Flags().String("search", "", "case number or history text")
	cmd.Flags().String("service", client.AllForensicServices, "forensic service id")
	cmd.Flags().Bool("mine", false, "only occurrences assigned to me")
}

func occurrenceQuery(cmd *cobra.Command) client.OccurrenceQuery {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")
	service, _ := cmd.Flags().GetString("service")
	mine, _ := cmd.Flags().GetBool("mine")
	q := client.OccurrenceQuery{ListQuery: client.ListQuery{Page: page, Limit: limit, Search: search}, OnlyMine: mine}
	if service != client.AllForensicServices {
		q.ForensicServiceID = service
	}
	return q
}

func (a *cli) printOccurrences(p models.Page[models.GeneralOccurrence]) error {
	w := a.table()
	fmt.Fprintln(w, "ID\tCASE\tDATE\tSTATUS\tSERVICE\tEXPERT\tBADGE")
	for _, o := range p.Data {
		service, expert := "-", "-"
		if o.ForensicService != nil {
			service = o.ForensicService.Name
		}
		if !o.IsPool() {
			expert = o.ResponsibleExpert.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID.Hex(), orDash(o.CaseNumber), o.OccurrenceDate.Local().Format("02/01/2006 15:04"),
			o.Status, service, expert, client.AssignmentBadge(o))
	}
	fmt.Fprintf(w, "\npage %d, %d of %d\n", p.Page, len(p.Data), p.Total)
	return w.Flush()
}

func (a *cli) occurrencesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List occurrences",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.c.Occurrences.List(cmd.Context(), occurrenceQuery(cmd))
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar ocorrências."))
			}
			return a.printOccurrences(*p)
		},
	}
	listFlags(cmd)
	return cmd
}

func (a *cli) occurrencesWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a listing on screen and reload it when occurrences change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			q := occurrenceQuery(cmd)
			list := client.NewOccurrenceList(a.c, client.WithDebounce(0), client.WithPageSize(q.Limit), client.OnChange(func(p models.Page[models.GeneralOccurrence]) {
				fmt.Fprintln(a.out)
				_ = a.printOccurrences(p)
			}))
			defer list.Close()
			if q.OnlyMine {
				list.SetOnlyMine(true)
			}
			if q.ForensicServiceID != "" {
				list.SetForensicService(q.ForensicServiceID)
			}
			list.SetSearch(q.Search)
			list.Wait()
			list.SetPage(q.Page, q.Limit)

			if err := list.Follow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s", client.Message(err, "Conexão com o servidor perdida."))
			}
			return nil
		},
	}
	listFlags(cmd)
	return cmd
}

func (a *cli) occurrencesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one occurrence and its movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.c.Occurrences.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar dados da ocorrência."))
			}
			w := a.table()
			fmt.Fprintf(w, "case\t%s\n", orDash(o.CaseNumber))
			fmt.Fprintf(w, "status\t%s\n", o.Status)
			fmt.Fprintf(w, "date\t%s\n", o.OccurrenceDate.Local().Format("02/01/2006 15:04"))
			fmt.Fprintf(w, "procedure number\t%s\n", orDash(o.ProcedureNumber))
			refs := []struct {
				label string
				ref   *models.Reference
			}{
				{"city", o.City},
				{"service", o.ForensicService},
				{"classification", o.OccurrenceClassification},
				{"requesting unit", o.RequestingUnit},
				{"authority", o.RequestingAuthority},
			}
			for _, r := range refs {
				if r.ref != nil {
					fmt.Fprintf(w, "%s\t%s\n", r.label, r.ref.Name)
				}
			}
			fmt.Fprintf(w, "assignment\t%s\n", client.AssignmentBadge(*o))
			fmt.Fprintf(w, "locked\t%t\n", o.IsLocked)
			keys := make([]string, 0, len(o.AdditionalFields))
			for k := range o.AdditionalFields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, o.AdditionalFields[k])
			}
			fmt.Fprintf(w, "\nhistory\t%s\n", o.History)
			if err := w.Flush(); err != nil {
				return err
			}

			movements, err := a.c.Movements.ForOccurrence(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintln(a.err, client.Message(err, "Falha ao carregar movimentações."))
				return nil
			}
			fmt.Fprintln(a.out)
			return a.printMovements(movements)
		},
	}
}

func (a *cli) occurrencesCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Conclude or cancel an occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			observations, _ := cmd.Flags().GetString("observations")
			o, err := a.c.Occurrences.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", client.Message(err, "Falha ao carregar dados da ocorrência."))
			}
			updated, err := a.c.Workflow().ChangeStatus(cmd.Context(), *o, client.ChangeStatusInput{Status: status, Observations: observations})
			if err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "%s is now %s\n", updated.ID.Hex(), updated.Status)
			return nil
		},
	}
	cmd.Flags().String("status", models.StatusConcluded, "CONCLUIDA or CANCELADA")
	cmd.Flags().String("observations", "", "why the status changed")
	return cmd
}
