package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"barriada/internal/attachments"
	"barriada/internal/core"
	"barriada/internal/services"
)

func newAssessmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assessment",
		Aliases: []string{"cuota"},
		Short:   "Create, list and delete dues calls",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a dues call charged to every unit",
		Example: `  barriada-admin assessment create --name "Pintura fachada" --amount 150.00
  barriada-admin assessment create --name "Ascensor" --amount 80 --date 2025-03-01`,
		Args: cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			name, _ := cmd.Flags().GetString("name")
			amount, err := flagMoney(cmd, "amount")
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			created, err := ledger.CreateAssessment(cmd.Context(), services.AssessmentInput{Name: name, Amount: amount, IssueDate: date})
			if err != nil {
				return err
			}
			component("assessment").Info().Int64("id", created.ID).Str("amount", created.Amount.Display()).Msg("Assessment created")
			return printJSON(cmd.OutOrStdout(), created)
		}),
	}
	create.Flags().String("name", "", "Assessment name")
	create.Flags().String("amount", "", "Amount charged to each unit")
	create.Flags().String("date", "", "Issue date YYYY-MM-DD (default: today)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("amount")

	list := &cobra.Command{
		Use:   "list",
		Short: "List dues calls, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			items, err := ledger.ListAssessments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		}),
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a dues call and every payment against it",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error {
			return deleteByID(cmd, args[0], "assessment", ledger.DeleteAssessment)
		}),
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func newPaymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record and delete payments against a dues call",
	}

	record := &cobra.Command{
		Use:     "record",
		Short:   "Record a unit's payment of a dues call, dated today",
		Example: `  barriada-admin payment record --assessment 3 --unit 7 --amount 150 --file comprobante.pdf`,
		Args:    cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			assessmentID, _ := cmd.Flags().GetInt64("assessment")
			unit, _ := cmd.Flags().GetInt("unit")
			amount, err := flagMoney(cmd, "amount")
			if err != nil {
				return err
			}
			file, closer, err := flagAttachment(cmd)
			if err != nil {
				return err
			}
			defer closeIfSet(closer)

			p, err := ledger.RecordAssessmentPayment(cmd.Context(), services.PaymentInput{
				AssessmentID: assessmentID,
				Unit:         core.Unit(unit),
				Amount:       amount,
				Attachment:   file,
			})
			if err != nil {
				return err
			}
			component("payment").Info().Int64("id", p.ID).Int("unit", int(p.Unit)).Msg("Payment recorded")
			return printJSON(cmd.OutOrStdout(), p)
		}),
	}
	record.Flags().Int64("assessment", 0, "Assessment id")
	record.Flags().Int("unit", 0, "Unit number")
	record.Flags().String("amount", "", "Amount paid")
	record.Flags().String("file", "", "Proof of payment to upload")
	for _, f := range []string{"assessment", "unit", "amount"} {
		_ = record.MarkFlagRequired(f)
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one assessment payment",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error {
			return deleteByID(cmd, args[0], "payment", ledger.DeleteAssessmentPayment)
		}),
	}

	cmd.AddCommand(record, del)
	return cmd
}

func newContributionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contribution",
		Aliases: []string{"pago"},
		Short:   "Record, list and delete unit contributions",
	}

	record := &cobra.Command{
		Use:   "record",
		Short: "Record money paid in by a unit",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			unit, _ := cmd.Flags().GetInt("unit")
			notes, _ := cmd.Flags().GetString("notes")
			amount, err := flagMoney(cmd, "amount")
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			file, closer, err := flagAttachment(cmd)
			if err != nil {
				return err
			}
			defer closeIfSet(closer)

			c, err := ledger.RecordContribution(cmd.Context(), services.ContributionInput{
				Unit:       core.Unit(unit),
				Amount:     amount,
				PaidDate:   date,
				Notes:      notes,
				Attachment: file,
			})
			if err != nil {
				return err
			}
			component("contribution").Info().Int64("id", c.ID).Int("unit", int(c.Unit)).Msg("Contribution recorded")
			return printJSON(cmd.OutOrStdout(), c)
		}),
	}
	record.Flags().Int("unit", 0, "Unit number")
	record.Flags().String("amount", "", "Amount paid")
	record.Flags().String("date", "", "Paid date YYYY-MM-DD (default: today)")
	record.Flags().String("notes", "", "Free-form notes")
	record.Flags().String("file", "", "Proof of payment to upload")
	_ = record.MarkFlagRequired("unit")
	_ = record.MarkFlagRequired("amount")

	list := &cobra.Command{
		Use:   "list",
		Short: "List contributions, optionally for one unit",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			unit, _ := cmd.Flags().GetInt("unit")
			items, err := ledger.ListContributions(cmd.Context(), core.Unit(unit))
			if err != nil {
				return err
			}
			total, err := ledger.ContributionTotal(cmd.Context(), core.Unit(unit))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"items": items, "total": total})
		}),
	}
	list.Flags().Int("unit", 0, "Unit number (0 for every unit)")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one contribution",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error {
			return deleteByID(cmd, args[0], "contribution", ledger.DeleteContribution)
		}),
	}

	cmd.AddCommand(record, list, del)
	return cmd
}

func newExpenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"gasto"},
		Short:   "Record, list and delete community expenses",
	}

	record := &cobra.Command{
		Use:   "record",
		Short: "Record money paid out by the community",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			desc, _ := cmd.Flags().GetString("description")
			amount, err := flagMoney(cmd, "amount")
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			file, closer, err := flagAttachment(cmd)
			if err != nil {
				return err
			}
			defer closeIfSet(closer)

			e, err := ledger.RecordExpense(cmd.Context(), services.ExpenseInput{
				Description: desc,
				Amount:      amount,
				PaidDate:    date,
				Receipt:     file,
			})
			if err != nil {
				return err
			}
			component("expense").Info().Int64("id", e.ID).Str("amount", e.Amount.Display()).Msg("Expense recorded")
			return printJSON(cmd.OutOrStdout(), e)
		}),
	}
	record.Flags().String("description", "", "What the money was spent on")
	record.Flags().String("amount", "", "Amount paid")
	record.Flags().String("date", "", "Paid date YYYY-MM-DD (default: today)")
	record.Flags().String("file", "", "Receipt to upload")
	_ = record.MarkFlagRequired("description")
	_ = record.MarkFlagRequired("amount")

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses with their total",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			items, err := ledger.ListExpenses(cmd.Context())
			if err != nil {
				return err
			}
			total, err := ledger.ExpenseTotal(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"items": items, "total": total})
		}),
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one expense",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error {
			return deleteByID(cmd, args[0], "expense", ledger.DeleteExpense)
		}),
	}

	cmd.AddCommand(record, list, del)
	return cmd
}

func flagMoney(cmd *cobra.Command, name string) (core.Money, error) {
	raw, _ := cmd.Flags().GetString(name)
	return core.ParseMoney(raw)
}

// flagDate returns the zero Date for an empty flag; the service then uses
// today.
func flagDate(cmd *cobra.Command, name string) (core.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(raw)
}

func flagAttachment(cmd *cobra.Command) (*attachments.File, io.Closer, error) {
	path, _ := cmd.Flags().GetString("file")
	return openAttachment(path)
}

func closeIfSet(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func deleteByID(cmd *cobra.Command, raw, what string, del func(ctx context.Context, id int64) error) error {
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	if err := del(cmd.Context(), id); err != nil {
		return err
	}
	component(what).Info().Int64("id", id).Msg("Deleted")
	return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": what, "id": id})
}
