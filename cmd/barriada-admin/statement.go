package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"barriada/internal/core"
	"barriada/internal/export"
	"barriada/internal/services"
)

func newStatementCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Print statements as JSON or write them as xlsx workbooks",
	}

	global := &cobra.Command{
		Use:   "global",
		Short: "Contributions, expenses and available cash",
		Example: `  barriada-admin statement global
  barriada-admin statement global --unit 4 --xlsx casa4.xlsx`,
		Args: cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			unit, _ := cmd.Flags().GetInt("unit")
			st, err := ledger.GlobalStatement(cmd.Context(), core.Unit(unit))
			if err != nil {
				return err
			}
			return emit(cmd, st, export.GlobalTables(st))
		}),
	}
	global.Flags().Int("unit", 0, "Limit contributions to one unit (0 for every unit)")

	assessment := &cobra.Command{
		Use:   "assessment ID",
		Short: "Per-unit paid and pending amounts for one dues call",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := ledger.AssessmentStatement(cmd.Context(), id)
			if err != nil {
				return err
			}
			return emit(cmd, st, export.AssessmentTables(st))
		}),
	}

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Per-unit position across every dues call",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			st, err := ledger.Balance(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, st, export.BalanceTables(st))
		}),
	}

	for _, c := range []*cobra.Command{global, assessment, balance} {
		c.Flags().String("xlsx", "", "Write an xlsx workbook to this path instead of printing JSON")
		cmd.AddCommand(c)
	}
	return cmd
}

// emit prints v as JSON, or writes tables to the --xlsx path when set.
func emit(cmd *cobra.Command, v any, tables []export.Table) (err error) {
	path, _ := cmd.Flags().GetString("xlsx")
	if path == "" {
		return printJSON(cmd.OutOrStdout(), v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := export.WriteXLSX(f, tables); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	component("statement").Info().Str("path", path).Int("sheets", len(tables)).Msg("Workbook written")
	return nil
}
