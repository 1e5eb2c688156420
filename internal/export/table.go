// Package export turns engine statements into tabular sheets.
//
// Nothing here computes a figure of its own: every amount is copied from a
// statement, and rounding to two digits happens only in Values.
package export

import (
	"fmt"

	"barriada/internal/core"
)

const (
	SheetContributions = "Pagos"
	SheetExpenses      = "Gastos"
	SheetDues          = "Cuota"
	SheetBalance       = "Saldos"
)

var (
	ContributionHeader = []string{"Casa", "Monto", "Fecha", "Notas", "Comprobante"}
	ExpenseHeader      = []string{"Descripción", "Monto", "Fecha", "Factura"}
	DuesHeader         = []string{"Casa", "Monto", "Fecha", "Comprobante", "Pendiente"}
	BalanceHeader      = []string{"Casa", "Pagado", "Esperado", "Pendiente"}
)

// Table is one sheet: a fixed header and typed rows. Cells hold
// core.Unit, core.Money, core.Date, string or nil.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]any
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Values renders the header and rows as plain spreadsheet values.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, row := range t.Rows {
		vals := make([]any, len(row))
		for i, cell := range row {
			vals[i] = cellValue(cell)
		}
		out = append(out, vals)
	}
	return out
}

func cellValue(cell any) any {
	switch v := cell.(type) {
	case nil:
		return ""
	case core.Money:
		return v.Float64()
	case core.Unit:
		return int(v)
	case core.Date:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// GlobalTables renders the general statement as Pagos and Gastos sheets.
func GlobalTables(st core.GlobalStatement) []Table {
	pagos := Table{Sheet: SheetContributions, Header: ContributionHeader}
	for _, c := range st.Contributions {
		pagos.Rows = append(pagos.Rows, []any{c.Unit, c.Amount, c.PaidDate, c.Notes, c.AttachmentRef})
	}
	gastos := Table{Sheet: SheetExpenses, Header: ExpenseHeader}
	for _, e := range st.Expenses {
		gastos.Rows = append(gastos.Rows, []any{e.Description, e.Amount, e.PaidDate, e.ReceiptRef})
	}
	return []Table{pagos, gastos}
}

// AssessmentTables renders one line per unit. Units that have not paid
// keep empty amount, date and receipt cells.
func AssessmentTables(st core.AssessmentStatement) []Table {
	t := Table{Sheet: SheetDues, Header: DuesHeader}
	for _, u := range st.Units {
		if u.Payment == nil {
			t.Rows = append(t.Rows, []any{u.Unit, nil, nil, nil, u.Pending})
			continue
		}
		t.Rows = append(t.Rows, []any{u.Unit, u.Paid, u.Payment.PaidDate, u.Payment.AttachmentRef, u.Pending})
	}
	return []Table{t}
}

func BalanceTables(st core.BalanceStatement) []Table {
	t := Table{Sheet: SheetBalance, Header: BalanceHeader}
	for _, b := range st.Units {
		t.Rows = append(t.Rows, []any{b.Unit, b.PaidTotal, b.Expected, b.Pending})
	}
	return []Table{t}
}

// Filename names the workbook after the unit filter.
func Filename(unit core.Unit) string {
	if unit == core.AllUnits {
		return "statement_general.xlsx"
	}
	return fmt.Sprintf("statement_%d.xlsx", int(unit))
}
