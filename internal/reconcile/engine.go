// Package reconcile derives account statements from ledger rows.
//
// Every function here is pure: it reads a core.Snapshot and never touches
// storage, so repeated calls over the same snapshot return equal results.
package reconcile

import (
	"context"
	"fmt"

	"barriada/internal/core"
)

// SnapshotReader returns all ledger rows from one consistent read.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

type Engine struct {
	units core.UnitRegistry
}

func New(units core.UnitRegistry) *Engine {
	return &Engine{units: units}
}

func (e *Engine) Units() core.UnitRegistry { return e.units }

// GlobalStatement sums contributions, optionally restricted to one unit,
// against all expenses. Assessment payments are not income here.
func (e *Engine) GlobalStatement(s core.Snapshot, unit core.Unit) core.GlobalStatement {
	st := core.GlobalStatement{
		Unit:          unit,
		Contributions: []core.Contribution{},
		Expenses:      append([]core.Expense{}, s.Expenses...),
	}
	for _, c := range s.Contributions {
		if unit != core.AllUnits && c.Unit != unit {
			continue
		}
		st.Contributions = append(st.Contributions, c)
		st.TotalIncome = st.TotalIncome.Add(c.Amount)
	}
	for _, x := range s.Expenses {
		st.TotalExpense = st.TotalExpense.Add(x.Amount)
	}
	st.Available = st.TotalIncome.Sub(st.TotalExpense)
	return st
}

// AssessmentStatement lists every unit once against assessment id.
func (e *Engine) AssessmentStatement(s core.Snapshot, id int64) (core.AssessmentStatement, error) {
	a, ok := findAssessment(s.Assessments, id)
	if !ok {
		return core.AssessmentStatement{}, core.NotFoundf("assessment %d", id)
	}

	var forAssessment []core.AssessmentPayment
	recorded := make(map[core.Unit]int)
	for _, p := range s.Payments {
		if p.AssessmentID != id {
			continue
		}
		forAssessment = append(forAssessment, p)
		recorded[p.Unit]++
	}
	latest := LatestByUnit(forAssessment)

	st := core.AssessmentStatement{
		Assessment:    a,
		Units:         make([]core.UnitDues, 0, e.units.Total()),
		TotalExpected: a.Amount.Times(e.units.Total()),
	}
	for _, u := range e.units.Units() {
		line := core.UnitDues{Unit: u, Pending: a.Amount, Recorded: recorded[u]}
		if p, ok := latest[u]; ok {
			line.Payment = &p
			line.Paid = p.Amount
			line.Pending = a.Amount.Sub(p.Amount)
		}
		st.TotalPaid = st.TotalPaid.Add(line.Paid)
		st.Units = append(st.Units, line)
	}
	st.TotalPending = st.TotalExpected.Sub(st.TotalPaid)
	return st, nil
}

// Balance reports, per unit, everything paid against every assessment.
// Payments from units outside the registry are ignored.
func (e *Engine) Balance(s core.Snapshot) core.BalanceStatement {
	expected := core.Zero
	for _, a := range s.Assessments {
		expected = expected.Add(a.Amount)
	}
	paid := make(map[core.Unit]core.Money)
	for _, p := range s.Payments {
		paid[p.Unit] = paid[p.Unit].Add(p.Amount)
	}

	st := core.BalanceStatement{
		Units:         make([]core.UnitBalance, 0, e.units.Total()),
		TotalExpected: expected.Times(e.units.Total()),
	}
	for _, u := range e.units.Units() {
		b := core.UnitBalance{
			Unit:      u,
			PaidTotal: paid[u],
			Expected:  expected,
			Pending:   expected.Sub(paid[u]),
		}
		st.TotalPaid = st.TotalPaid.Add(b.PaidTotal)
		st.Units = append(st.Units, b)
	}
	st.TotalPending = st.TotalExpected.Sub(st.TotalPaid)
	return st
}

// LatestByUnit keeps one payment per unit. When a unit paid more than once
// the row with the highest id, the last recorded, wins.
func LatestByUnit(payments []core.AssessmentPayment) map[core.Unit]core.AssessmentPayment {
	out := make(map[core.Unit]core.AssessmentPayment, len(payments))
	for _, p := range payments {
		if cur, ok := out[p.Unit]; ok && cur.ID > p.ID {
			continue
		}
		out[p.Unit] = p
	}
	return out
}

func findAssessment(list []core.Assessment, id int64) (core.Assessment, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return core.Assessment{}, false
}

// Statements binds an Engine to a SnapshotReader so each call reads
// exactly one snapshot.
type Statements struct {
	engine *Engine
	reader SnapshotReader
}

func NewStatements(engine *Engine, reader SnapshotReader) *Statements {
	return &Statements{engine: engine, reader: reader}
}

func (s *Statements) Global(ctx context.Context, unit core.Unit) (core.GlobalStatement, error) {
	if err := s.engine.units.CheckFilter(unit); err != nil {
		return core.GlobalStatement{}, err
	}
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return core.GlobalStatement{}, fmt.Errorf("global statement: %w", err)
	}
	return s.engine.GlobalStatement(snap, unit), nil
}

func (s *Statements) Assessment(ctx context.Context, id int64) (core.AssessmentStatement, error) {
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return core.AssessmentStatement{}, fmt.Errorf("assessment statement: %w", err)
	}
	return s.engine.AssessmentStatement(snap, id)
}

func (s *Statements) Balance(ctx context.Context) (core.BalanceStatement, error) {
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return core.BalanceStatement{}, fmt.Errorf("balance statement: %w", err)
	}
	return s.engine.Balance(snap), nil
}
