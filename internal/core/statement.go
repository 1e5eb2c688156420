package core

// Snapshot is every ledger row read from one consistent view of the store.
type Snapshot struct {
	Assessments   []Assessment
	Payments      []AssessmentPayment
	Contributions []Contribution
	Expenses      []Expense
}

// GlobalStatement is the community cash view. Income counts contributions
// only; expenses are never filtered by unit.
type GlobalStatement struct {
	Unit          Unit           `json:"unit,omitempty"`
	Contributions []Contribution `json:"contributions"`
	Expenses      []Expense      `json:"expenses"`
	TotalIncome   Money          `json:"total_income"`
	TotalExpense  Money          `json:"total_expense"`
	Available     Money          `json:"available"`
}

// UnitDues is one unit's line in an assessment statement. Payment is nil
// when the unit has not paid.
type UnitDues struct {
	Unit     Unit               `json:"unit"`
	Payment  *AssessmentPayment `json:"payment"`
	Paid     Money              `json:"paid"`
	Pending  Money              `json:"pending"`
	Recorded int                `json:"recorded"`
}

type AssessmentStatement struct {
	Assessment    Assessment `json:"assessment"`
	Units         []UnitDues `json:"units"`
	TotalExpected Money      `json:"total_expected"`
	TotalPaid     Money      `json:"total_paid"`
	TotalPending  Money      `json:"total_pending"`
}

type UnitBalance struct {
	Unit      Unit  `json:"unit"`
	PaidTotal Money `json:"paid_total"`
	Expected  Money `json:"expected"`
	Pending   Money `json:"pending"`
}

// BalanceStatement is the per-unit position across every assessment.
type BalanceStatement struct {
	Units         []UnitBalance `json:"units"`
	TotalExpected Money         `json:"total_expected"`
	TotalPaid     Money         `json:"total_paid"`
	TotalPending  Money         `json:"total_pending"`
}
