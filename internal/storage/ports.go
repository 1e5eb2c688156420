package storage

import (
	"context"

	"barriada/internal/core"
)

// AssessmentStore persists dues calls. Deleting an assessment removes its
// payments in the same transaction.
type AssessmentStore interface {
	CreateAssessment(ctx context.Context, a core.Assessment) (core.Assessment, error)
	GetAssessment(ctx context.Context, id int64) (core.Assessment, error)
	ListAssessments(ctx context.Context) ([]core.Assessment, error)
	DeleteAssessment(ctx context.Context, id int64) error
}

// PaymentLedger persists assessment payments and contributions.
type PaymentLedger interface {
	RecordAssessmentPayment(ctx context.Context, p core.AssessmentPayment) (core.AssessmentPayment, error)
	// ListAssessmentPayments returns every row for the assessment in
	// insertion order.
	ListAssessmentPayments(ctx context.Context, assessmentID int64) ([]core.AssessmentPayment, error)
	DeleteAssessmentPayment(ctx context.Context, id int64) error

	RecordContribution(ctx context.Context, c core.Contribution) (core.Contribution, error)
	// ListContributions filters by unit unless unit is core.AllUnits.
	ListContributions(ctx context.Context, unit core.Unit) ([]core.Contribution, error)
	ContributionTotal(ctx context.Context, unit core.Unit) (core.Money, error)
	DeleteContribution(ctx context.Context, id int64) error
}

type ExpenseLedger interface {
	RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ExpenseTotal(ctx context.Context) (core.Money, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// Store is everything the service layer needs from a backend.
type Store interface {
	AssessmentStore
	PaymentLedger
	ExpenseLedger
	Snapshot(ctx context.Context) (core.Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}
