// Package memory is a process-local Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"barriada/internal/core"
	"barriada/internal/storage"
)

type Store struct {
	mu            sync.Mutex
	nextID        int64
	assessments   []core.Assessment
	payments      []core.AssessmentPayment
	contributions []core.Contribution
	expenses      []core.Expense
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// id hands out a store-wide increasing id. Callers hold mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateAssessment(_ context.Context, a core.Assessment) (core.Assessment, error) {
	if err := a.Validate(); err != nil {
		return core.Assessment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.Name = strings.TrimSpace(a.Name)
	s.assessments = append(s.assessments, a)
	return a, nil
}

func (s *Store) GetAssessment(_ context.Context, id int64) (core.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Assessment{}, core.NotFoundf("assessment %d", id)
}

func (s *Store) ListAssessments(_ context.Context) ([]core.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedAssessments(s.assessments), nil
}

func (s *Store) DeleteAssessment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, a := range s.assessments {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.NotFoundf("assessment %d", id)
	}
	s.assessments = append(s.assessments[:idx:idx], s.assessments[idx+1:]...)
	kept := s.payments[:0:0]
	for _, p := range s.payments {
		if p.AssessmentID != id {
			kept = append(kept, p)
		}
	}
	s.payments = kept
	return nil
}

func (s *Store) RecordAssessmentPayment(_ context.Context, p core.AssessmentPayment) (core.AssessmentPayment, error) {
	if err := p.Validate(); err != nil {
		return core.AssessmentPayment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, a := range s.assessments {
		if a.ID == p.AssessmentID {
			found = true
			break
		}
	}
	if !found {
		return core.AssessmentPayment{}, core.NotFoundf("assessment %d", p.AssessmentID)
	}
	p.ID = s.id()
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) ListAssessmentPayments(_ context.Context, assessmentID int64) ([]core.AssessmentPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.AssessmentPayment{}
	for _, p := range s.payments {
		if p.AssessmentID == assessmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) DeleteAssessmentPayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i:i], s.payments[i+1:]...)
			return nil
		}
	}
	return core.NotFoundf("assessment payment %d", id)
}

func (s *Store) RecordContribution(_ context.Context, c core.Contribution) (core.Contribution, error) {
	if err := c.Validate(); err != nil {
		return core.Contribution{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.contributions = append(s.contributions, c)
	return c, nil
}

func (s *Store) ListContributions(_ context.Context, unit core.Unit) ([]core.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterContributions(s.contributions, unit), nil
}

func (s *Store) ContributionTotal(ctx context.Context, unit core.Unit) (core.Money, error) {
	list, _ := s.ListContributions(ctx, unit)
	total := core.Zero
	for _, c := range list {
		total = total.Add(c.Amount)
	}
	return total, nil
}

func (s *Store) DeleteContribution(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.contributions {
		if c.ID == id {
			s.contributions = append(s.contributions[:i:i], s.contributions[i+1:]...)
			return nil
		}
	}
	return core.NotFoundf("contribution %d", id)
}

func (s *Store) RecordExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.Description = strings.TrimSpace(e.Description)
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedExpenses(s.expenses), nil
}

func (s *Store) ExpenseTotal(ctx context.Context) (core.Money, error) {
	list, _ := s.ListExpenses(ctx)
	total := core.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses = append(s.expenses[:i:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.NotFoundf("expense %d", id)
}

// Snapshot copies every table while holding the lock.
func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Snapshot{
		Assessments:   sortedAssessments(s.assessments),
		Payments:      append([]core.AssessmentPayment{}, s.payments...),
		Contributions: filterContributions(s.contributions, core.AllUnits),
		Expenses:      sortedExpenses(s.expenses),
	}, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func sortedAssessments(in []core.Assessment) []core.Assessment {
	out := append([]core.Assessment{}, in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate.Time) {
			return out[i].IssueDate.After(out[j].IssueDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func filterContributions(in []core.Contribution, unit core.Unit) []core.Contribution {
	out := []core.Contribution{}
	for _, c := range in {
		if unit == core.AllUnits || c.Unit == unit {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaidDate.Equal(out[j].PaidDate.Time) {
			return out[i].PaidDate.After(out[j].PaidDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func sortedExpenses(in []core.Expense) []core.Expense {
	out := append([]core.Expense{}, in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaidDate.Equal(out[j].PaidDate.Time) {
			return out[i].PaidDate.After(out[j].PaidDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
