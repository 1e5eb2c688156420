package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"barriada/internal/core"
)

func TestDeleteAssessmentCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, err := s.CreateAssessment(ctx, core.Assessment{Name: "Enero", Amount: core.MustMoney("100"), IssueDate: core.NewDate(2025, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordAssessmentPayment(ctx, core.AssessmentPayment{AssessmentID: a.ID, Unit: 1, Amount: core.MustMoney("100"), PaidDate: core.NewDate(2025, 1, 2)}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAssessment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAssessment(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if len(snap.Payments) != 0 {
		t.Fatalf("payments survived: %+v", snap.Payments)
	}
	if _, err := s.RecordAssessmentPayment(ctx, core.AssessmentPayment{AssessmentID: a.ID, Unit: 1, Amount: core.MustMoney("1"), PaidDate: core.NewDate(2025, 1, 2)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("payment against deleted assessment: %v", err)
	}
}

func TestListingsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, d := range []core.Date{core.NewDate(2025, 1, 1), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 1)} {
		if _, err := s.RecordContribution(ctx, core.Contribution{Unit: 1, Amount: core.MustMoney("1"), PaidDate: d}); err != nil {
			t.Fatal(err)
		}
	}
	list, _ := s.ListContributions(ctx, 1)
	if len(list) != 3 || list[0].ID <= list[1].ID || list[2].PaidDate.String() != "2025-01-01" {
		t.Fatalf("order: %+v", list)
	}
	if other, _ := s.ListContributions(ctx, 2); len(other) != 0 {
		t.Fatalf("filter: %+v", other)
	}
}

func TestRejectsInvalidWithoutMutation(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.RecordExpense(ctx, core.Expense{Description: "Luz", Amount: core.Zero, PaidDate: core.NewDate(2025, 1, 1)}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	total, _ := s.ExpenseTotal(ctx)
	if !total.IsZero() {
		t.Fatalf("state mutated: %s", total)
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RecordContribution(ctx, core.Contribution{Unit: 2, Amount: core.MustMoney("0.10"), PaidDate: core.NewDate(2025, 1, 1)})
		}()
	}
	wg.Wait()
	total, _ := s.ContributionTotal(ctx, 2)
	if !total.Equal(core.MustMoney("5")) {
		t.Fatalf("total %s", total)
	}
}
