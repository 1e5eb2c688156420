package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"barriada/internal/amqp"
	"barriada/internal/core"
	"barriada/internal/export"
	"barriada/internal/services"
	sheetsmem "barriada/internal/sheets/memory"
	"barriada/internal/storage/memory"
)

func newLedger(t *testing.T) *services.LedgerService {
	t.Helper()
	units, err := core.NewUnitRegistry(2)
	if err != nil {
		t.Fatal(err)
	}
	return services.NewLedgerService(memory.New(), units)
}

func TestHandleLedgerEventPublishesTables(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t)
	pub := sheetsmem.New()
	w := NewSyncWorker(ledger, pub, Config{})

	c, err := ledger.RecordContribution(ctx, services.ContributionInput{Unit: 2, Amount: core.MustMoney("80.12"), PaidDate: core.NewDate(2025, 2, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.RecordExpense(ctx, services.ExpenseInput{Description: "Agua", Amount: core.MustMoney("30"), PaidDate: core.NewDate(2025, 2, 3)}); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.ContributionRecorded, c.ID)); err != nil {
		t.Fatal(err)
	}

	pagos, ok := pub.Sheet(export.SheetContributions)
	if !ok || len(pagos) != 2 {
		t.Fatalf("pagos sheet: %v", pagos)
	}
	if pagos[1][0] != 2 || pagos[1][1] != 80.12 || pagos[1][2] != "2025-02-01" {
		t.Fatalf("pagos row: %v", pagos[1])
	}
	if gastos, _ := pub.Sheet(export.SheetExpenses); len(gastos) != 2 {
		t.Fatalf("gastos sheet: %v", gastos)
	}
	saldos, ok := pub.Sheet(export.SheetBalance)
	if !ok || len(saldos) != 3 {
		t.Fatalf("saldos sheet: %v", saldos)
	}
	if w.LastSync().IsZero() {
		t.Fatal("last sync not recorded")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, []export.Table) error {
	return errors.New("quota exceeded")
}

func TestHandleLedgerEventReturnsPublishError(t *testing.T) {
	w := NewSyncWorker(newLedger(t), failingPublisher{}, Config{})
	if err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.ExpenseDeleted, 1)); err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
}

func TestStartStop(t *testing.T) {
	pub := sheetsmem.New()
	w := NewSyncWorker(newLedger(t), pub, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.Publishes() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.Publishes() < 2 {
		t.Fatalf("expected startup and periodic publishes, got %d", pub.Publishes())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if w.IsRunning() {
		t.Fatal("still running after Stop")
	}
}
