// Package worker keeps the published Google Sheets copy of the ledger in
// step with the store.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barriada/internal/amqp"
	"barriada/internal/core"
	"barriada/internal/export"
	applog "barriada/internal/log"
	"barriada/internal/sheets"
)

// StatementSource is the read side of the ledger service.
type StatementSource interface {
	GlobalStatement(ctx context.Context, unit core.Unit) (core.GlobalStatement, error)
	Balance(ctx context.Context) (core.BalanceStatement, error)
}

type Config struct {
	// Interval is how often the full statement is republished even when no
	// event arrived. Zero disables the periodic pass.
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: 15 * time.Minute}
}

// SyncWorker republishes the general statement and the balance whenever the
// ledger changes. Events only trigger a re-read; their payload is logged
// and otherwise ignored, so redelivered or out-of-order events are harmless.
type SyncWorker struct {
	source    StatementSource
	publisher sheets.TablePublisher
	config    Config
	log       *applog.Logger

	syncMu   sync.Mutex
	lastSync time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(source StatementSource, publisher sheets.TablePublisher, config Config) *SyncWorker {
	return &SyncWorker{
		source:    source,
		publisher: publisher,
		config:    config,
		log:       applog.ForComponent(applog.ComponentWorker),
	}
}

// HandleLedgerEvent is the AMQP consumer callback. A returned error
// requeues the delivery.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.log.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventKind, ev.Kind,
		applog.FieldID, ev.ID,
		"timestamp", ev.Timestamp)
	return w.Sync(ctx)
}

// Sync reads both statements and overwrites the Pagos, Gastos and Saldos tabs.
func (w *SyncWorker) Sync(ctx context.Context) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	global, err := w.source.GlobalStatement(ctx, core.AllUnits)
	if err != nil {
		return fmt.Errorf("read global statement: %w", err)
	}
	balance, err := w.source.Balance(ctx)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	tables := append(export.GlobalTables(global), export.BalanceTables(balance)...)
	if err := w.publisher.Publish(ctx, tables); err != nil {
		return fmt.Errorf("publish statement: %w", err)
	}

	w.lastSync = time.Now()
	w.log.InfoContext(ctx, "Statement synced",
		applog.FieldOperation, applog.OpSync,
		"contributions", len(global.Contributions),
		"expenses", len(global.Expenses),
		"available", global.Available.Display())
	return nil
}

// LastSync reports when the last successful publish finished.
func (w *SyncWorker) LastSync() time.Time {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	return w.lastSync
}

// Start publishes once and then runs the periodic pass until Stop or ctx
// cancellation. It returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.log.InfoContext(ctx, "Sync worker started", "interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.log.InfoContext(ctx, "Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.log.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	// Startup pass recovers from events missed while the worker was down.
	w.syncLogged(ctx)

	if w.config.Interval <= 0 {
		select {
		case <-stopCh:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncLogged(ctx)
		}
	}
}

func (w *SyncWorker) syncLogged(ctx context.Context) {
	if err := w.Sync(ctx); err != nil {
		w.log.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
	}
}
