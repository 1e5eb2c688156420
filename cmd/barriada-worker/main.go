package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"barriada/internal/cli"
	"barriada/internal/config"
	applog "barriada/internal/log"
	gsheet "barriada/internal/sheets/google"
	"barriada/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting barriada-worker", applog.FieldOperation, applog.OpStartup)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker error", applog.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	if cfg.GoogleSpreadsheetID == "" {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the sync worker")
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process, the worker will only ever publish an empty ledger")
	}

	// The worker only reads; attachments are never uploaded from here.
	readOnly := *cfg
	readOnly.AttachmentBackend = config.AttachmentsNone
	res, err := cli.OpenBackend(ctx, logger, &readOnly)
	if err != nil {
		return err
	}
	ledger, err := cli.NewLedger(cfg, res, nil)
	if err != nil {
		_ = res.Cleanup()
		return err
	}
	defer ledger.Close()

	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	syncWorker := worker.NewSyncWorker(ledger, sheetsClient, worker.Config{Interval: cfg.SyncInterval})
	if err := syncWorker.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = syncWorker.Stop(stopCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	if events := cli.ConnectEvents(ctx, logger, cfg); events != nil {
		defer events.Close()
		g.Go(func() error {
			err := events.ConsumeLedgerEvents(gctx, syncWorker.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP consumption, relying on periodic sync only")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}
