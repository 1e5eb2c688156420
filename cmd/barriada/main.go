package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"barriada/internal/auth"
	"barriada/internal/cli"
	"barriada/internal/config"
	apphttp "barriada/internal/http"
	applog "barriada/internal/log"
)

const shutdownTimeout = 30 * time.Second

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

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	events := cli.ConnectEvents(ctx, logger, cfg)

	ledger, err := cli.NewLedger(cfg, res, events)
	if err != nil {
		_ = res.Cleanup()
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("Ledger close error", applog.FieldError, err)
		}
	}()

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.AdminTokenTTL)
	if err != nil {
		return err
	}

	opts := apphttp.Options{
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}
	if cfg.AttachmentBackend == config.AttachmentsLocal {
		opts.UploadsDir = cfg.AttachmentDir
	}
	srv := apphttp.NewServer(":"+cfg.Port, ledger, tokens, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting barriada server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"units", cfg.TotalUnits,
			"attachments", cfg.AttachmentBackend,
			"events", events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
