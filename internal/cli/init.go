// Package cli holds the start-up steps shared by cmd/barriada,
// cmd/barriada-worker and cmd/barriada-admin.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"barriada/internal/amqp"
	"barriada/internal/backend"
	"barriada/internal/config"
	"barriada/internal/core"
	applog "barriada/internal/log"
	"barriada/internal/services"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from LOG_LEVEL/LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Level = applog.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	if w != nil {
		lc.Output = w
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend opens the configured store and attachment uploader.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	return backend.NewFactory(logger.With(applog.FieldComponent, applog.ComponentBackend).Logger).Create(ctx, bc)
}

// ConnectEvents dials the broker. It returns nil when AMQP_URL is empty or
// the broker is unreachable; ledger events are best-effort.
func ConnectEvents(ctx context.Context, logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.InfoContext(ctx, "AMQP disabled, ledger events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// NewLedger builds the service over an opened backend. The service owns the
// store and the event client afterwards; close it with LedgerService.Close.
func NewLedger(cfg *config.Config, res *backend.Result, events *amqp.Client) (*services.LedgerService, error) {
	units, err := core.NewUnitRegistry(cfg.TotalUnits)
	if err != nil {
		return nil, err
	}
	opts := []services.Option{services.WithUploader(res.Uploader)}
	if events != nil {
		opts = append(opts, services.WithEvents(events))
	}
	return services.NewLedgerService(res.Store, units, opts...), nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
