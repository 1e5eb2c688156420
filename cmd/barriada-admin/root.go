package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"barriada/internal/attachments"
	"barriada/internal/cli"
	"barriada/internal/config"
	"barriada/internal/services"
)

var version = "dev"

// app carries what every subcommand needs. Tests swap openLedger and
// loadConfig.
type app struct {
	openLedger func(ctx context.Context) (*services.LedgerService, error)
	loadConfig func() (*config.Config, error)
}

func newApp() *app {
	return &app{
		openLedger: openConfiguredLedger,
		loadConfig: func() (*config.Config, error) { return config.Load(), nil },
	}
}

func setupConsoleLog(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func component(name string) *zerolog.Logger {
	l := log.Logger.With().Str("component", name).Logger()
	return &l
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "barriada-admin",
		Short: "Administer the community dues ledger",
		Long: `barriada-admin records and removes ledger entries and prints statements
against the store configured by the environment (DATA_BACKEND, SQLITE_DB_PATH,
DATABASE_URL, TOTAL_UNITS, ...). A .env file in the working directory is
loaded first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAssessmentCmd(a),
		newPaymentCmd(a),
		newContributionCmd(a),
		newExpenseCmd(a),
		newStatementCmd(a),
		newTokenCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// openConfiguredLedger opens the store, attachments and events the same way
// the server does, so mutations here reach the sheet sync too.
func openConfiguredLedger(ctx context.Context) (*services.LedgerService, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, os.Stderr)

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	events := cli.ConnectEvents(ctx, logger, cfg)

	ledger, err := cli.NewLedger(cfg, res, events)
	if err != nil {
		_ = res.Cleanup()
		if events != nil {
			_ = events.Close()
		}
		return nil, err
	}
	return ledger, nil
}

// withLedger opens the ledger for one command run and closes it after.
func (a *app) withLedger(fn func(cmd *cobra.Command, args []string, ledger *services.LedgerService) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ledger, err := a.openLedger(cmd.Context())
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer func() {
			if cerr := ledger.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("Closing ledger")
			}
		}()
		return fn(cmd, args, ledger)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

// openAttachment reads a proof file from disk. An empty path means none.
// The caller closes the returned file.
func openAttachment(path string) (*attachments.File, io.Closer, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat attachment: %w", err)
	}
	name := filepath.Base(path)
	return &attachments.File{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        st.Size(),
		Body:        f,
	}, f, nil
}
