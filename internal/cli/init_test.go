package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"barriada/internal/backend"
	"barriada/internal/config"
	"barriada/internal/storage/memory"
)

func TestSetupLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.InfoContext(context.Background(), "hidden")
	logger.WarnContext(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"app"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConnectEventsDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "info", LogFormat: "text"}, &buf)
	if c := ConnectEvents(context.Background(), logger, &config.Config{}); c != nil {
		t.Fatal("expected nil client without AMQP_URL")
	}
}

func TestNewLedger(t *testing.T) {
	res := &backend.Result{Store: memory.New()}
	ledger, err := NewLedger(&config.Config{TotalUnits: 4}, res, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	if ledger.Units().Total() != 4 {
		t.Fatalf("units = %d", ledger.Units().Total())
	}

	if _, err := NewLedger(&config.Config{TotalUnits: 0}, res, nil); err == nil {
		t.Fatal("expected error for zero units")
	}
}

func TestLoadConfigRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("TOTAL_UNITS", "0")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}
