package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})
	l.InfoContext(context.Background(), "Contribution recorded", NewFields().WithEntry(4, 2, "10.5").ToSlice()...)

	out := buf.String()
	for _, want := range []string{`"component":"ledger"`, `"unit":2`, `"amount":"10.5"`, `"id":4`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestWithEntrySkipsZeroValues(t *testing.T) {
	f := NewFields().WithEntry(0, 0, "")
	if len(f) != 0 {
		t.Fatalf("expected no fields, got %v", f)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
	l := ForComponent(ComponentHTTP)
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx).Component() != ComponentHTTP {
		t.Fatal("logger not stored in context")
	}
}
