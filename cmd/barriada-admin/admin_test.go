package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"barriada/internal/auth"
	"barriada/internal/config"
	"barriada/internal/core"
	"barriada/internal/services"
	"barriada/internal/storage/memory"
)

const testSecret = "admin-cli-secret-0123"

func testApp(t *testing.T) *app {
	t.Helper()
	units, err := core.NewUnitRegistry(4)
	if err != nil {
		t.Fatal(err)
	}
	ledger := services.NewLedgerService(memory.New(), units,
		services.WithClock(func() time.Time { return time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC) }))
	return &app{
		openLedger: func(context.Context) (*services.LedgerService, error) { return ledger, nil },
		loadConfig: func() (*config.Config, error) {
			return &config.Config{JWTSecret: testSecret, AdminTokenTTL: time.Hour}, nil
		},
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAssessmentPaymentAndStatement(t *testing.T) {
	a := testApp(t)

	out, err := run(t, a, "assessment", "create", "--name", "Pintura", "--amount", "150")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created core.Assessment
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if created.ID == 0 || created.IssueDate.String() != "2025-05-10" {
		t.Fatalf("unexpected assessment %+v", created)
	}

	id := strconv.FormatInt(created.ID, 10)
	if _, err := run(t, a, "payment", "record", "--assessment", id, "--unit", "2", "--amount", "100"); err != nil {
		t.Fatalf("payment: %v", err)
	}

	out, err = run(t, a, "statement", "assessment", id)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	var st core.AssessmentStatement
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatal(err)
	}
	if !st.TotalExpected.Equal(core.MustMoney("600")) || !st.TotalPaid.Equal(core.MustMoney("100")) {
		t.Fatalf("totals expected=%s paid=%s", st.TotalExpected, st.TotalPaid)
	}
	if !st.TotalPending.Equal(core.MustMoney("500")) {
		t.Fatalf("pending %s", st.TotalPending)
	}
}

func TestValidationErrorsSurface(t *testing.T) {
	a := testApp(t)

	_, err := run(t, a, "contribution", "record", "--unit", "9", "--amount", "10")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("unit out of range: %v", err)
	}
	if _, err := run(t, a, "expense", "record", "--description", "Luz", "--amount=-3"); err == nil {
		t.Fatal("negative amount accepted")
	}
	if _, err := run(t, a, "expense", "delete", "abc"); err == nil {
		t.Fatal("bad id accepted")
	}
	if _, err := run(t, a, "expense", "delete", "42"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing expense: %v", err)
	}
	if _, err := run(t, a, "assessment", "create", "--amount", "10"); err == nil {
		t.Fatal("missing --name accepted")
	}
}

func TestAttachmentWithoutUploaderFails(t *testing.T) {
	a := testApp(t)
	proof := filepath.Join(t.TempDir(), "comprobante.pdf")
	if err := os.WriteFile(proof, []byte("pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, a, "contribution", "record", "--unit", "1", "--amount", "20", "--file", proof)
	if !errors.Is(err, core.ErrAttachmentUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}

	out, err := run(t, a, "contribution", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"items": []`) {
		t.Fatalf("nothing should be stored: %s", out)
	}
}

func TestStatementWritesWorkbook(t *testing.T) {
	a := testApp(t)
	if _, err := run(t, a, "expense", "record", "--description", "Limpieza", "--amount", "45.50", "--date", "2025-05-01"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "general.xlsx")
	out, err := run(t, a, "statement", "global", "--xlsx", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Fatalf("workbook mode should not print JSON: %q", out)
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		t.Fatalf("workbook not written: %v", err)
	}
}

func TestTokenIsAdmin(t *testing.T) {
	out, err := run(t, testApp(t), "token", "--subject", "tesoreria")
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := tokens.VerifyAdmin(resp.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "tesoreria" {
		t.Fatalf("subject %q", claims.Subject)
	}
}

func TestParseID(t *testing.T) {
	for _, raw := range []string{"0", "-1", "x", ""} {
		if _, err := parseID(raw); err == nil {
			t.Errorf("parseID(%q) accepted", raw)
		}
	}
	if id, err := parseID("17"); err != nil || id != 17 {
		t.Fatalf("parseID(17) = %d, %v", id, err)
	}
}
