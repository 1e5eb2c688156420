package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"barriada/internal/attachments"
	"barriada/internal/auth"
	"barriada/internal/core"
	"barriada/internal/export"
	"barriada/internal/services"
	"barriada/internal/storage/memory"
)

const testSecret = "test-secret-0123456789"

type memUploader struct{ fail bool }

func (u memUploader) Upload(_ context.Context, folder string, f attachments.File) (string, error) {
	if u.fail {
		return "", errors.New("bucket offline")
	}
	if _, err := io.ReadAll(f.Body); err != nil {
		return "", err
	}
	return "mem://" + folder + "/" + f.Name, nil
}

func (memUploader) Delete(context.Context, string) error { return nil }

type testEnv struct {
	srv    *Server
	ledger *services.LedgerService
	token  string
}

func newTestEnv(t *testing.T, uploader attachments.Uploader) *testEnv {
	t.Helper()
	units, err := core.NewUnitRegistry(3)
	if err != nil {
		t.Fatal(err)
	}
	ledger := services.NewLedgerService(memory.New(), units,
		services.WithUploader(uploader),
		services.WithClock(func() time.Time { return time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC) }))
	tokens, err := auth.NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := tokens.IssueAdmin("tesoreria")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(":0", ledger, tokens, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, ledger: ledger, token: token}
}

func (e *testEnv) do(t *testing.T, req *http.Request, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	if admin {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, fileName string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("scan"))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, httptest.NewRequest(http.MethodGet, path, nil), false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/cuotas", strings.NewReader(`{"nombre":"Pintura","monto":"100"}`))
	rr := env.do(t, req, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate")
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/gastos/1", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	if rr := env.do(t, req, false); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rr.Code)
	}

	list, _ := env.ledger.ListAssessments(context.Background())
	if len(list) != 0 {
		t.Fatalf("unauthenticated request wrote %v", list)
	}
}

func TestAssessmentFlow(t *testing.T) {
	env := newTestEnv(t, memUploader{})

	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/admin/cuotas",
		strings.NewReader(`{"nombre":"Portón","monto":"150,00","fecha":"2025-03-01"}`)), true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	id := decode[createdResponse](t, rr).ID
	if rr.Header().Get("Location") == "" || id == 0 {
		t.Fatalf("location %q id %d", rr.Header().Get("Location"), id)
	}

	target := "/admin/cuotas/" + itoa(id) + "/pagos"
	rr = env.do(t, multipartRequest(t, target, map[string]string{"casa": "2", "monto": "150"}, "comprobante", "recibo.pdf"), true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("payment: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, multipartRequest(t, target, map[string]string{"casa": "9", "monto": "150"}, "", ""), true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unit 9: %d", rr.Code)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/cuotas/"+itoa(id), nil), false)
	if rr.Code != http.StatusOK {
		t.Fatalf("statement: %d", rr.Code)
	}
	st := decode[core.AssessmentStatement](t, rr)
	if len(st.Units) != 3 || !st.TotalPaid.Equal(core.MustMoney("150")) || !st.TotalPending.Equal(core.MustMoney("300")) {
		t.Fatalf("statement %+v", st)
	}
	if st.Units[1].Payment == nil || st.Units[1].Payment.AttachmentRef != "mem://pagos/recibo.pdf" {
		t.Fatalf("unit 2 line %+v", st.Units[1])
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/cuotas/"+itoa(id)+"/pagos", nil), false)
	payments := decode[assessmentPayments](t, rr)
	if len(payments.Payments) != 1 {
		t.Fatalf("payments %+v", payments)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/cuotas/"+itoa(id)+"/excel", nil), false)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != export.ContentTypeXLSX {
		t.Fatalf("excel: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = env.do(t, httptest.NewRequest(http.MethodDelete, "/admin/cuotas/"+itoa(id), nil), true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/cuotas/"+itoa(id), nil), false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted statement: %d", rr.Code)
	}
}

func TestGlobalStatementEndpoints(t *testing.T) {
	env := newTestEnv(t, memUploader{})

	for _, f := range []map[string]string{
		{"casa": "1", "monto": "100", "fecha": "2025-01-10"},
		{"casa": "2", "monto": "40.5", "fecha": "2025-01-11", "notas": "enero"},
	} {
		rr := env.do(t, multipartRequest(t, "/admin/pagos", f, "comprobante", "a.jpg"), true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("contribution: %d %s", rr.Code, rr.Body.String())
		}
	}
	rr := env.do(t, multipartRequest(t, "/admin/gastos", map[string]string{"descripcion": "Luz", "monto": "60"}, "factura", "f.pdf"), true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expense: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/estado-cuenta", nil), false)
	global := decode[core.GlobalStatement](t, rr)
	if !global.Available.Equal(core.MustMoney("80.5")) || len(global.Contributions) != 2 {
		t.Fatalf("global %+v", global)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/estado-cuenta?casa=2", nil), false)
	unit2 := decode[core.GlobalStatement](t, rr)
	if !unit2.TotalIncome.Equal(core.MustMoney("40.5")) || len(unit2.Expenses) != 1 {
		t.Fatalf("unit 2 %+v", unit2)
	}

	if rr := env.do(t, httptest.NewRequest(http.MethodGet, "/estado-cuenta?casa=7", nil), false); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unit 7: %d", rr.Code)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/estado-cuenta/excel?casa=2", nil), false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), "statement_2.xlsx") {
		t.Fatalf("excel: %d %q", rr.Code, rr.Header().Get("Content-Disposition"))
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/pagos?casa=1", nil), false)
	if list := decode[listResponse[core.Contribution]](t, rr); list.Count != 1 {
		t.Fatalf("pagos %+v", list)
	}
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/saldos", nil), false)
	if rr.Code != http.StatusOK {
		t.Fatalf("saldos: %d", rr.Code)
	}
}

func TestUploadFailureReturnsBadGateway(t *testing.T) {
	env := newTestEnv(t, memUploader{fail: true})
	rr := env.do(t, multipartRequest(t, "/admin/gastos", map[string]string{"descripcion": "Agua", "monto": "12"}, "factura", "f.pdf"), true)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rr.Code)
	}
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/gastos", nil), false)
	if list := decode[listResponse[core.Expense]](t, rr); list.Count != 0 {
		t.Fatalf("expense stored after failed upload: %+v", list)
	}
}

func TestValidationErrorsAre422(t *testing.T) {
	env := newTestEnv(t, nil)
	cases := []*http.Request{
		multipartRequest(t, "/admin/gastos", map[string]string{"descripcion": "", "monto": "5"}, "", ""),
		multipartRequest(t, "/admin/gastos", map[string]string{"descripcion": "Luz", "monto": "0"}, "", ""),
		multipartRequest(t, "/admin/pagos", map[string]string{"casa": "1", "monto": "abc"}, "", ""),
		httptest.NewRequest(http.MethodPost, "/admin/cuotas", strings.NewReader(`{"nombre":"x"`)),
	}
	for i, req := range cases {
		rr := env.do(t, req, true)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("case %d: status %d %s", i, rr.Code, rr.Body.String())
		}
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	units, _ := core.NewUnitRegistry(1)
	ledger := services.NewLedgerService(memory.New(), units)
	srv := NewServer(":0", ledger, nil, Options{RateLimitPerMinute: 1})
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/gastos/1", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes %v", codes)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/saldos", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited: %d", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestUploadsServedWithoutListing(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "facturas"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "facturas", "luz.pdf"), []byte("pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	units, _ := core.NewUnitRegistry(2)
	srv := NewServer(":0", services.NewLedgerService(memory.New(), units), nil, Options{UploadsDir: dir})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/facturas/luz.pdf", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "pdf" {
		t.Fatalf("file: %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/facturas/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("directory listing: %d", rr.Code)
	}
}
