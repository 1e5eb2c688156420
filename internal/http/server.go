package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"barriada/internal/auth"
	"barriada/internal/core"
	applog "barriada/internal/log"
	"barriada/internal/middleware/ratelimit"
	"barriada/internal/middleware/security"
	"barriada/internal/middleware/trace"
	"barriada/internal/services"
)

// Ledger is what the handlers need from the service layer.
type Ledger interface {
	Units() core.UnitRegistry

	CreateAssessment(ctx context.Context, in services.AssessmentInput) (core.Assessment, error)
	ListAssessments(ctx context.Context) ([]core.Assessment, error)
	DeleteAssessment(ctx context.Context, id int64) error

	RecordAssessmentPayment(ctx context.Context, in services.PaymentInput) (core.AssessmentPayment, error)
	ListPaymentsForAssessment(ctx context.Context, assessmentID int64) (map[core.Unit]core.AssessmentPayment, error)
	DeleteAssessmentPayment(ctx context.Context, id int64) error

	RecordContribution(ctx context.Context, in services.ContributionInput) (core.Contribution, error)
	ListContributions(ctx context.Context, unit core.Unit) ([]core.Contribution, error)
	DeleteContribution(ctx context.Context, id int64) error

	RecordExpense(ctx context.Context, in services.ExpenseInput) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error

	GlobalStatement(ctx context.Context, unit core.Unit) (core.GlobalStatement, error)
	AssessmentStatement(ctx context.Context, id int64) (core.AssessmentStatement, error)
	Balance(ctx context.Context) (core.BalanceStatement, error)

	Ping(ctx context.Context) error
}

// TokenVerifier checks admin bearer tokens. *auth.Tokens implements it.
type TokenVerifier interface {
	VerifyAdmin(raw string) (*auth.Claims, error)
}

type Options struct {
	// MaxUploadBytes caps a single attachment; the request body may be
	// slightly larger to fit the form fields.
	MaxUploadBytes     int64
	RateLimitPerMinute int
	ReadyTimeout       time.Duration
	// UploadsDir, when set, is served read-only under /uploads/ so local
	// attachment refs resolve.
	UploadsDir string
	// TrustedProxies extends the private ranges trusted for X-Forwarded-For.
	TrustedProxies []string
}

func DefaultOptions() Options {
	return Options{
		MaxUploadBytes:     10 << 20,
		RateLimitPerMinute: ratelimit.DefaultConfig().RequestsPerMinute,
		ReadyTimeout:       2 * time.Second,
	}
}

const (
	formOverhead  = 64 << 10
	maxJSONBytes  = 64 << 10
	formMemoryMax = 8 << 20
)

type Server struct {
	http.Server
	ledger   Ledger
	tokens   TokenVerifier
	validate *validator.Validate
	limiter  *ratelimit.Limiter
	detector *security.Detector
	opts     Options
	log      *applog.Logger

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. A nil tokens verifier rejects
// every admin request.
func NewServer(addr string, ledger Ledger, tokens TokenVerifier, opts Options) *Server {
	def := DefaultOptions()
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = def.MaxUploadBytes
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = def.RateLimitPerMinute
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = def.ReadyTimeout
	}

	s := &Server{
		ledger:   ledger,
		tokens:   tokens,
		validate: newValidator(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		opts:     opts,
		log:      applog.ForComponent(applog.ComponentHTTP),
	}

	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.log.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /estado-cuenta", s.handleGlobalStatement)
	mux.HandleFunc("GET /estado-cuenta/excel", s.handleGlobalStatementExcel)
	mux.HandleFunc("GET /cuotas", s.handleListAssessments)
	mux.HandleFunc("GET /cuotas/{id}", s.handleAssessmentStatement)
	mux.HandleFunc("GET /cuotas/{id}/excel", s.handleAssessmentStatementExcel)
	mux.HandleFunc("GET /cuotas/{id}/pagos", s.handleAssessmentPayments)
	mux.HandleFunc("GET /saldos", s.handleBalance)
	mux.HandleFunc("GET /saldos/excel", s.handleBalanceExcel)
	mux.HandleFunc("GET /pagos", s.handleListContributions)
	mux.HandleFunc("GET /gastos", s.handleListExpenses)
	if opts.UploadsDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(opts.UploadsDir)})))
	}

	admin := func(h http.HandlerFunc) http.Handler { return s.requireAdmin(h) }
	mux.Handle("POST /admin/cuotas", admin(s.handleCreateAssessment))
	mux.Handle("DELETE /admin/cuotas/{id}", admin(s.handleDeleteAssessment))
	mux.Handle("POST /admin/cuotas/{id}/pagos", admin(s.handleRecordAssessmentPayment))
	mux.Handle("DELETE /admin/cuotas/pagos/{id}", admin(s.handleDeleteAssessmentPayment))
	mux.Handle("POST /admin/pagos", admin(s.handleRecordContribution))
	mux.Handle("DELETE /admin/pagos/{id}", admin(s.handleDeleteContribution))
	mux.Handle("POST /admin/gastos", admin(s.handleRecordExpense))
	mux.Handle("DELETE /admin/gastos/{id}", admin(s.handleDeleteExpense))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
		s.log.InfoContext(ctx, "HTTP server stopped",
			"rate_limited", s.limiter.Hits(),
			"suspicious_requests", s.detector.SuspiciousRequests())
	})
	return err
}

// requireAdmin lets the request through only with a valid admin token.
func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.BearerToken(r)
		if err == nil {
			if s.tokens == nil {
				err = auth.ErrInvalidToken
			} else {
				var claims *auth.Claims
				if claims, err = s.tokens.VerifyAdmin(raw); err == nil {
					logger := applog.FromContext(r.Context()).With("admin", claims.Subject)
					r = r.WithContext(applog.WithLogger(r.Context(), logger))
				}
			}
		}
		if err != nil {
			applog.ForComponent(applog.ComponentAuth).WarnContext(r.Context(), "Admin request rejected",
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldError, err)
			if !errors.Is(err, auth.ErrForbidden) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="barriada"`)
			}
			writeError(w, r, err)
			return
		}
		next(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.ForComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(r, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.").Write(w)
}

// noListing hides directory indexes.
type noListing struct{ fs http.FileSystem }

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReadyTimeout)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		s.log.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		ErrorResponse(r, http.StatusServiceUnavailable, applog.ErrorTypeDatabase, "storage unavailable").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
