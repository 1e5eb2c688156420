package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"barriada/internal/amqp"
	"barriada/internal/attachments"
	"barriada/internal/core"
	applog "barriada/internal/log"
	"barriada/internal/reconcile"
	"barriada/internal/storage"
)

// EventPublisher announces committed mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService is the single entry point for ledger mutations and
// statements. It validates input, uploads attachments before writing, and
// publishes a best-effort event after each committed change.
type LedgerService struct {
	store      storage.Store
	units      core.UnitRegistry
	statements *reconcile.Statements
	uploader   attachments.Uploader
	events     EventPublisher
	now        func() time.Time
	log        *applog.Logger
	slog       *applog.StructuredLogger
}

type Option func(*LedgerService)

// WithUploader enables attachments. Without it, requests carrying a file
// fail with core.ErrAttachmentUpload.
func WithUploader(u attachments.Uploader) Option {
	return func(s *LedgerService) { s.uploader = u }
}

func WithEvents(p EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

// WithClock overrides the source of "today" for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store storage.Store, units core.UnitRegistry, opts ...Option) *LedgerService {
	logger := applog.ForComponent(applog.ComponentLedger)
	s := &LedgerService{
		store:      store,
		units:      units,
		statements: reconcile.NewStatements(reconcile.New(units), store),
		now:        time.Now,
		log:        logger,
		slog:       applog.NewStructuredLogger(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Units() core.UnitRegistry { return s.units }

func (s *LedgerService) today() core.Date { return core.DateOf(s.now()) }

// --- inputs ---

type AssessmentInput struct {
	Name      string
	Amount    core.Money
	IssueDate core.Date
}

type PaymentInput struct {
	AssessmentID int64
	Unit         core.Unit
	Amount       core.Money
	Attachment   *attachments.File
}

type ContributionInput struct {
	Unit       core.Unit
	Amount     core.Money
	PaidDate   core.Date
	Notes      string
	Attachment *attachments.File
}

type ExpenseInput struct {
	Description string
	Amount      core.Money
	PaidDate    core.Date
	Receipt     *attachments.File
}

// --- assessments ---

func (s *LedgerService) CreateAssessment(ctx context.Context, in AssessmentInput) (core.Assessment, error) {
	a := core.Assessment{Name: strings.TrimSpace(in.Name), Amount: in.Amount, IssueDate: in.IssueDate}
	if a.IssueDate.IsZero() {
		a.IssueDate = s.today()
	}
	if err := a.Validate(); err != nil {
		return core.Assessment{}, err
	}
	created, err := s.store.CreateAssessment(ctx, a)
	if err != nil {
		return core.Assessment{}, fmt.Errorf("create assessment: %w", err)
	}
	s.committed(ctx, applog.OpCreate, &amqp.LedgerEvent{Kind: amqp.AssessmentCreated, ID: created.ID, Amount: created.Amount.String()})
	return created, nil
}

func (s *LedgerService) GetAssessment(ctx context.Context, id int64) (core.Assessment, error) {
	return s.store.GetAssessment(ctx, id)
}

func (s *LedgerService) ListAssessments(ctx context.Context) ([]core.Assessment, error) {
	return s.store.ListAssessments(ctx)
}

// DeleteAssessment removes the assessment and every payment against it.
func (s *LedgerService) DeleteAssessment(ctx context.Context, id int64) error {
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	s.committed(ctx, applog.OpDelete, &amqp.LedgerEvent{Kind: amqp.AssessmentDeleted, ID: id})
	return nil
}

// --- assessment payments ---

// RecordAssessmentPayment always inserts a new row; earlier payments by the
// same unit stay in the ledger and lose the reconciliation tie-break.
func (s *LedgerService) RecordAssessmentPayment(ctx context.Context, in PaymentInput) (core.AssessmentPayment, error) {
	p := core.AssessmentPayment{
		AssessmentID: in.AssessmentID,
		Unit:         in.Unit,
		Amount:       in.Amount,
		PaidDate:     s.today(),
	}
	if err := s.units.Check(p.Unit); err != nil {
		return core.AssessmentPayment{}, err
	}
	if err := p.Validate(); err != nil {
		return core.AssessmentPayment{}, err
	}
	if _, err := s.store.GetAssessment(ctx, p.AssessmentID); err != nil {
		return core.AssessmentPayment{}, fmt.Errorf("record payment: %w", err)
	}

	ref, err := s.upload(ctx, attachments.FolderPayments, in.Attachment)
	if err != nil {
		return core.AssessmentPayment{}, err
	}
	p.AttachmentRef = ref

	saved, err := s.store.RecordAssessmentPayment(ctx, p)
	if err != nil {
		s.discard(ctx, ref)
		return core.AssessmentPayment{}, fmt.Errorf("record payment: %w", err)
	}
	s.committed(ctx, applog.OpRecord, &amqp.LedgerEvent{
		Kind: amqp.PaymentRecorded, ID: saved.ID, AssessmentID: saved.AssessmentID,
		Unit: int(saved.Unit), Amount: saved.Amount.String(),
	})
	return saved, nil
}

// ListPaymentsForAssessment returns one payment per unit that has paid,
// applying the last-recorded-wins rule.
func (s *LedgerService) ListPaymentsForAssessment(ctx context.Context, assessmentID int64) (map[core.Unit]core.AssessmentPayment, error) {
	if _, err := s.store.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListAssessmentPayments(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return reconcile.LatestByUnit(rows), nil
}

func (s *LedgerService) DeleteAssessmentPayment(ctx context.Context, id int64) error {
	if err := s.store.DeleteAssessmentPayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	s.committed(ctx, applog.OpDelete, &amqp.LedgerEvent{Kind: amqp.PaymentDeleted, ID: id})
	return nil
}

// --- contributions ---

func (s *LedgerService) RecordContribution(ctx context.Context, in ContributionInput) (core.Contribution, error) {
	c := core.Contribution{
		Unit:     in.Unit,
		Amount:   in.Amount,
		PaidDate: in.PaidDate,
		Notes:    strings.TrimSpace(in.Notes),
	}
	if c.PaidDate.IsZero() {
		c.PaidDate = s.today()
	}
	if err := s.units.Check(c.Unit); err != nil {
		return core.Contribution{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Contribution{}, err
	}

	ref, err := s.upload(ctx, attachments.FolderContributions, in.Attachment)
	if err != nil {
		return core.Contribution{}, err
	}
	c.AttachmentRef = ref

	saved, err := s.store.RecordContribution(ctx, c)
	if err != nil {
		s.discard(ctx, ref)
		return core.Contribution{}, fmt.Errorf("record contribution: %w", err)
	}
	s.committed(ctx, applog.OpRecord, &amqp.LedgerEvent{
		Kind: amqp.ContributionRecorded, ID: saved.ID, Unit: int(saved.Unit), Amount: saved.Amount.String(),
	})
	return saved, nil
}

func (s *LedgerService) ListContributions(ctx context.Context, unit core.Unit) ([]core.Contribution, error) {
	if err := s.units.CheckFilter(unit); err != nil {
		return nil, err
	}
	return s.store.ListContributions(ctx, unit)
}

func (s *LedgerService) ContributionTotal(ctx context.Context, unit core.Unit) (core.Money, error) {
	if err := s.units.CheckFilter(unit); err != nil {
		return core.Zero, err
	}
	return s.store.ContributionTotal(ctx, unit)
}

func (s *LedgerService) DeleteContribution(ctx context.Context, id int64) error {
	if err := s.store.DeleteContribution(ctx, id); err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	s.committed(ctx, applog.OpDelete, &amqp.LedgerEvent{Kind: amqp.ContributionDeleted, ID: id})
	return nil
}

// --- expenses ---

func (s *LedgerService) RecordExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e := core.Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PaidDate:    in.PaidDate,
	}
	if e.PaidDate.IsZero() {
		e.PaidDate = s.today()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	ref, err := s.upload(ctx, attachments.FolderReceipts, in.Receipt)
	if err != nil {
		return core.Expense{}, err
	}
	e.ReceiptRef = ref

	saved, err := s.store.RecordExpense(ctx, e)
	if err != nil {
		s.discard(ctx, ref)
		return core.Expense{}, fmt.Errorf("record expense: %w", err)
	}
	s.committed(ctx, applog.OpRecord, &amqp.LedgerEvent{Kind: amqp.ExpenseRecorded, ID: saved.ID, Amount: saved.Amount.String()})
	return saved, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *LedgerService) ExpenseTotal(ctx context.Context) (core.Money, error) {
	return s.store.ExpenseTotal(ctx)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.committed(ctx, applog.OpDelete, &amqp.LedgerEvent{Kind: amqp.ExpenseDeleted, ID: id})
	return nil
}

// --- statements ---

func (s *LedgerService) GlobalStatement(ctx context.Context, unit core.Unit) (core.GlobalStatement, error) {
	return s.statements.Global(ctx, unit)
}

func (s *LedgerService) AssessmentStatement(ctx context.Context, id int64) (core.AssessmentStatement, error) {
	return s.statements.Assessment(ctx, id)
}

func (s *LedgerService) Balance(ctx context.Context) (core.BalanceStatement, error) {
	return s.statements.Balance(ctx)
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- helpers ---

func (s *LedgerService) upload(ctx context.Context, folder string, f *attachments.File) (string, error) {
	if f == nil {
		return "", nil
	}
	if s.uploader == nil {
		return "", fmt.Errorf("%w: no attachment store configured", core.ErrAttachmentUpload)
	}
	ref, err := s.uploader.Upload(ctx, folder, *f)
	if err != nil {
		s.slog.LogError(ctx, "Attachment upload failed", err, applog.OpUpload,
			applog.NewFields().WithErrorType(applog.ErrorTypeUpload))
		return "", fmt.Errorf("%w: %v", core.ErrAttachmentUpload, err)
	}
	return ref, nil
}

// discard removes an uploaded file whose ledger row was never written.
func (s *LedgerService) discard(ctx context.Context, ref string) {
	if ref == "" || s.uploader == nil {
		return
	}
	if err := s.uploader.Delete(ctx, ref); err != nil {
		s.log.WarnContext(ctx, "Failed to remove orphaned attachment", applog.FieldAttachment, ref, applog.FieldError, err)
	}
}

// committed logs the change and publishes the event. Publishing never
// fails the request: the row is already committed.
func (s *LedgerService) committed(ctx context.Context, op string, ev *amqp.LedgerEvent) {
	ev.Timestamp = s.now().UTC()
	s.slog.LogMutation(ctx, op, string(ev.Kind), ev.ID, ev.Unit, ev.Amount)

	if s.events == nil {
		s.log.DebugContext(ctx, "AMQP client not available, skipping ledger event", applog.FieldEventKind, ev.Kind)
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEventKind, ev.Kind, applog.FieldID, ev.ID, applog.FieldError, err)
	}
}

// Close closes storage and the event publisher when it is closable.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.events.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}

	return nil
}
