package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"barriada/internal/core"
	applog "barriada/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultTimeout bounds every store call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

type Options struct {
	Timeout time.Duration
}

// Repository is the database/sql backed Store for SQLite and Postgres.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	log     *applog.Logger
}

var _ Store = (*Repository)(nil)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens (creating if needed) the database file at dbPath and
// applies migrations.
func OpenSQLite(dbPath string, opts Options) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := sqliteDSN(dbPath)

	if err := RunMigrations(SQLite, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(SQLite.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps each read
	// transaction a consistent view.
	db.SetMaxOpenConns(1)

	return newRepository(db, SQLite, opts)
}

// OpenPostgres connects through pgx and applies migrations.
func OpenPostgres(dsn string, opts Options) (*Repository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", classify("migrate", err))
	}

	db, err := sql.Open(Postgres.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newRepository(db, Postgres, opts)
}

func newRepository(db *sql.DB, d Dialect, opts Options) (*Repository, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Repository{db: db, dialect: d, timeout: timeout, log: applog.ForComponent(applog.ComponentStorage)}
	if err := r.Ping(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.scoped(ctx)
	defer cancel()
	return classify("ping database", r.db.PingContext(ctx))
}

func (r *Repository) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// withTx runs fn in one transaction, rolling back on any error.
func (r *Repository) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) q(query string) string { return r.dialect.Rebind(query) }

// --- assessments ---

const assessmentColumns = "id, name, amount, issue_date"

func (r *Repository) CreateAssessment(ctx context.Context, a core.Assessment) (core.Assessment, error) {
	if err := a.Validate(); err != nil {
		return core.Assessment{}, err
	}
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			r.q("INSERT INTO assessments (name, amount, issue_date) VALUES (?, ?, ?) RETURNING id"),
			strings.TrimSpace(a.Name), a.Amount, a.IssueDate,
		).Scan(&a.ID)
	})
	if err != nil {
		return core.Assessment{}, classify("create assessment", err)
	}
	a.Name = strings.TrimSpace(a.Name)

	r.log.InfoContext(ctx, "Assessment saved", applog.FieldID, a.ID, "name", a.Name, applog.FieldAmount, a.Amount.String())
	return a, nil
}

func (r *Repository) GetAssessment(ctx context.Context, id int64) (core.Assessment, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	a, err := getAssessment(ctx, r.db, r.dialect, id)
	if err != nil {
		return core.Assessment{}, classify(fmt.Sprintf("get assessment %d", id), err)
	}
	return a, nil
}

func getAssessment(ctx context.Context, db queryer, d Dialect, id int64) (core.Assessment, error) {
	var a core.Assessment
	err := db.QueryRowContext(ctx,
		d.Rebind("SELECT "+assessmentColumns+" FROM assessments WHERE id = ?"), id,
	).Scan(&a.ID, &a.Name, &a.Amount, &a.IssueDate)
	return a, err
}

func (r *Repository) ListAssessments(ctx context.Context) ([]core.Assessment, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	list, err := listAssessments(ctx, r.db)
	if err != nil {
		return nil, classify("list assessments", err)
	}
	return list, nil
}

func listAssessments(ctx context.Context, db queryer) ([]core.Assessment, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+assessmentColumns+" FROM assessments ORDER BY issue_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Assessment{}
	for rows.Next() {
		var a core.Assessment
		if err := rows.Scan(&a.ID, &a.Name, &a.Amount, &a.IssueDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAssessment removes the assessment and its payments together.
func (r *Repository) DeleteAssessment(ctx context.Context, id int64) error {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	var removed int64
	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q("DELETE FROM assessment_payments WHERE assessment_id = ?"), id)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return deleteOne(ctx, tx, r.q("DELETE FROM assessments WHERE id = ?"), id, "assessment")
	})
	if err != nil {
		return classify(fmt.Sprintf("delete assessment %d", id), err)
	}

	r.log.InfoContext(ctx, "Assessment deleted", applog.FieldID, id, "payments_removed", removed)
	return nil
}

func deleteOne(ctx context.Context, db queryer, query string, id int64, what string) error {
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFoundf("%s %d", what, id)
	}
	return nil
}

// --- assessment payments ---

const paymentColumns = "id, assessment_id, unit, amount, paid_date, attachment_ref"

func (r *Repository) RecordAssessmentPayment(ctx context.Context, p core.AssessmentPayment) (core.AssessmentPayment, error) {
	if err := p.Validate(); err != nil {
		return core.AssessmentPayment{}, err
	}
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := getAssessment(ctx, tx, r.dialect, p.AssessmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.NotFoundf("assessment %d", p.AssessmentID)
			}
			return err
		}
		return tx.QueryRowContext(ctx,
			r.q("INSERT INTO assessment_payments (assessment_id, unit, amount, paid_date, attachment_ref) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			p.AssessmentID, int64(p.Unit), p.Amount, p.PaidDate, p.AttachmentRef,
		).Scan(&p.ID)
	})
	if err != nil {
		return core.AssessmentPayment{}, classify("record assessment payment", err)
	}

	r.log.InfoContext(ctx, "Assessment payment saved",
		applog.FieldID, p.ID,
		applog.FieldAssessmentID, p.AssessmentID,
		applog.FieldUnit, int(p.Unit),
		applog.FieldAmount, p.Amount.String())
	return p, nil
}

func (r *Repository) ListAssessmentPayments(ctx context.Context, assessmentID int64) ([]core.AssessmentPayment, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		r.q("SELECT "+paymentColumns+" FROM assessment_payments WHERE assessment_id = ? ORDER BY id"), assessmentID)
	if err != nil {
		return nil, classify("list assessment payments", err)
	}
	list, err := scanPayments(rows)
	if err != nil {
		return nil, classify("list assessment payments", err)
	}
	return list, nil
}

func scanPayments(rows *sql.Rows) ([]core.AssessmentPayment, error) {
	defer rows.Close()
	out := []core.AssessmentPayment{}
	for rows.Next() {
		var p core.AssessmentPayment
		if err := rows.Scan(&p.ID, &p.AssessmentID, &p.Unit, &p.Amount, &p.PaidDate, &p.AttachmentRef); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteAssessmentPayment(ctx context.Context, id int64) error {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, r.q("DELETE FROM assessment_payments WHERE id = ?"), id, "assessment payment")
	})
	if err != nil {
		return classify(fmt.Sprintf("delete assessment payment %d", id), err)
	}
	r.log.InfoContext(ctx, "Assessment payment deleted", applog.FieldID, id)
	return nil
}

// --- contributions ---

const contributionColumns = "id, unit, amount, paid_date, attachment_ref, notes"

func (r *Repository) RecordContribution(ctx context.Context, c core.Contribution) (core.Contribution, error) {
	if err := c.Validate(); err != nil {
		return core.Contribution{}, err
	}
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			r.q("INSERT INTO contributions (unit, amount, paid_date, attachment_ref, notes) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			int64(c.Unit), c.Amount, c.PaidDate, c.AttachmentRef, c.Notes,
		).Scan(&c.ID)
	})
	if err != nil {
		return core.Contribution{}, classify("record contribution", err)
	}

	r.log.InfoContext(ctx, "Contribution saved", applog.FieldID, c.ID, applog.FieldUnit, int(c.Unit), applog.FieldAmount, c.Amount.String())
	return c, nil
}

func (r *Repository) ListContributions(ctx context.Context, unit core.Unit) ([]core.Contribution, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	list, err := listContributions(ctx, r.db, r.dialect, unit)
	if err != nil {
		return nil, classify("list contributions", err)
	}
	return list, nil
}

func listContributions(ctx context.Context, db queryer, d Dialect, unit core.Unit) ([]core.Contribution, error) {
	query := "SELECT " + contributionColumns + " FROM contributions"
	var args []any
	if unit != core.AllUnits {
		query += " WHERE unit = ?"
		args = append(args, int64(unit))
	}
	query += " ORDER BY paid_date DESC, id DESC"

	rows, err := db.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Contribution{}
	for rows.Next() {
		var c core.Contribution
		if err := rows.Scan(&c.ID, &c.Unit, &c.Amount, &c.PaidDate, &c.AttachmentRef, &c.Notes); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContributionTotal sums in Go so the result stays exact on SQLite, where
// amounts are stored as text.
func (r *Repository) ContributionTotal(ctx context.Context, unit core.Unit) (core.Money, error) {
	list, err := r.ListContributions(ctx, unit)
	if err != nil {
		return core.Zero, err
	}
	total := core.Zero
	for _, c := range list {
		total = total.Add(c.Amount)
	}
	return total, nil
}

func (r *Repository) DeleteContribution(ctx context.Context, id int64) error {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, r.q("DELETE FROM contributions WHERE id = ?"), id, "contribution")
	})
	if err != nil {
		return classify(fmt.Sprintf("delete contribution %d", id), err)
	}
	r.log.InfoContext(ctx, "Contribution deleted", applog.FieldID, id)
	return nil
}

// --- expenses ---

const expenseColumns = "id, description, amount, paid_date, receipt_ref"

func (r *Repository) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	e.Description = strings.TrimSpace(e.Description)
	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			r.q("INSERT INTO expenses (description, amount, paid_date, receipt_ref) VALUES (?, ?, ?, ?) RETURNING id"),
			e.Description, e.Amount, e.PaidDate, e.ReceiptRef,
		).Scan(&e.ID)
	})
	if err != nil {
		return core.Expense{}, classify("record expense", err)
	}

	r.log.InfoContext(ctx, "Expense saved", applog.FieldID, e.ID, "description", e.Description, applog.FieldAmount, e.Amount.String())
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	list, err := listExpenses(ctx, r.db)
	if err != nil {
		return nil, classify("list expenses", err)
	}
	return list, nil
}

func listExpenses(ctx context.Context, db queryer) ([]core.Expense, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses ORDER BY paid_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.PaidDate, &e.ReceiptRef); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) ExpenseTotal(ctx context.Context) (core.Money, error) {
	list, err := r.ListExpenses(ctx)
	if err != nil {
		return core.Zero, err
	}
	total := core.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	err := r.withTx(ctx, nil, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, r.q("DELETE FROM expenses WHERE id = ?"), id, "expense")
	})
	if err != nil {
		return classify(fmt.Sprintf("delete expense %d", id), err)
	}
	r.log.InfoContext(ctx, "Expense deleted", applog.FieldID, id)
	return nil
}

// --- snapshot ---

// Snapshot reads all ledger tables inside one read transaction.
func (r *Repository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	ctx, cancel := r.scoped(ctx)
	defer cancel()

	var s core.Snapshot
	err := r.withTx(ctx, r.dialect.snapshot, func(tx *sql.Tx) error {
		var err error
		if s.Assessments, err = listAssessments(ctx, tx); err != nil {
			return fmt.Errorf("assessments: %w", err)
		}
		rows, err := tx.QueryContext(ctx, "SELECT "+paymentColumns+" FROM assessment_payments ORDER BY id")
		if err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		if s.Payments, err = scanPayments(rows); err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		if s.Contributions, err = listContributions(ctx, tx, r.dialect, core.AllUnits); err != nil {
			return fmt.Errorf("contributions: %w", err)
		}
		if s.Expenses, err = listExpenses(ctx, tx); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Snapshot{}, classify("read snapshot", err)
	}
	return s, nil
}
