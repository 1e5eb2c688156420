package core

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	maxNameLength  = 200
	maxNotesLength = 500
	maxRefLength   = 2048
)

type (
	Date struct {
		time.Time
	}

	// Assessment is a dues call ("cuota") charged to every unit.
	Assessment struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Amount    Money  `json:"amount"`
		IssueDate Date   `json:"issue_date"`
	}

	// AssessmentPayment is one unit paying one assessment.
	AssessmentPayment struct {
		ID            int64  `json:"id"`
		AssessmentID  int64  `json:"assessment_id"`
		Unit          Unit   `json:"unit"`
		Amount        Money  `json:"amount"`
		PaidDate      Date   `json:"paid_date"`
		AttachmentRef string `json:"attachment_ref,omitempty"`
	}

	// Contribution is an ad-hoc payment ("pago") made by a unit.
	Contribution struct {
		ID            int64  `json:"id"`
		Unit          Unit   `json:"unit"`
		Amount        Money  `json:"amount"`
		PaidDate      Date   `json:"paid_date"`
		AttachmentRef string `json:"attachment_ref,omitempty"`
		Notes         string `json:"notes,omitempty"`
	}

	// Expense is a community-wide outflow ("gasto").
	Expense struct {
		ID          int64  `json:"id"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		PaidDate    Date   `json:"paid_date"`
		ReceiptRef  string `json:"receipt_ref,omitempty"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate reads YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", "%q is not YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan accepts DATE columns (time.Time) and TEXT columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (a Assessment) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > maxNameLength {
		return Invalid("name", "too long (max %d characters)", maxNameLength)
	}
	if err := a.Amount.Validate(); err != nil {
		return err
	}
	return a.IssueDate.Validate()
}

func (p AssessmentPayment) Validate() error {
	if p.AssessmentID <= 0 {
		return Invalid("assessment_id", "must be positive")
	}
	if p.Unit < 1 {
		return ErrInvalidUnit
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.PaidDate.Validate(); err != nil {
		return err
	}
	return validateRef("attachment", p.AttachmentRef)
}

func (c Contribution) Validate() error {
	if c.Unit < 1 {
		return ErrInvalidUnit
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if err := c.PaidDate.Validate(); err != nil {
		return err
	}
	if len(c.Notes) > maxNotesLength {
		return Invalid("notes", "too long (max %d characters)", maxNotesLength)
	}
	return validateRef("attachment", c.AttachmentRef)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > maxNameLength {
		return Invalid("description", "too long (max %d characters)", maxNameLength)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.PaidDate.Validate(); err != nil {
		return err
	}
	return validateRef("receipt", e.ReceiptRef)
}

func validateRef(field, ref string) error {
	if len(ref) > maxRefLength {
		return Invalid(field, "reference too long")
	}
	return nil
}
