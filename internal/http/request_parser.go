// Package http serves the ledger over JSON and spreadsheet downloads.
//
// This file turns query strings, JSON bodies and multipart forms into
// service inputs. Shape checks run through the validator; amount, unit and
// date rules stay in core.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"barriada/internal/attachments"
	"barriada/internal/core"
	"barriada/internal/services"
)

// Form and query field names.
const (
	fieldUnit        = "casa"
	fieldAmount      = "monto"
	fieldDate        = "fecha"
	fieldNotes       = "notas"
	fieldDescription = "descripcion"
	fieldProof       = "comprobante"
	fieldReceipt     = "factura"
)

// newValidator reports fields by their json/form names instead of the Go
// field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validateStruct converts the first validator failure into a
// core.ValidationError.
func validateStruct(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.Invalid("body", "%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return core.Invalid(fe.Field(), "is required")
	case "max":
		return core.Invalid(fe.Field(), "must be at most %s characters", fe.Param())
	case "datetime":
		return core.Invalid(fe.Field(), "must be a date in YYYY-MM-DD format")
	case "number", "numeric":
		return core.Invalid(fe.Field(), "must be a number")
	default:
		return core.Invalid(fe.Field(), "failed %s check", fe.Tag())
	}
}

// AssessmentRequest is the JSON body of POST /admin/cuotas.
type AssessmentRequest struct {
	Name      string `json:"nombre" validate:"required,max=200"`
	Amount    string `json:"monto" validate:"required"`
	IssueDate string `json:"fecha" validate:"omitempty,datetime=2006-01-02"`
}

func (req AssessmentRequest) Input() (services.AssessmentInput, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return services.AssessmentInput{}, err
	}
	in := services.AssessmentInput{Name: req.Name, Amount: amount}
	if req.IssueDate != "" {
		if in.IssueDate, err = core.ParseDate(req.IssueDate); err != nil {
			return services.AssessmentInput{}, err
		}
	}
	return in, nil
}

// PaymentRequest is the form of POST /admin/cuotas/{id}/pagos.
type PaymentRequest struct {
	Unit   string `form:"casa" validate:"required,number"`
	Amount string `form:"monto" validate:"required"`
}

func (req PaymentRequest) Input(assessmentID int64) (services.PaymentInput, error) {
	unit, amount, err := unitAndAmount(req.Unit, req.Amount)
	if err != nil {
		return services.PaymentInput{}, err
	}
	return services.PaymentInput{AssessmentID: assessmentID, Unit: unit, Amount: amount}, nil
}

// ContributionRequest is the form of POST /admin/pagos.
type ContributionRequest struct {
	Unit     string `form:"casa" validate:"required,number"`
	Amount   string `form:"monto" validate:"required"`
	PaidDate string `form:"fecha" validate:"omitempty,datetime=2006-01-02"`
	Notes    string `form:"notas" validate:"max=500"`
}

func (req ContributionRequest) Input() (services.ContributionInput, error) {
	unit, amount, err := unitAndAmount(req.Unit, req.Amount)
	if err != nil {
		return services.ContributionInput{}, err
	}
	in := services.ContributionInput{Unit: unit, Amount: amount, Notes: req.Notes}
	if req.PaidDate != "" {
		if in.PaidDate, err = core.ParseDate(req.PaidDate); err != nil {
			return services.ContributionInput{}, err
		}
	}
	return in, nil
}

// ExpenseRequest is the form of POST /admin/gastos.
type ExpenseRequest struct {
	Description string `form:"descripcion" validate:"required,max=200"`
	Amount      string `form:"monto" validate:"required"`
	PaidDate    string `form:"fecha" validate:"omitempty,datetime=2006-01-02"`
}

func (req ExpenseRequest) Input() (services.ExpenseInput, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	in := services.ExpenseInput{Description: req.Description, Amount: amount}
	if req.PaidDate != "" {
		if in.PaidDate, err = core.ParseDate(req.PaidDate); err != nil {
			return services.ExpenseInput{}, err
		}
	}
	return in, nil
}

func unitAndAmount(rawUnit, rawAmount string) (core.Unit, core.Money, error) {
	unit, err := core.ParseUnit(rawUnit)
	if err != nil {
		return 0, core.Money{}, err
	}
	amount, err := core.ParseMoney(rawAmount)
	if err != nil {
		return 0, core.Money{}, err
	}
	return unit, amount, nil
}

// ParseUnitFilter reads ?casa=N. An absent or empty value selects every unit.
func ParseUnitFilter(r *http.Request) (core.Unit, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(fieldUnit))
	if raw == "" {
		return core.AllUnits, nil
	}
	return core.ParseUnit(raw)
}

// ParseID reads a positive integer path value.
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// DecodeJSON reads one JSON object into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.Invalid("body", "exceeds %d bytes", maxErr.Limit)
		}
		return core.Invalid("body", "malformed JSON: %v", err)
	}
	if dec.More() {
		return core.Invalid("body", "must contain a single JSON object")
	}
	return nil
}

// ParseForm accepts multipart and urlencoded bodies. Files beyond memLimit
// spill to temp files that the server removes after the request.
func ParseForm(r *http.Request, memLimit int64) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(memLimit)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.Invalid("body", "exceeds %d bytes", maxErr.Limit)
	}
	return core.Invalid("body", "malformed form: %v", err)
}

// FormValue returns the trimmed value with control characters removed.
func FormValue(r *http.Request, key string) string {
	return sanitizeInput(r.FormValue(key))
}

// FormFile opens an optional upload. The returned closer is nil when no
// file was sent.
func FormFile(r *http.Request, field string, maxBytes int64) (*attachments.File, io.Closer, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, core.Invalid(field, "unreadable upload: %v", err)
	}
	if fh.Size == 0 {
		f.Close()
		return nil, nil, core.Invalid(field, "file is empty")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		f.Close()
		return nil, nil, core.Invalid(field, "file exceeds %d bytes", maxBytes)
	}
	return &attachments.File{
		Name:        fh.Filename,
		ContentType: contentType(fh),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

