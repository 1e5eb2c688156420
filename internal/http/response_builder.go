// Package http serves the ledger over JSON and spreadsheet downloads.
//
// This file holds the fluent response builder every handler writes
// through, and the mapping from domain errors to status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"barriada/internal/auth"
	"barriada/internal/core"
	"barriada/internal/export"
	applog "barriada/internal/log"
	"barriada/internal/middleware/trace"
)

// ResponseBuilder collects status, headers and body before writing them.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into
// a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"internal_error","message":"failed to encode response"}`)
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = append(data, '\n')
	return b
}

// Attachment sets the body as a file download.
func (b *ResponseBuilder) Attachment(filename, contentType string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	b.body = body
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse builds an error body carrying the request id.
func ErrorResponse(r *http.Request, status int, code, message string) *ResponseBuilder {
	return NewResponse().Status(status).JSON(ErrorBody{
		Error:     code,
		Message:   message,
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// writeError maps err onto a status code. Unexpected errors are logged and
// hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classifyError(err)
	body.RequestID = trace.GetRequestID(r.Context())

	logger := applog.FromContext(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldErrorType, body.Error,
			applog.FieldPath, r.URL.Path)
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldError, err,
			applog.FieldStatusCode, status)
	}

	NewResponse().Status(status).JSON(body).Write(w)
}

func classifyError(err error) (int, ErrorBody) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorBody{Error: applog.ErrorTypeValidation, Message: verr.Error(), Field: verr.Field}
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, ErrorBody{Error: applog.ErrorTypeValidation, Message: err.Error()}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: applog.ErrorTypeNotFound, Message: err.Error()}
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorBody{Error: applog.ErrorTypeAuth, Message: "authentication required"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: applog.ErrorTypeAuth, Message: err.Error()}
	case errors.Is(err, core.ErrAttachmentUpload):
		return http.StatusBadGateway, ErrorBody{Error: applog.ErrorTypeUpload, Message: "attachment could not be stored"}
	case errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, ErrorBody{Error: applog.ErrorTypeDatabase, Message: "storage unavailable, try again later"}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: applog.ErrorTypeInternal, Message: "internal error"}
	}
}

// writeWorkbook renders tables into an xlsx download. The workbook is
// built in memory so a failure can still produce a JSON error.
func writeWorkbook(w http.ResponseWriter, r *http.Request, filename string, tables []export.Table) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, tables); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Workbook render failed",
			applog.FieldOperation, applog.OpExport, "filename", filename, applog.FieldError, err)
		writeError(w, r, fmt.Errorf("render %s: %w", filename, err))
		return
	}
	NewResponse().Attachment(filename, export.ContentTypeXLSX, buf.Bytes()).Write(w)
}
