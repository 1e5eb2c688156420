package http

import (
	"context"
	"fmt"
	"net/http"
)

type createdResponse struct {
	ID int64 `json:"id"`
	// Entity is the stored row as the service returned it.
	Entity any `json:"entity"`
}

func created(w http.ResponseWriter, location string, id int64, entity any) {
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", location).
		JSON(createdResponse{ID: id, Entity: entity}).
		Write(w)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// limitForm caps the body at one attachment plus form fields and parses it.
func (s *Server) limitForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverhead)
	return ParseForm(r, formMemoryMax)
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req AssessmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(s.validate, req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.ledger.CreateAssessment(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, fmt.Sprintf("/cuotas/%d", a.ID), a.ID, a)
}

func (s *Server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.ledger.DeleteAssessment)
}

func (s *Server) handleRecordAssessmentPayment(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.limitForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	req := PaymentRequest{
		Unit:   FormValue(r, fieldUnit),
		Amount: FormValue(r, fieldAmount),
	}
	if err := validateStruct(s.validate, req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input(assessmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, closer, err := FormFile(r, fieldProof, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeQuietly(closer)
	in.Attachment = file

	p, err := s.ledger.RecordAssessmentPayment(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, fmt.Sprintf("/cuotas/%d/pagos", assessmentID), p.ID, p)
}

func (s *Server) handleDeleteAssessmentPayment(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.ledger.DeleteAssessmentPayment)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	if err := s.limitForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	req := ContributionRequest{
		Unit:     FormValue(r, fieldUnit),
		Amount:   FormValue(r, fieldAmount),
		PaidDate: FormValue(r, fieldDate),
		Notes:    FormValue(r, fieldNotes),
	}
	if err := validateStruct(s.validate, req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, closer, err := FormFile(r, fieldProof, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeQuietly(closer)
	in.Attachment = file

	c, err := s.ledger.RecordContribution(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, fmt.Sprintf("/pagos?casa=%d", int(c.Unit)), c.ID, c)
}

func (s *Server) handleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.ledger.DeleteContribution)
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.limitForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	req := ExpenseRequest{
		Description: FormValue(r, fieldDescription),
		Amount:      FormValue(r, fieldAmount),
		PaidDate:    FormValue(r, fieldDate),
	}
	if err := validateStruct(s.validate, req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, closer, err := FormFile(r, fieldReceipt, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeQuietly(closer)
	in.Receipt = file

	e, err := s.ledger.RecordExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "/gastos", e.ID, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.ledger.DeleteExpense)
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}
