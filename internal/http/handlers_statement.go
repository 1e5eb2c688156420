package http

import (
	"fmt"
	"net/http"

	"barriada/internal/core"
	"barriada/internal/export"
)

// assessmentPayments is the JSON form of the unit to payment map; JSON
// object keys are the unit numbers.
type assessmentPayments struct {
	AssessmentID int64                                `json:"assessment_id"`
	Payments     map[core.Unit]core.AssessmentPayment `json:"payments"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func (s *Server) handleGlobalStatement(w http.ResponseWriter, r *http.Request) {
	unit, err := ParseUnitFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.ledger.GlobalStatement(r.Context(), unit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleGlobalStatementExcel(w http.ResponseWriter, r *http.Request) {
	unit, err := ParseUnitFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.ledger.GlobalStatement(r.Context(), unit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, r, export.Filename(unit), export.GlobalTables(st))
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListAssessments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newList(list)).Write(w)
}

func (s *Server) handleAssessmentStatement(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.ledger.AssessmentStatement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleAssessmentStatementExcel(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.ledger.AssessmentStatement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, r, fmt.Sprintf("cuota_%d.xlsx", id), export.AssessmentTables(st))
}

func (s *Server) handleAssessmentPayments(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.ledger.ListPaymentsForAssessment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(assessmentPayments{AssessmentID: id, Payments: payments}).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleBalanceExcel(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, r, "saldos.xlsx", export.BalanceTables(st))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	unit, err := ParseUnitFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.ledger.ListContributions(r.Context(), unit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newList(list)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newList(list)).Write(w)
}
