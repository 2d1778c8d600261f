package http

import (
	"net/http"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	exps, err := s.deps.Expenses.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, exps)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	exp, err := s.deps.Expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, exp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	exp, err := s.deps.Expenses.Create(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	Created(w, exp)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	exp, err := s.deps.Expenses.Update(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, exp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Expenses.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, SuccessEnvelope{Success: true, Message: "Expense deleted"})
}
