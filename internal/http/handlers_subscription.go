package http

import (
	"net/http"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.deps.Subscriptions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, subs)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, sub)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sub, err := s.deps.Subscriptions.Create(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	Created(w, sub)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionPatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sub, err := s.deps.Subscriptions.Update(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Subscriptions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, SuccessEnvelope{Success: true, Message: "Subscription deleted"})
}
