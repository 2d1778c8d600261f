package http

import (
	"net/http"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	settings, err := s.deps.Settings.Update(r.Context(), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, settings)
}

func (s *Server) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	ns, err := s.deps.Settings.GetNotification(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, ns)
}

func (s *Server) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var req notificationPatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ValidateStruct(s.validate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ns, err := s.deps.Settings.UpdateNotification(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, ns)
}

// handleScheduledNotifications computes upcoming renewal alerts, by default
// for today; ?today=YYYY-MM-DD evaluates against another day.
func (s *Server) handleScheduledNotifications(w http.ResponseWriter, r *http.Request) {
	today, err := ParseDateQuery(r.URL.Query(), "today", s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	scheduled, err := s.deps.Notifications.Scheduled(r.Context(), today)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, scheduled)
}
