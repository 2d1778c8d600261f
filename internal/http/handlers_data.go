package http

import (
	"net/http"

	"subtrack/internal/services"
)

func (s *Server) handleDemoData(w http.ResponseWriter, r *http.Request) {
	nSubs, nExps, err := s.deps.Data.LoadDemoData(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, demoDataResponse{
		Success:       true,
		Message:       "Demo data loaded",
		Subscriptions: nSubs,
		Expenses:      nExps,
	})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Data.ExportJSON(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Data.ExportCSV(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(w, data)
}

// handleImportJSON loads a previous export. Merge mode is selected by the
// body's merge flag or by ?merge=true.
func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	mergeQuery, err := ParseBoolQuery(r.URL.Query(), "merge")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var data services.ImportData
	if err := DecodeJSON(w, r, &data); err != nil {
		s.writeError(w, r, err)
		return
	}
	data.Merge = data.Merge || mergeQuery

	res, err := s.deps.Data.Import(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()

	message := "Data imported"
	if res.Merged {
		message = "Data merged"
	}
	OK(w, importResponse{
		Success:               true,
		Message:               message,
		SubscriptionsImported: res.Subscriptions,
		ExpensesImported:      res.Expenses,
		Merged:                res.Merged,
	})
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Data.ResetAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	OK(w, SuccessEnvelope{
		Success: true,
		Message: "All data deleted",
		Data: resetData{
			SubscriptionsDeleted: res.Subscriptions,
			ExpensesDeleted:      res.Expenses,
		},
	})
}
