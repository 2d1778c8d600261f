package http

import (
	"net/http"
	"strconv"

	"subtrack/internal/core"
)

const (
	dashboardCacheKey = "summary"
	breakdownCacheKey = "breakdown"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.dashboardCache.Get(dashboardCacheKey); ok {
		OK(w, cached)
		return
	}

	summary, err := s.deps.Analytics.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dashboardCache.Set(dashboardCacheKey, summary)
	OK(w, summary)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.breakdownCache.Get(breakdownCacheKey); ok {
		OK(w, cached)
		return
	}

	breakdown, err := s.deps.Analytics.CategoryBreakdown(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.breakdownCache.Set(breakdownCacheKey, breakdown)
	OK(w, breakdown)
}

func (s *Server) handleTopSubscriptions(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), "limit", core.DefaultTopN)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := strconv.Itoa(limit)
	if cached, ok := s.topCache.Get(key); ok {
		OK(w, cached)
		return
	}

	ranked, err := s.deps.Analytics.TopSubscriptions(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := topSubscriptionsView(ranked)
	s.topCache.Set(key, view)
	OK(w, view)
}
