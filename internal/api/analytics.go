package api

import (
	"encoding/json"
	"net/http"

	"github.com/rebinpro/rebin/internal/analytics"
	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

func (s *Server) handleGetTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("time_period")
	if period == "" {
		period = "7d"
	}

	trends, err := s.analytics.GetTrends(period, q.Get("zip_code"), q.Get("user_id"))
	if err != nil {
		logging.Error("failed to compute trends: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to compute trends")
		return
	}

	s.respondJSON(w, http.StatusOK, trends)
}

func (s *Server) handleGetImpact(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := analytics.PeriodDays(q.Get("time_period"))

	impact, err := s.analytics.GetImpact(q.Get("user_id"), days)
	if err != nil {
		logging.Error("failed to compute impact: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to compute impact")
		return
	}

	s.respondJSON(w, http.StatusOK, impact)
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}
	period := q.Get("time_period")
	if period == "" {
		period = "all"
	}

	entries, err := s.analytics.GetLeaderboard(limit, period)
	if err != nil {
		logging.Error("failed to compute leaderboard: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to compute leaderboard")
		return
	}
	if entries == nil {
		entries = []*core.LeaderboardEntry{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"leaderboard": entries,
		"time_period": period,
	})
}

func (s *Server) handleGetRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	entries, err := s.analytics.GetRecentActivity(limit)
	if err != nil {
		logging.Error("failed to list recent activity: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to list recent activity")
		return
	}
	if entries == nil {
		entries = []*analytics.ActivityEntry{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

type trackEventRequest struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	SessionID string         `json:"session_id"`
}

// handleTrackEvent records a client-side analytics event. Sessions without a
// provided id get a generated one, returned for reuse.
func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}
	if req.EventType == "" {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "event_type is required")
		return
	}

	eventData := ""
	if req.EventData != nil {
		raw, _ := json.Marshal(req.EventData)
		eventData = string(raw)
	}

	sessionID, err := s.analyticsStore.Track(req.UserID, req.EventType, eventData, req.SessionID)
	if err != nil {
		logging.Error("failed to track event: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to track event")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{
		"status":     "tracked",
		"session_id": sessionID,
	})
}
