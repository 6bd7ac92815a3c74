package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := s.userStore.Get(userID)
	if errors.Is(err, core.ErrUserNotFound) {
		s.respondError(w, http.StatusNotFound, core.FaultValidation, "User not found")
		return
	}
	if err != nil {
		logging.Error("failed to load profile %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to load profile")
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var updates struct {
		FullName  *string `json:"full_name"`
		AvatarURL *string `json:"avatar_url"`
		IsActive  *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}

	user, err := s.userStore.Update(userID, updates.FullName, updates.AvatarURL, updates.IsActive)
	if errors.Is(err, core.ErrUserNotFound) {
		s.respondError(w, http.StatusNotFound, core.FaultValidation, "User not found")
		return
	}
	if err != nil {
		logging.Error("failed to update profile %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to update profile")
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// handleGetPreferences returns stored preferences, or the defaults for users
// without a row.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	prefs, err := s.userStore.GetPreferences(userID)
	if errors.Is(err, core.ErrPreferencesNotFound) {
		defaults := core.DefaultPreferences()
		defaults.UserID = userID
		s.respondJSON(w, http.StatusOK, defaults)
		return
	}
	if err != nil {
		logging.Error("failed to load preferences %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to load preferences")
		return
	}

	s.respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	prefs := core.DefaultPreferences()
	if stored, err := s.userStore.GetPreferences(userID); err == nil {
		prefs = *stored
	}
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}
	prefs.UserID = userID

	if err := s.userStore.UpsertPreferences(&prefs); err != nil {
		logging.Error("failed to save preferences %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to save preferences")
		return
	}

	s.respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleGetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := s.analytics.GetUserStats(userID)
	if err != nil {
		logging.Error("failed to compute stats %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to compute stats")
		return
	}

	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	achievements, err := s.achievementStore.ListByUser(userID)
	if err != nil {
		logging.Error("failed to list achievements %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to list achievements")
		return
	}
	if achievements == nil {
		achievements = []*core.Achievement{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"achievements": achievements})
}

func (s *Server) handleGetChallenges(w http.ResponseWriter, r *http.Request) {
	var challenges []*core.Challenge
	var err error

	if r.URL.Query().Get("featured") == "true" {
		challenges, err = s.challengeStore.Featured()
	} else {
		challenges, err = s.challengeStore.Active()
	}
	if err != nil {
		logging.Error("failed to list challenges: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to list challenges")
		return
	}
	if challenges == nil {
		challenges = []*core.Challenge{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"challenges": challenges})
}

func (s *Server) handleJoinChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID, err := strconv.ParseInt(chi.URLParam(r, "challengeID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid challenge id")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "user_id is required")
		return
	}

	err = s.challengeStore.Join(challengeID, req.UserID)
	switch {
	case errors.Is(err, core.ErrChallengeNotFound):
		s.respondError(w, http.StatusNotFound, core.FaultValidation, "Challenge not found")
		return
	case errors.Is(err, core.ErrAlreadyJoined):
		s.respondError(w, http.StatusConflict, core.FaultValidation, "Already joined this challenge")
		return
	case err != nil:
		logging.Error("failed to join challenge %d: %v", challengeID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to join challenge")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "joined"})
}

func (s *Server) handleGetParticipating(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	participations, err := s.challengeStore.Participating(userID)
	if err != nil {
		logging.Error("failed to list participations %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to list participations")
		return
	}
	if participations == nil {
		participations = []*core.Participation{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"participating": participations})
}

func (s *Server) handleGetUserActivity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	events, err := s.eventStore.GetByUser(userID, limit, offset)
	if err != nil {
		logging.Error("failed to list activity %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to list activity")
		return
	}
	if events == nil {
		events = []*core.SortEvent{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var fb core.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}
	if fb.UserID == "" {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "user_id is required")
		return
	}
	if fb.Rating < 0 || fb.Rating > 5 {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "rating must be between 1 and 5")
		return
	}

	id, err := s.feedbackStore.Insert(&fb)
	if err != nil {
		logging.Error("failed to store feedback: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to store feedback")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleUpdateLastSeen(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := s.userStore.UpdateLastSeen(userID); err != nil {
		logging.Error("failed to update last seen %s: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to update last seen")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
