package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
	"github.com/rebinpro/rebin/internal/narrator"
	"github.com/rebinpro/rebin/internal/speech"
)

type speakRequest struct {
	Decisions        []core.ItemDecision `json:"decisions"`
	VoicePersonality string              `json:"voice_personality"`
	IncludeEcoTips   *bool               `json:"include_eco_tips"`
}

// handleSpeak composes personality-flavored narration for a set of decisions
// and synthesizes audio for it. Audio is best effort: a missing audio_url
// means the client should fall back to the text.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}

	if len(req.Decisions) == 0 {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "No decisions to narrate")
		return
	}
	if len(req.Decisions) > narrator.MaxDecisions {
		s.respondFault(w, narrator.ErrTooManyDecisions)
		return
	}

	personality, known := core.NormalizePersonality(req.VoicePersonality)
	if !known && req.VoicePersonality != "" {
		logging.Warn("unknown voice personality %q, using %s", req.VoicePersonality, personality)
	}

	includeEcoTips := true
	if req.IncludeEcoTips != nil {
		includeEcoTips = *req.IncludeEcoTips
	}

	conversational, fallback, err := narrator.Compose(req.Decisions, personality, includeEcoTips)
	if err != nil {
		s.respondFault(w, err)
		return
	}

	audioURL := s.synthesize(r, conversational, personality)

	resp := map[string]any{
		"conversational_text": conversational,
		"fallback_text":       fallback,
		"voice_personality":   string(personality),
	}
	if audioURL != "" {
		resp["audio_url"] = audioURL
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type ttsRequest struct {
	Text             string `json:"text"`
	VoicePersonality string `json:"voice_personality"`
}

// handleTTS synthesizes arbitrary text without the decision pipeline.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}

	text := narrator.Sanitize(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "No text to speak")
		return
	}

	personality, known := core.NormalizePersonality(req.VoicePersonality)
	if !known && req.VoicePersonality != "" {
		logging.Warn("unknown voice personality %q, using %s", req.VoicePersonality, personality)
	}

	audioURL := s.synthesize(r, text, personality)

	resp := map[string]any{
		"text":              text,
		"voice_personality": string(personality),
	}
	if audioURL != "" {
		resp["audio_url"] = audioURL
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) synthesize(r *http.Request, text string, personality core.Personality) string {
	start := time.Now()
	audioURL := s.synthesizer.Synthesize(r.Context(), text, personality)
	kind := ""
	if audioURL == "" {
		kind = "tts_failure"
		s.metrics.RecordTTSFailure()
	}
	s.metrics.RecordGatewayCall("speech", time.Since(start), kind)
	return audioURL
}

func (s *Server) handleGetVoices(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"voices": speech.Voices()})
}

func (s *Server) handleGetAvatars(w http.ResponseWriter, r *http.Request) {
	voices := speech.Voices()
	avatars := make([]speech.Avatar, 0, len(voices))
	for _, v := range voices {
		avatars = append(avatars, v.Avatar)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"avatars": avatars})
}
