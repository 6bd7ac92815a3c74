// Package speech provides the text-to-speech gateway and the fixed
// voice-personality configuration table.
package speech

import "github.com/rebinpro/rebin/internal/core"

// VoiceSettings are the synthesis parameters sent to the TTS endpoint.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Avatar describes the on-screen character bound to a voice personality.
type Avatar struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Traits []string `json:"traits"`
	Color  string   `json:"color"`
}

// Voice binds a personality to a synthetic voice and avatar identity.
type Voice struct {
	PersonalityID core.Personality `json:"personality_id"`
	VoiceID       string           `json:"voice_id"`
	Settings      VoiceSettings    `json:"voice_settings"`
	Avatar        Avatar           `json:"avatar"`
}

// voices is the fixed in-process configuration table. Loaded once, never
// mutated at request time.
var voices = map[core.Personality]Voice{
	core.PersonalityFriendly: {
		PersonalityID: core.PersonalityFriendly,
		VoiceID:       "EXAVITQu4vr4xnSDxMaL",
		Settings:      VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.3, UseSpeakerBoost: true},
		Avatar: Avatar{
			ID:     "eco-emma",
			Name:   "Eco Emma",
			Traits: []string{"warm", "encouraging", "approachable"},
			Color:  "#4CAF50",
		},
	},
	core.PersonalityEnthusiastic: {
		PersonalityID: core.PersonalityEnthusiastic,
		VoiceID:       "pNInz6obpgDQGcFmaJgB",
		Settings:      VoiceSettings{Stability: 0.35, SimilarityBoost: 0.8, Style: 0.7, UseSpeakerBoost: true},
		Avatar: Avatar{
			ID:     "ranger-rex",
			Name:   "Ranger Rex",
			Traits: []string{"energetic", "playful", "motivating"},
			Color:  "#FF9800",
		},
	},
	core.PersonalityEducational: {
		PersonalityID: core.PersonalityEducational,
		VoiceID:       "21m00Tcm4TlvDq8ikWAM",
		Settings:      VoiceSettings{Stability: 0.65, SimilarityBoost: 0.7, Style: 0.15, UseSpeakerBoost: true},
		Avatar: Avatar{
			ID:     "professor-pine",
			Name:   "Professor Pine",
			Traits: []string{"knowledgeable", "patient", "precise"},
			Color:  "#2196F3",
		},
	},
}

// VoiceFor returns the voice configuration for a personality. Unknown values
// fall back to friendly, matching the narration coercion policy.
func VoiceFor(p core.Personality) Voice {
	if v, ok := voices[p]; ok {
		return v
	}
	return voices[core.PersonalityFriendly]
}

// Voices returns all voice configurations in a stable order.
func Voices() []Voice {
	return []Voice{
		voices[core.PersonalityFriendly],
		voices[core.PersonalityEnthusiastic],
		voices[core.PersonalityEducational],
	}
}
