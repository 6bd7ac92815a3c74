// Package narrator turns bin decisions into personality-flavored speech text.
package narrator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/rebinpro/rebin/internal/core"
)

// MaxDecisions caps the number of decisions narrated per call.
const MaxDecisions = 10

// maxTextLen caps the final composed text length in runes.
const maxTextLen = 1000

// ErrTooManyDecisions is returned when more than MaxDecisions are passed.
var ErrTooManyDecisions = core.Faultf(core.FaultValidation, "Too many items (max %d)", MaxDecisions)

const (
	noItemsConversational = "I don't see any items to analyze. Please try uploading a photo!"
	noItemsFallback       = "No items detected. Please try uploading a photo."
)

// template is one personality's phrase set. Greeting and closing have
// several variants chosen at random; narration is flavor text, not a
// contract on exact strings.
type template struct {
	greetings   []string
	itemIntro   string // args: count, plural
	binDecision string // args: item, bin, explanation
	ecoTipIntro string
	closings    []string
}

var templates = map[core.Personality]template{
	core.PersonalityFriendly: {
		greetings:   []string{"Great!", "Awesome!", "Perfect!", "Excellent!"},
		itemIntro:   "I found %d item%s in your image",
		binDecision: "This %s goes in the %s bin because %s",
		ecoTipIntro: "Here's a fun fact:",
		closings: []string{
			"Every small action counts towards a greener planet!",
			"You're making a difference!",
			"Keep up the great work!",
		},
	},
	core.PersonalityEnthusiastic: {
		greetings:   []string{"Fantastic!", "Amazing!", "Incredible!", "Outstanding!"},
		itemIntro:   "I detected %d amazing item%s in your photo",
		binDecision: "This %s belongs in the %s bin! Here's why: %s",
		ecoTipIntro: "Get this exciting fact:",
		closings: []string{
			"You're absolutely crushing it for the environment!",
			"This is how we save the planet!",
			"You're an eco-hero!",
		},
	},
	core.PersonalityEducational: {
		greetings: []string{
			"Let me analyze this for you.",
			"I'll help you sort these items correctly.",
			"Here's what I found:",
		},
		itemIntro:   "I've identified %d item%s in your image",
		binDecision: "The %s should be placed in the %s bin. The reasoning is: %s",
		ecoTipIntro: "Additional information:",
		closings: []string{
			"Proper sorting contributes to environmental sustainability.",
			"Thank you for taking the time to sort correctly.",
			"Your efforts help reduce waste and pollution.",
		},
	},
}

// Sanitize strips angle brackets and quote characters, trims whitespace and
// caps the text at 1000 runes. Idempotent: sanitizing sanitized text is a
// no-op.
func Sanitize(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		}
		return r
	}, text)
	runes := []rune(text)
	if len(runes) > maxTextLen {
		text = string(runes[:maxTextLen])
	}
	return strings.TrimSpace(text)
}

// Compose renders decisions as personality-flavored conversational text plus
// a deterministic, personality-independent fallback. Unknown personalities
// must be coerced to friendly by the caller (NormalizePersonality); Compose
// itself treats any unknown value as friendly too.
func Compose(decisions []core.ItemDecision, personality core.Personality, includeEcoTips bool) (string, string, error) {
	if len(decisions) > MaxDecisions {
		return "", "", ErrTooManyDecisions
	}
	if len(decisions) == 0 {
		return noItemsConversational, noItemsFallback, nil
	}

	sanitized := make([]core.ItemDecision, len(decisions))
	for i, d := range decisions {
		d.Label = Sanitize(d.Label)
		d.Explanation = Sanitize(d.Explanation)
		d.EcoTip = Sanitize(d.EcoTip)
		sanitized[i] = d
	}

	tpl, ok := templates[personality]
	if !ok {
		tpl = templates[core.PersonalityFriendly]
	}

	plural := ""
	if len(sanitized) > 1 {
		plural = "s"
	}

	parts := []string{
		tpl.greetings[rand.Intn(len(tpl.greetings))],
		fmt.Sprintf(tpl.itemIntro, len(sanitized), plural),
	}
	for _, d := range sanitized {
		parts = append(parts, fmt.Sprintf(tpl.binDecision, d.Label, string(d.Bin), d.Explanation))
		if includeEcoTips && d.EcoTip != "" {
			parts = append(parts, tpl.ecoTipIntro+" "+d.EcoTip)
		}
	}
	parts = append(parts, tpl.closings[rand.Intn(len(tpl.closings))])

	conversational := Sanitize(strings.Join(parts, " "))
	fallback := Fallback(sanitized)
	return conversational, fallback, nil
}

// Fallback renders the deterministic pipe-delimited text used when speech
// synthesis is unavailable: one segment per decision, plus an optional
// eco-tip segment each.
func Fallback(decisions []core.ItemDecision) string {
	if len(decisions) == 0 {
		return noItemsFallback
	}

	var parts []string
	for _, d := range decisions {
		parts = append(parts, fmt.Sprintf("%s: %s bin. %s", Sanitize(d.Label), d.Bin.Title(), Sanitize(d.Explanation)))
		if tip := Sanitize(d.EcoTip); tip != "" {
			parts = append(parts, "Eco tip: "+tip)
		}
	}
	return Sanitize(strings.Join(parts, " | "))
}
