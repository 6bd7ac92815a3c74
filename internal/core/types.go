// Package core defines the fundamental types and errors for ReBin Pro.
package core

import "time"

// -----------------------------------------------------------------------------
// Bins - the three disposal categories everything resolves to
// -----------------------------------------------------------------------------

// Bin is the disposal category assigned to a detected item.
type Bin string

const (
	BinRecycling Bin = "recycling"
	BinCompost   Bin = "compost"
	BinTrash     Bin = "trash"
)

// ValidBin reports whether b is one of the three enumerated bins.
func ValidBin(b Bin) bool {
	switch b {
	case BinRecycling, BinCompost, BinTrash:
		return true
	}
	return false
}

// Title returns the bin name with an initial capital, for narration.
func (b Bin) Title() string {
	switch b {
	case BinRecycling:
		return "Recycling"
	case BinCompost:
		return "Compost"
	case BinTrash:
		return "Trash"
	}
	return string(b)
}

// -----------------------------------------------------------------------------
// Pipeline types - ephemeral, produced by the gateways
// -----------------------------------------------------------------------------

// ItemDetection is one object found in an uploaded image.
type ItemDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ItemDecision is the reasoned disposal decision for one detected item.
type ItemDecision struct {
	Label       string `json:"label"`
	Bin         Bin    `json:"bin"`
	Explanation string `json:"explanation"`
	EcoTip      string `json:"eco_tip"`
}

// -----------------------------------------------------------------------------
// Voice personalities - fixed narration styles
// -----------------------------------------------------------------------------

// Personality selects one of the three fixed narration styles.
type Personality string

const (
	PersonalityFriendly     Personality = "friendly"
	PersonalityEnthusiastic Personality = "enthusiastic"
	PersonalityEducational  Personality = "educational"
)

// NormalizePersonality coerces unknown values to friendly. The second return
// reports whether the input was already valid.
func NormalizePersonality(s string) (Personality, bool) {
	switch Personality(s) {
	case PersonalityFriendly, PersonalityEnthusiastic, PersonalityEducational:
		return Personality(s), true
	}
	return PersonalityFriendly, false
}

// -----------------------------------------------------------------------------
// Persisted records - owned by the store adapter
// -----------------------------------------------------------------------------

// SortEvent is one confirmed sorting action. Immutable once created.
type SortEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	Items     []string  `json:"items_json"`
	Decision  Bin       `json:"decision"`
	CO2eSaved float64   `json:"co2e_saved"`
	CreatedAt time.Time `json:"created_at"`
}

// PolicyRules holds the per-bin rule lists for a ZIP code.
type PolicyRules struct {
	Recycling []string `json:"recycling"`
	Compost   []string `json:"compost"`
	Trash     []string `json:"trash"`
}

// Policy is the locally applicable disposal rules for one ZIP code.
// Advisory context for the reasoning step, never enforced mechanically.
type Policy struct {
	Zip       string      `json:"zip"`
	Rules     PolicyRules `json:"rules_json"`
	City      string      `json:"city,omitempty"`
	State     string      `json:"state,omitempty"`
	Country   string      `json:"country,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// User is a profile row.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
	IsActive  bool      `json:"is_active"`
}

// Preferences is the per-user settings row, unique per user.
type Preferences struct {
	UserID               string `json:"-"`
	Theme                string `json:"theme"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	EmailNotifications   bool   `json:"email_notifications"`
	PushNotifications    bool   `json:"push_notifications"`
	DefaultZip           string `json:"default_zip,omitempty"`
	AvatarPreference     string `json:"avatar_preference"`
	Language             string `json:"language"`
	Timezone             string `json:"timezone"`
	Units                string `json:"units"`
	PrivacyLevel         string `json:"privacy_level"`
}

// DefaultPreferences returns the preferences applied to users without a row.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "light",
		NotificationsEnabled: true,
		EmailNotifications:   true,
		PushNotifications:    true,
		AvatarPreference:     "eco-emma",
		Language:             "en",
		Timezone:             "UTC",
		Units:                "metric",
		PrivacyLevel:         "standard",
	}
}

// Achievement is one earned milestone.
type Achievement struct {
	ID       int64          `json:"id"`
	UserID   string         `json:"-"`
	Type     string         `json:"achievement_type"`
	Data     map[string]any `json:"achievement_data"`
	Points   int            `json:"points"`
	EarnedAt time.Time      `json:"earned_at"`
}

// Challenge is a community goal users can join.
type Challenge struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Type               string    `json:"challenge_type"`
	TargetItems        int       `json:"target_items,omitempty"`
	TargetCO2          float64   `json:"target_co2,omitempty"`
	TargetParticipants int       `json:"target_participants,omitempty"`
	StartDate          time.Time `json:"start_date,omitempty"`
	EndDate            time.Time `json:"end_date,omitempty"`
	IsActive           bool      `json:"is_active"`
	IsFeatured         bool      `json:"is_featured"`
	DifficultyLevel    string    `json:"difficulty_level"`
	RewardPoints       int       `json:"reward_points"`
	CreatedAt          time.Time `json:"created_at"`
}

// Participation links a user to a challenge they joined.
type Participation struct {
	ID           int64          `json:"id"`
	ChallengeID  int64          `json:"challenge_id"`
	UserID       string         `json:"user_id"`
	JoinedAt     time.Time      `json:"joined_at"`
	CompletedAt  time.Time      `json:"completed_at,omitempty"`
	ProgressData map[string]any `json:"progress_data"`
	PointsEarned int            `json:"points_earned"`
	Challenge    *Challenge     `json:"challenge,omitempty"`
}

// Feedback is a user-submitted report on a sort decision or the app.
type Feedback struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	SortEventID int64     `json:"sort_event_id,omitempty"`
	Type        string    `json:"feedback_type"`
	Rating      int       `json:"rating,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	UserID           string  `json:"user_id"`
	UserName         string  `json:"user_name"`
	AvatarURL        string  `json:"avatar_url,omitempty"`
	TotalItemsSorted int     `json:"total_items_sorted"`
	TotalCO2Saved    float64 `json:"total_co2_saved"`
	TotalPoints      int     `json:"total_points"`
	RankPosition     int     `json:"rank_position"`
}
