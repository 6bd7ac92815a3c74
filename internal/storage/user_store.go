package storage

import (
	"database/sql"
	"time"

	"github.com/rebinpro/rebin/internal/core"
)

// UserStore handles user profile and preference persistence
type UserStore struct {
	db *DB
}

// NewUserStore creates a new user store
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Get returns a user by ID
func (s *UserStore) Get(id string) (*core.User, error) {
	user := &core.User{}
	var fullName, avatarURL sql.NullString
	var lastSeen sql.NullTime

	err := s.db.conn.QueryRow(`
		SELECT id, email, full_name, avatar_url, created_at, last_seen, is_active
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Email, &fullName, &avatarURL, &user.CreatedAt, &lastSeen, &user.IsActive)

	if err == sql.ErrNoRows {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.FullName = fullName.String
	user.AvatarURL = avatarURL.String
	if lastSeen.Valid {
		user.LastSeen = lastSeen.Time
	}

	return user, nil
}

// Create inserts a user row
func (s *UserStore) Create(user *core.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.conn.Exec(`
		INSERT INTO users (id, email, full_name, avatar_url, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, nullString(user.FullName), nullString(user.AvatarURL), user.CreatedAt, user.IsActive)
	return err
}

// Update applies profile changes and returns the updated user
func (s *UserStore) Update(id string, fullName, avatarURL *string, isActive *bool) (*core.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if fullName != nil {
		user.FullName = *fullName
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
	if isActive != nil {
		user.IsActive = *isActive
	}

	_, err = s.db.conn.Exec(`
		UPDATE users SET full_name = ?, avatar_url = ?, is_active = ? WHERE id = ?
	`, nullString(user.FullName), nullString(user.AvatarURL), user.IsActive, id)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateLastSeen stamps the user's last activity time
func (s *UserStore) UpdateLastSeen(id string) error {
	_, err := s.db.conn.Exec("UPDATE users SET last_seen = ? WHERE id = ?", time.Now().UTC(), id)
	return err
}

// GetPreferences returns a user's preferences row
func (s *UserStore) GetPreferences(userID string) (*core.Preferences, error) {
	prefs := &core.Preferences{UserID: userID}
	var defaultZip sql.NullString

	err := s.db.conn.QueryRow(`
		SELECT theme, notifications_enabled, email_notifications, push_notifications,
		       default_zip, avatar_preference, language, timezone, units, privacy_level
		FROM user_preferences WHERE user_id = ?
	`, userID).Scan(
		&prefs.Theme, &prefs.NotificationsEnabled, &prefs.EmailNotifications,
		&prefs.PushNotifications, &defaultZip, &prefs.AvatarPreference,
		&prefs.Language, &prefs.Timezone, &prefs.Units, &prefs.PrivacyLevel,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, err
	}

	prefs.DefaultZip = defaultZip.String
	return prefs, nil
}

// UpsertPreferences writes a user's preferences, creating the row if absent.
// Uniqueness of (user_id) is enforced by the primary key.
func (s *UserStore) UpsertPreferences(prefs *core.Preferences) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO user_preferences (
		    user_id, theme, notifications_enabled, email_notifications, push_notifications,
		    default_zip, avatar_preference, language, timezone, units, privacy_level, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    theme = excluded.theme,
		    notifications_enabled = excluded.notifications_enabled,
		    email_notifications = excluded.email_notifications,
		    push_notifications = excluded.push_notifications,
		    default_zip = excluded.default_zip,
		    avatar_preference = excluded.avatar_preference,
		    language = excluded.language,
		    timezone = excluded.timezone,
		    units = excluded.units,
		    privacy_level = excluded.privacy_level,
		    updated_at = excluded.updated_at
	`,
		prefs.UserID, prefs.Theme, prefs.NotificationsEnabled, prefs.EmailNotifications,
		prefs.PushNotifications, nullString(prefs.DefaultZip), prefs.AvatarPreference,
		prefs.Language, prefs.Timezone, prefs.Units, prefs.PrivacyLevel, time.Now().UTC(),
	)
	return err
}
