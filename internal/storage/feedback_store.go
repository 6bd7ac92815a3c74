package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rebinpro/rebin/internal/core"
)

// FeedbackStore handles user feedback persistence
type FeedbackStore struct {
	db *DB
}

// NewFeedbackStore creates a new feedback store
func NewFeedbackStore(db *DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// Insert writes one feedback row and returns its id
func (s *FeedbackStore) Insert(fb *core.Feedback) (int64, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	if fb.Type == "" {
		fb.Type = "suggestion"
	}

	var sortEventID sql.NullInt64
	if fb.SortEventID != 0 {
		sortEventID = sql.NullInt64{Int64: fb.SortEventID, Valid: true}
	}
	var rating sql.NullInt64
	if fb.Rating != 0 {
		rating = sql.NullInt64{Int64: int64(fb.Rating), Valid: true}
	}

	res, err := s.db.conn.Exec(`
		INSERT INTO feedback (user_id, sort_event_id, feedback_type, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fb.UserID, sortEventID, fb.Type, rating, nullString(fb.Comment), fb.CreatedAt)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	fb.ID = id
	return id, nil
}

// AnalyticsStore records client analytics events
type AnalyticsStore struct {
	db *DB
}

// NewAnalyticsStore creates a new analytics store
func NewAnalyticsStore(db *DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// Track records one analytics event. An empty session id gets a generated
// one so client sessions without cookies still group.
func (s *AnalyticsStore) Track(userID, eventType string, eventData string, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if eventData == "" {
		eventData = "{}"
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO analytics_events (user_id, session_id, event_type, event_data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullString(userID), sessionID, eventType, eventData, time.Now().UTC())
	return sessionID, err
}
