package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rebinpro/rebin/internal/core"
)

// EventStore handles sort event persistence
type EventStore struct {
	db *DB
}

// NewEventStore creates a new event store
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Insert writes one sort event and returns its assigned id. Rows are
// immutable once created.
func (s *EventStore) Insert(event *core.SortEvent) (int64, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	items, _ := json.Marshal(event.Items)

	res, err := s.db.conn.Exec(`
		INSERT INTO sort_events (user_id, zip, items_json, decision, co2e_saved, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		nullString(event.UserID), nullString(event.Zip), string(items),
		string(event.Decision), event.CO2eSaved, event.CreatedAt,
	)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	event.ID = id
	return id, nil
}

// Filter bounds an event window query.
type Filter struct {
	Since  time.Time
	Until  time.Time // zero means unbounded
	Zip    string
	UserID string
}

// GetWindow returns events in a bounded time window, newest first.
func (s *EventStore) GetWindow(f Filter) ([]*core.SortEvent, error) {
	query := `
		SELECT id, user_id, zip, items_json, decision, co2e_saved, created_at
		FROM sort_events
		WHERE created_at >= ?
	`
	args := []any{f.Since}

	if !f.Until.IsZero() {
		query += " AND created_at < ?"
		args = append(args, f.Until)
	}
	if f.Zip != "" {
		query += " AND zip = ?"
		args = append(args, f.Zip)
	}
	if f.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByUser returns a user's events, newest first, with pagination.
func (s *EventStore) GetByUser(userID string, limit, offset int) ([]*core.SortEvent, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, user_id, zip, items_json, decision, co2e_saved, created_at
		FROM sort_events
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetRecent returns the most recent events across all users.
func (s *EventStore) GetRecent(limit int) ([]*core.SortEvent, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, user_id, zip, items_json, decision, co2e_saved, created_at
		FROM sort_events
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByUser returns the number of events a user has logged.
func (s *EventStore) CountByUser(userID string) (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM sort_events WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// SumCO2ByUser returns the total CO2e a user has saved.
func (s *EventStore) SumCO2ByUser(userID string) (float64, error) {
	var total float64
	err := s.db.conn.QueryRow(
		"SELECT COALESCE(SUM(co2e_saved), 0) FROM sort_events WHERE user_id = ?", userID,
	).Scan(&total)
	return total, err
}

// UserTotals is one user's all-time aggregate used for the leaderboard.
type UserTotals struct {
	UserID     string
	Items      int
	CO2Saved   float64
	Recycling  int
	Compost    int
	Trash      int
	ActiveDays int
}

// AllTimeTotals aggregates per-user totals in the store. Points and ranking
// are computed by the analytics service.
func (s *EventStore) AllTimeTotals() ([]UserTotals, error) {
	rows, err := s.db.conn.Query(`
		SELECT user_id,
		       COUNT(*),
		       COALESCE(SUM(co2e_saved), 0),
		       SUM(CASE WHEN decision = 'recycling' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN decision = 'compost' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN decision = 'trash' THEN 1 ELSE 0 END),
		       COUNT(DISTINCT date(created_at))
		FROM sort_events
		WHERE user_id IS NOT NULL
		GROUP BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []UserTotals
	for rows.Next() {
		var t UserTotals
		if err := rows.Scan(&t.UserID, &t.Items, &t.CO2Saved, &t.Recycling, &t.Compost, &t.Trash, &t.ActiveDays); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ActiveDays returns the distinct UTC dates (descending) on which a user
// logged events, for streak computation.
func (s *EventStore) ActiveDays(userID string, limit int) ([]string, error) {
	rows, err := s.db.conn.Query(`
		SELECT DISTINCT date(created_at)
		FROM sort_events
		WHERE user_id = ?
		ORDER BY date(created_at) DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]*core.SortEvent, error) {
	var events []*core.SortEvent

	for rows.Next() {
		event := &core.SortEvent{}
		var userID, zip sql.NullString
		var items string

		err := rows.Scan(&event.ID, &userID, &zip, &items, &event.Decision, &event.CO2eSaved, &event.CreatedAt)
		if err != nil {
			return nil, err
		}

		event.UserID = userID.String
		event.Zip = zip.String
		json.Unmarshal([]byte(items), &event.Items)

		events = append(events, event)
	}

	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
