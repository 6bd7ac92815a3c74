package storage

import (
	"encoding/json"
	"time"

	"github.com/rebinpro/rebin/internal/core"
)

// AchievementStore handles achievement persistence
type AchievementStore struct {
	db *DB
}

// NewAchievementStore creates a new achievement store
func NewAchievementStore(db *DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// Award inserts an achievement if the user doesn't already have one of that
// type. Returns true when a new row was created.
func (s *AchievementStore) Award(userID, achievementType string, data map[string]any, points int) (bool, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, _ := json.Marshal(data)

	res, err := s.db.conn.Exec(`
		INSERT OR IGNORE INTO achievements (user_id, achievement_type, achievement_data, points, earned_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, achievementType, string(raw), points, time.Now().UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByUser returns a user's achievements, newest first
func (s *AchievementStore) ListByUser(userID string) ([]*core.Achievement, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, user_id, achievement_type, achievement_data, points, earned_at
		FROM achievements
		WHERE user_id = ?
		ORDER BY earned_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []*core.Achievement
	for rows.Next() {
		a := &core.Achievement{}
		var data string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &data, &a.Points, &a.EarnedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(data), &a.Data)
		if a.Data == nil {
			a.Data = map[string]any{}
		}
		achievements = append(achievements, a)
	}

	return achievements, rows.Err()
}

// CountByUser returns how many achievements a user has earned
func (s *AchievementStore) CountByUser(userID string) (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM achievements WHERE user_id = ?", userID).Scan(&count)
	return count, err
}
