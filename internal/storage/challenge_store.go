package storage

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

// ChallengeStore handles challenge and participation persistence
type ChallengeStore struct {
	db *DB
}

// NewChallengeStore creates a new challenge store
func NewChallengeStore(db *DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

const challengeColumns = `id, title, description, challenge_type, target_items, target_co2,
	target_participants, start_date, end_date, is_active, is_featured,
	difficulty_level, reward_points, created_at`

// Active returns active challenges, newest first
func (s *ChallengeStore) Active() ([]*core.Challenge, error) {
	rows, err := s.db.conn.Query(`
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE is_active = 1
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChallenges(rows)
}

// Featured returns active featured challenges, newest first
func (s *ChallengeStore) Featured() ([]*core.Challenge, error) {
	rows, err := s.db.conn.Query(`
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE is_active = 1 AND is_featured = 1
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChallenges(rows)
}

// Get returns a challenge by ID
func (s *ChallengeStore) Get(id int64) (*core.Challenge, error) {
	row := s.db.conn.QueryRow(`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row.Scan)
	if err == sql.ErrNoRows {
		return nil, core.ErrChallengeNotFound
	}
	return c, err
}

// Join adds a user to a challenge. Joining twice is an error surfaced as
// core.ErrAlreadyJoined so the API can report it cleanly.
func (s *ChallengeStore) Join(challengeID int64, userID string) error {
	if _, err := s.Get(challengeID); err != nil {
		return err
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO challenge_participants (challenge_id, user_id, joined_at, progress_data)
		VALUES (?, ?, ?, '{}')
	`, challengeID, userID, time.Now().UTC())
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return core.ErrAlreadyJoined
	}
	return err
}

// Participating returns the challenges a user has joined, with the challenge
// row attached.
func (s *ChallengeStore) Participating(userID string) ([]*core.Participation, error) {
	rows, err := s.db.conn.Query(`
		SELECT p.id, p.challenge_id, p.user_id, p.joined_at, p.completed_at,
		       p.progress_data, p.points_earned,
		       c.id, c.title, c.description, c.challenge_type, c.target_items, c.target_co2,
		       c.target_participants, c.start_date, c.end_date, c.is_active, c.is_featured,
		       c.difficulty_level, c.reward_points, c.created_at
		FROM challenge_participants p
		JOIN challenges c ON c.id = p.challenge_id
		WHERE p.user_id = ?
		ORDER BY p.joined_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participations []*core.Participation
	for rows.Next() {
		p := &core.Participation{}
		c := &core.Challenge{}
		var completedAt sql.NullTime
		var progress string
		var desc sql.NullString
		var targetItems, targetParticipants sql.NullInt64
		var targetCO2 sql.NullFloat64
		var startDate, endDate sql.NullTime

		err := rows.Scan(
			&p.ID, &p.ChallengeID, &p.UserID, &p.JoinedAt, &completedAt,
			&progress, &p.PointsEarned,
			&c.ID, &c.Title, &desc, &c.Type, &targetItems, &targetCO2,
			&targetParticipants, &startDate, &endDate, &c.IsActive, &c.IsFeatured,
			&c.DifficultyLevel, &c.RewardPoints, &c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if completedAt.Valid {
			p.CompletedAt = completedAt.Time
		}
		json.Unmarshal([]byte(progress), &p.ProgressData)
		if p.ProgressData == nil {
			p.ProgressData = map[string]any{}
		}

		c.Description = desc.String
		c.TargetItems = int(targetItems.Int64)
		c.TargetCO2 = targetCO2.Float64
		c.TargetParticipants = int(targetParticipants.Int64)
		if startDate.Valid {
			c.StartDate = startDate.Time
		}
		if endDate.Valid {
			c.EndDate = endDate.Time
		}
		p.Challenge = c

		participations = append(participations, p)
	}

	return participations, rows.Err()
}

// seedChallenges is the fixed startup challenge set.
var seedChallenges = []core.Challenge{
	{
		Title:           "Recycling Rookie",
		Description:     "Sort your first 10 items correctly and start your eco-journey!",
		Type:            "recycling",
		TargetItems:     10,
		TargetCO2:       0.5,
		DifficultyLevel: "easy",
		RewardPoints:    50,
		IsActive:        true,
		IsFeatured:      true,
	},
	{
		Title:           "Compost Champion",
		Description:     "Compost 20 food items this month and reduce food waste!",
		Type:            "compost",
		TargetItems:     20,
		TargetCO2:       1.0,
		DifficultyLevel: "medium",
		RewardPoints:    100,
		IsActive:        true,
		IsFeatured:      true,
	},
	{
		Title:           "Waste Warrior",
		Description:     "Sort 100 items and save 5kg CO2 - become a true waste warrior!",
		Type:            "reduction",
		TargetItems:     100,
		TargetCO2:       5.0,
		DifficultyLevel: "hard",
		RewardPoints:    500,
		IsActive:        true,
		IsFeatured:      false,
	},
}

// EnsureSeeds inserts the fixed challenge set if absent. Idempotent via the
// title uniqueness constraint.
func (s *ChallengeStore) EnsureSeeds() error {
	seeded := 0
	for i := range seedChallenges {
		c := seedChallenges[i]
		res, err := s.db.conn.Exec(`
			INSERT OR IGNORE INTO challenges (
			    title, description, challenge_type, target_items, target_co2,
			    is_active, is_featured, difficulty_level, reward_points, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.Title, c.Description, c.Type, c.TargetItems, c.TargetCO2,
			c.IsActive, c.IsFeatured, c.DifficultyLevel, c.RewardPoints, time.Now().UTC())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			seeded++
		}
	}
	if seeded > 0 {
		logging.Info("Seeded %d challenges", seeded)
	}
	return nil
}

type scanFunc func(dest ...any) error

func scanChallenge(scan scanFunc) (*core.Challenge, error) {
	c := &core.Challenge{}
	var desc sql.NullString
	var targetItems, targetParticipants sql.NullInt64
	var targetCO2 sql.NullFloat64
	var startDate, endDate sql.NullTime

	err := scan(
		&c.ID, &c.Title, &desc, &c.Type, &targetItems, &targetCO2,
		&targetParticipants, &startDate, &endDate, &c.IsActive, &c.IsFeatured,
		&c.DifficultyLevel, &c.RewardPoints, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Description = desc.String
	c.TargetItems = int(targetItems.Int64)
	c.TargetCO2 = targetCO2.Float64
	c.TargetParticipants = int(targetParticipants.Int64)
	if startDate.Valid {
		c.StartDate = startDate.Time
	}
	if endDate.Valid {
		c.EndDate = endDate.Time
	}

	return c, nil
}

func scanChallenges(rows *sql.Rows) ([]*core.Challenge, error) {
	var challenges []*core.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows.Scan)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}
