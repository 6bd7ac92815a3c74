// Package achievements awards milestone achievements after sort events.
package achievements

import (
	"github.com/rebinpro/rebin/internal/logging"
	"github.com/rebinpro/rebin/internal/storage"
)

// milestone is one threshold-based award.
type milestone struct {
	achievementType string
	points          int
	itemThreshold   int     // 0 means not item-based
	co2Threshold    float64 // 0 means not CO2-based
}

var milestones = []milestone{
	{achievementType: "first_sort", points: 10, itemThreshold: 1},
	{achievementType: "ten_items", points: 50, itemThreshold: 10},
	{achievementType: "fifty_items", points: 150, itemThreshold: 50},
	{achievementType: "hundred_items", points: 300, itemThreshold: 100},
	{achievementType: "co2_1kg", points: 100, co2Threshold: 1.0},
	{achievementType: "co2_5kg", points: 250, co2Threshold: 5.0},
}

// Checker awards achievements. It runs detached from the event insert path:
// its failures are logged and dropped, never surfaced to the caller.
type Checker struct {
	events       *storage.EventStore
	achievements *storage.AchievementStore
}

// NewChecker creates a new checker
func NewChecker(events *storage.EventStore, achievements *storage.AchievementStore) *Checker {
	return &Checker{events: events, achievements: achievements}
}

// CheckAsync dispatches an achievement check for the user as a detached
// background task. Fire-and-forget: the event insert must never fail or wait
// on this.
func (c *Checker) CheckAsync(userID string) {
	if userID == "" {
		return
	}
	go func() {
		if err := c.CheckNow(userID); err != nil {
			logging.Warn("achievement check failed for user %s: %v", userID, err)
		}
	}()
}

// CheckNow computes the user's totals and awards any newly crossed
// milestones. Exported for synchronous use in tests.
func (c *Checker) CheckNow(userID string) error {
	itemCount, err := c.events.CountByUser(userID)
	if err != nil {
		return err
	}
	co2Total, err := c.events.SumCO2ByUser(userID)
	if err != nil {
		return err
	}

	for _, m := range milestones {
		earned := (m.itemThreshold > 0 && itemCount >= m.itemThreshold) ||
			(m.co2Threshold > 0 && co2Total >= m.co2Threshold)
		if !earned {
			continue
		}

		data := map[string]any{
			"items_at_award": itemCount,
			"co2_at_award":   co2Total,
		}
		awarded, err := c.achievements.Award(userID, m.achievementType, data, m.points)
		if err != nil {
			return err
		}
		if awarded {
			logging.Info("awarded achievement %s to user %s", m.achievementType, userID)
		}
	}

	return nil
}
