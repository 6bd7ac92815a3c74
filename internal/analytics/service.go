// Package analytics computes trends, impact and leaderboard aggregates over
// bounded sort-event windows.
package analytics

import (
	"sort"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/storage"
)

// Points per decision for leaderboard scoring.
const (
	pointsRecycling = 10
	pointsCompost   = 8
	pointsTrash     = 2
)

// periodDays maps the API's time_period values to day counts.
var periodDays = map[string]int{
	"1d": 1, "7d": 7, "30d": 30, "90d": 90, "1y": 365,
}

// Service computes analytics over the event store
type Service struct {
	events       *storage.EventStore
	users        *storage.UserStore
	achievements *storage.AchievementStore

	// now is injectable for tests
	now func() time.Time
}

// NewService creates a new analytics service
func NewService(events *storage.EventStore, users *storage.UserStore, achievements *storage.AchievementStore) *Service {
	return &Service{
		events:       events,
		users:        users,
		achievements: achievements,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// PeriodDays resolves a time_period string, defaulting to 7.
func PeriodDays(period string) int {
	if d, ok := periodDays[period]; ok {
		return d
	}
	return 7
}

// TrendPair compares a metric across the current and previous period.
type TrendPair struct {
	Current          float64 `json:"current"`
	Previous         float64 `json:"previous"`
	ChangePercentage float64 `json:"change_percentage"`
}

// TopItem is one frequently sorted item label.
type TopItem struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// ZipCount is one ZIP code's event count.
type ZipCount struct {
	Zip   string `json:"zip"`
	Count int    `json:"count"`
}

// GeoDistribution summarizes where events come from.
type GeoDistribution struct {
	TopZipCodes    []ZipCount `json:"top_zip_codes"`
	TotalLocations int        `json:"total_locations"`
}

// DayPoint is one day of the time series.
type DayPoint struct {
	Date       string  `json:"date"`
	ItemsCount int     `json:"items_count"`
	CO2Saved   float64 `json:"co2_saved"`
}

// Trends is the trends endpoint payload.
type Trends struct {
	Period                 string               `json:"period"`
	TotalItems             int                  `json:"total_items"`
	TotalCO2Saved          float64              `json:"total_co2_saved"`
	TotalUsers             int                  `json:"total_users"`
	RecyclingRate          float64              `json:"recycling_rate"`
	Trends                 map[string]TrendPair `json:"trends"`
	TopItems               []TopItem            `json:"top_items"`
	GeographicDistribution GeoDistribution      `json:"geographic_distribution"`
	TimeSeries             []DayPoint           `json:"time_series"`
}

// GetTrends computes recycling trends and patterns over a bounded window.
func (s *Service) GetTrends(period, zip, userID string) (*Trends, error) {
	days := PeriodDays(period)
	now := s.now()
	since := now.AddDate(0, 0, -days)

	events, err := s.events.GetWindow(storage.Filter{Since: since, Zip: zip, UserID: userID})
	if err != nil {
		return nil, err
	}

	totalItems := len(events)
	var totalCO2 float64
	recyclingCount := 0
	uniqueUsers := map[string]struct{}{}
	for _, e := range events {
		totalCO2 += e.CO2eSaved
		if e.Decision == core.BinRecycling {
			recyclingCount++
		}
		if e.UserID != "" {
			uniqueUsers[e.UserID] = struct{}{}
		}
	}

	recyclingRate := 0.0
	if totalItems > 0 {
		recyclingRate = float64(recyclingCount) / float64(totalItems) * 100
	}

	trends, err := s.compareWithPrevious(events, days, zip, userID)
	if err != nil {
		return nil, err
	}

	return &Trends{
		Period:                 period,
		TotalItems:             totalItems,
		TotalCO2Saved:          totalCO2,
		TotalUsers:             len(uniqueUsers),
		RecyclingRate:          recyclingRate,
		Trends:                 trends,
		TopItems:               topItems(events, 10),
		GeographicDistribution: geoDistribution(events, 10),
		TimeSeries:             timeSeries(events, days, now),
	}, nil
}

func (s *Service) compareWithPrevious(current []*core.SortEvent, days int, zip, userID string) (map[string]TrendPair, error) {
	if len(current) == 0 {
		return map[string]TrendPair{}, nil
	}

	now := s.now()
	previous, err := s.events.GetWindow(storage.Filter{
		Since:  now.AddDate(0, 0, -2*days),
		Until:  now.AddDate(0, 0, -days),
		Zip:    zip,
		UserID: userID,
	})
	if err != nil {
		return nil, err
	}

	var currentCO2, previousCO2 float64
	for _, e := range current {
		currentCO2 += e.CO2eSaved
	}
	for _, e := range previous {
		previousCO2 += e.CO2eSaved
	}

	return map[string]TrendPair{
		"items_trend": pair(float64(len(current)), float64(len(previous))),
		"co2_trend":   pair(currentCO2, previousCO2),
	}, nil
}

func pair(current, previous float64) TrendPair {
	change := 0.0
	if previous > 0 {
		change = (current - previous) / previous * 100
	}
	return TrendPair{Current: current, Previous: previous, ChangePercentage: change}
}

func topItems(events []*core.SortEvent, limit int) []TopItem {
	counts := map[string]int{}
	for _, e := range events {
		for _, item := range e.Items {
			counts[item]++
		}
	}

	items := make([]TopItem, 0, len(counts))
	for item, count := range counts {
		items = append(items, TopItem{Item: item, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Item < items[j].Item
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func geoDistribution(events []*core.SortEvent, limit int) GeoDistribution {
	counts := map[string]int{}
	for _, e := range events {
		if e.Zip != "" {
			counts[e.Zip]++
		}
	}

	zips := make([]ZipCount, 0, len(counts))
	for zip, count := range counts {
		zips = append(zips, ZipCount{Zip: zip, Count: count})
	}
	sort.Slice(zips, func(i, j int) bool {
		if zips[i].Count != zips[j].Count {
			return zips[i].Count > zips[j].Count
		}
		return zips[i].Zip < zips[j].Zip
	})
	if len(zips) > limit {
		zips = zips[:limit]
	}

	return GeoDistribution{TopZipCodes: zips, TotalLocations: len(counts)}
}

func timeSeries(events []*core.SortEvent, days int, now time.Time) []DayPoint {
	dailyCounts := map[string]int{}
	dailyCO2 := map[string]float64{}
	for _, e := range events {
		day := e.CreatedAt.UTC().Format("2006-01-02")
		dailyCounts[day]++
		dailyCO2[day] += e.CO2eSaved
	}

	series := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, DayPoint{
			Date:       day,
			ItemsCount: dailyCounts[day],
			CO2Saved:   dailyCO2[day],
		})
	}
	return series
}

// Impact is the environmental-impact endpoint payload.
type Impact struct {
	UserID              string             `json:"user_id,omitempty"`
	TotalCO2Saved       float64            `json:"total_co2_saved"`
	TotalItemsSorted    int                `json:"total_items_sorted"`
	RecyclingPercentage float64            `json:"recycling_percentage"`
	CompostPercentage   float64            `json:"compost_percentage"`
	TrashPercentage     float64            `json:"trash_percentage"`
	EnvironmentalImpact map[string]float64 `json:"environmental_impact"`
	Achievements        []*core.Achievement `json:"achievements"`
	Rank                int                `json:"rank,omitempty"`
}

// GetImpact calculates impact metrics for a user, or globally when userID is
// empty. The equivalence multipliers are rough consumer-facing estimates.
func (s *Service) GetImpact(userID string, days int) (*Impact, error) {
	since := s.now().AddDate(0, 0, -days)
	events, err := s.events.GetWindow(storage.Filter{Since: since, UserID: userID})
	if err != nil {
		return nil, err
	}

	total := len(events)
	var totalCO2 float64
	var recycling, compost, trash int
	for _, e := range events {
		totalCO2 += e.CO2eSaved
		switch e.Decision {
		case core.BinRecycling:
			recycling++
		case core.BinCompost:
			compost++
		case core.BinTrash:
			trash++
		}
	}

	pct := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	impact := &Impact{
		UserID:              userID,
		TotalCO2Saved:       totalCO2,
		TotalItemsSorted:    total,
		RecyclingPercentage: pct(recycling),
		CompostPercentage:   pct(compost),
		TrashPercentage:     pct(trash),
		EnvironmentalImpact: map[string]float64{
			"co2_equivalent_kg":        totalCO2,
			"trees_planted_equivalent": totalCO2 * 0.1,
			"energy_saved_kwh":         totalCO2 * 2.5,
			"water_saved_liters":       totalCO2 * 100,
		},
		Achievements: []*core.Achievement{},
	}

	if userID != "" {
		achievements, err := s.achievements.ListByUser(userID)
		if err != nil {
			return nil, err
		}
		if achievements != nil {
			impact.Achievements = achievements
		}

		stats, err := s.GetUserStats(userID)
		if err != nil {
			return nil, err
		}
		impact.Rank = stats.RankPosition
	}

	return impact, nil
}

// UserStats is the per-user stats payload.
type UserStats struct {
	TotalItemsSorted int     `json:"total_items_sorted"`
	TotalCO2Saved    float64 `json:"total_co2_saved"`
	TotalPoints      int     `json:"total_points"`
	RankPosition     int     `json:"rank_position,omitempty"`
	StreakDays       int     `json:"streak_days"`
	AchievementCount int     `json:"achievement_count"`
}

// GetUserStats computes a user's totals, leaderboard rank and streak.
func (s *Service) GetUserStats(userID string) (*UserStats, error) {
	entries, err := s.allTimeLeaderboard()
	if err != nil {
		return nil, err
	}

	stats := &UserStats{}
	for _, e := range entries {
		if e.UserID == userID {
			stats.TotalItemsSorted = e.TotalItemsSorted
			stats.TotalCO2Saved = e.TotalCO2Saved
			stats.TotalPoints = e.TotalPoints
			stats.RankPosition = e.RankPosition
			break
		}
	}

	streak, err := s.streakDays(userID)
	if err != nil {
		return nil, err
	}
	stats.StreakDays = streak

	count, err := s.achievements.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	stats.AchievementCount = count

	return stats, nil
}

// streakDays counts consecutive active days ending today or yesterday.
func (s *Service) streakDays(userID string) (int, error) {
	days, err := s.events.ActiveDays(userID, 366)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := s.now().Format("2006-01-02")
	yesterday := s.now().AddDate(0, 0, -1).Format("2006-01-02")
	if days[0] != today && days[0] != yesterday {
		return 0, nil
	}

	streak := 1
	cursor, _ := time.Parse("2006-01-02", days[0])
	for _, d := range days[1:] {
		expected := cursor.AddDate(0, 0, -1).Format("2006-01-02")
		if d != expected {
			break
		}
		streak++
		cursor, _ = time.Parse("2006-01-02", d)
	}
	return streak, nil
}

// GetLeaderboard returns ranked users. period "all" uses the store's
// all-time aggregate; windowed periods are computed here from raw events.
func (s *Service) GetLeaderboard(limit int, period string) ([]*core.LeaderboardEntry, error) {
	var entries []*core.LeaderboardEntry
	var err error

	if period == "" || period == "all" {
		entries, err = s.allTimeLeaderboard()
	} else {
		entries, err = s.windowedLeaderboard(PeriodDays(period))
	}
	if err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}

	// Enrich with profile data; missing users stay anonymous
	for _, entry := range entries {
		user, err := s.users.Get(entry.UserID)
		if err != nil {
			entry.UserName = "Anonymous"
			continue
		}
		entry.UserName = user.FullName
		if entry.UserName == "" {
			entry.UserName = "Anonymous"
		}
		entry.AvatarURL = user.AvatarURL
	}

	return entries, nil
}

func (s *Service) allTimeLeaderboard() ([]*core.LeaderboardEntry, error) {
	totals, err := s.events.AllTimeTotals()
	if err != nil {
		return nil, err
	}

	entries := make([]*core.LeaderboardEntry, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, &core.LeaderboardEntry{
			UserID:           t.UserID,
			TotalItemsSorted: t.Items,
			TotalCO2Saved:    t.CO2Saved,
			TotalPoints:      t.Recycling*pointsRecycling + t.Compost*pointsCompost + t.Trash*pointsTrash,
		})
	}
	rank(entries)
	return entries, nil
}

func (s *Service) windowedLeaderboard(days int) ([]*core.LeaderboardEntry, error) {
	events, err := s.events.GetWindow(storage.Filter{Since: s.now().AddDate(0, 0, -days)})
	if err != nil {
		return nil, err
	}

	byUser := map[string]*core.LeaderboardEntry{}
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		entry, ok := byUser[e.UserID]
		if !ok {
			entry = &core.LeaderboardEntry{UserID: e.UserID}
			byUser[e.UserID] = entry
		}
		entry.TotalItemsSorted++
		entry.TotalCO2Saved += e.CO2eSaved
		switch e.Decision {
		case core.BinRecycling:
			entry.TotalPoints += pointsRecycling
		case core.BinCompost:
			entry.TotalPoints += pointsCompost
		default:
			entry.TotalPoints += pointsTrash
		}
	}

	entries := make([]*core.LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		entries = append(entries, entry)
	}
	rank(entries)
	return entries, nil
}

func rank(entries []*core.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i, entry := range entries {
		entry.RankPosition = i + 1
	}
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	Event    *core.SortEvent `json:"event"`
	UserName string          `json:"user_name"`
}

// GetRecentActivity returns the latest events with display names attached.
func (s *Service) GetRecentActivity(limit int) ([]*ActivityEntry, error) {
	events, err := s.events.GetRecent(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]*ActivityEntry, 0, len(events))
	for _, e := range events {
		entry := &ActivityEntry{Event: e, UserName: "Anonymous"}
		if e.UserID != "" {
			if user, err := s.users.Get(e.UserID); err == nil && user.FullName != "" {
				entry.UserName = user.FullName
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
