package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/rebinpro/rebin/internal/core"
)

// testDB creates a migrated in-memory database
func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func testUser(t *testing.T, db *DB, id string) {
	t.Helper()
	err := NewUserStore(db).Create(&core.User{
		ID:       id,
		Email:    id + "@example.com",
		FullName: "Test User",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
}

// --- Event store ---

func TestEventStore_InsertAndWindow(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db)

	id, err := store.Insert(&core.SortEvent{
		UserID:    "u1",
		Zip:       "94103",
		Items:     []string{"plastic cup", "paper lid"},
		Decision:  core.BinRecycling,
		CO2eSaved: 0.3,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned id")
	}

	events, err := store.GetWindow(Filter{Since: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("window query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	e := events[0]
	if e.UserID != "u1" || e.Zip != "94103" || e.Decision != core.BinRecycling {
		t.Errorf("unexpected event: %+v", e)
	}
	if len(e.Items) != 2 || e.Items[0] != "plastic cup" {
		t.Errorf("items round trip failed: %v", e.Items)
	}
}

func TestEventStore_WindowFilters(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db)

	insert := func(user, zip string) {
		if _, err := store.Insert(&core.SortEvent{
			UserID: user, Zip: zip, Items: []string{"x"}, Decision: core.BinTrash,
		}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	insert("u1", "94103")
	insert("u1", "10001")
	insert("u2", "94103")

	since := time.Now().Add(-time.Hour)

	byZip, _ := store.GetWindow(Filter{Since: since, Zip: "94103"})
	if len(byZip) != 2 {
		t.Errorf("zip filter: expected 2, got %d", len(byZip))
	}
	byUser, _ := store.GetWindow(Filter{Since: since, UserID: "u1"})
	if len(byUser) != 2 {
		t.Errorf("user filter: expected 2, got %d", len(byUser))
	}
	both, _ := store.GetWindow(Filter{Since: since, Zip: "94103", UserID: "u2"})
	if len(both) != 1 {
		t.Errorf("combined filter: expected 1, got %d", len(both))
	}
	none, _ := store.GetWindow(Filter{Since: time.Now().Add(time.Hour)})
	if len(none) != 0 {
		t.Errorf("future window: expected 0, got %d", len(none))
	}
}

func TestEventStore_UntilBound(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db)

	old := &core.SortEvent{
		UserID: "u1", Items: []string{"x"}, Decision: core.BinTrash,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -10),
	}
	recent := &core.SortEvent{UserID: "u1", Items: []string{"y"}, Decision: core.BinTrash}
	store.Insert(old)
	store.Insert(recent)

	previous, err := store.GetWindow(Filter{
		Since: time.Now().UTC().AddDate(0, 0, -14),
		Until: time.Now().UTC().AddDate(0, 0, -7),
	})
	if err != nil {
		t.Fatalf("window query failed: %v", err)
	}
	if len(previous) != 1 || previous[0].Items[0] != "x" {
		t.Fatalf("expected only the old event, got %d", len(previous))
	}
}

func TestEventStore_CountsAndTotals(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db)

	for _, bin := range []core.Bin{core.BinRecycling, core.BinRecycling, core.BinCompost, core.BinTrash} {
		store.Insert(&core.SortEvent{UserID: "u1", Items: []string{"i"}, Decision: bin, CO2eSaved: 0.5})
	}

	count, err := store.CountByUser("u1")
	if err != nil || count != 4 {
		t.Fatalf("expected count 4, got %d (%v)", count, err)
	}
	co2, err := store.SumCO2ByUser("u1")
	if err != nil || co2 != 2.0 {
		t.Fatalf("expected co2 2.0, got %f (%v)", co2, err)
	}

	totals, err := store.AllTimeTotals()
	if err != nil {
		t.Fatalf("totals failed: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("expected 1 user, got %d", len(totals))
	}
	tot := totals[0]
	if tot.Items != 4 || tot.Recycling != 2 || tot.Compost != 1 || tot.Trash != 1 {
		t.Errorf("unexpected totals: %+v", tot)
	}
}

func TestEventStore_Pagination(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db)

	for i := 0; i < 5; i++ {
		store.Insert(&core.SortEvent{UserID: "u1", Items: []string{"i"}, Decision: core.BinTrash})
	}

	page, err := store.GetByUser("u1", 2, 2)
	if err != nil {
		t.Fatalf("paged query failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}

// --- User store ---

func TestUserStore_GetNotFound(t *testing.T) {
	db := testDB(t)

	_, err := NewUserStore(db).Get("missing")
	if !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserStore_CreateAndUpdate(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db)
	testUser(t, db, "u1")

	name := "Renamed"
	user, err := store.Update("u1", &name, nil, nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if user.FullName != "Renamed" {
		t.Errorf("expected renamed user, got %q", user.FullName)
	}

	// Untouched fields survive
	reloaded, _ := store.Get("u1")
	if reloaded.Email != "u1@example.com" || !reloaded.IsActive {
		t.Errorf("unexpected reloaded user: %+v", reloaded)
	}
}

func TestUserStore_LastSeen(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db)
	testUser(t, db, "u1")

	if err := store.UpdateLastSeen("u1"); err != nil {
		t.Fatalf("last seen update failed: %v", err)
	}
	user, _ := store.Get("u1")
	if user.LastSeen.IsZero() {
		t.Error("expected last seen to be set")
	}
}

func TestUserStore_Preferences(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db)
	testUser(t, db, "u1")

	_, err := store.GetPreferences("u1")
	if !errors.Is(err, core.ErrPreferencesNotFound) {
		t.Fatalf("expected ErrPreferencesNotFound, got %v", err)
	}

	prefs := core.DefaultPreferences()
	prefs.UserID = "u1"
	prefs.Theme = "dark"
	prefs.DefaultZip = "10001"
	if err := store.UpsertPreferences(&prefs); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored, err := store.GetPreferences("u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Theme != "dark" || stored.DefaultZip != "10001" {
		t.Errorf("unexpected preferences: %+v", stored)
	}

	// Second upsert updates in place
	prefs.Theme = "light"
	if err := store.UpsertPreferences(&prefs); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	stored, _ = store.GetPreferences("u1")
	if stored.Theme != "light" {
		t.Errorf("expected updated theme, got %q", stored.Theme)
	}
}

// --- Policy store ---

func TestPolicyStore_SeedsIdempotent(t *testing.T) {
	db := testDB(t)
	store := NewPolicyStore(db)

	if err := store.EnsureSeeds(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := store.EnsureSeeds(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	policy, err := store.Get("94103")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if policy.City != "San Francisco" {
		t.Errorf("unexpected city: %q", policy.City)
	}
	if len(policy.Rules.Recycling) == 0 || len(policy.Rules.Compost) == 0 {
		t.Errorf("expected seeded rules: %+v", policy.Rules)
	}
}

func TestPolicyStore_GetNotFound(t *testing.T) {
	db := testDB(t)

	_, err := NewPolicyStore(db).Get("00000")
	if !errors.Is(err, core.ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}

func TestPolicyStore_Upsert(t *testing.T) {
	db := testDB(t)
	store := NewPolicyStore(db)

	policy := &core.Policy{
		Zip:   "60601",
		City:  "Chicago",
		State: "IL",
		Rules: core.PolicyRules{Recycling: []string{"cans"}},
	}
	if err := store.Upsert(policy); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	policy.Rules.Recycling = []string{"cans", "glass"}
	if err := store.Upsert(policy); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored, _ := store.Get("60601")
	if len(stored.Rules.Recycling) != 2 {
		t.Errorf("expected updated rules, got %v", stored.Rules.Recycling)
	}
}

// --- Challenge store ---

func TestChallengeStore_SeedsAndLists(t *testing.T) {
	db := testDB(t)
	store := NewChallengeStore(db)

	if err := store.EnsureSeeds(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := store.EnsureSeeds(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	active, err := store.Active()
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 seeded challenges, got %d", len(active))
	}

	featured, err := store.Featured()
	if err != nil {
		t.Fatalf("featured failed: %v", err)
	}
	if len(featured) != 2 {
		t.Fatalf("expected 2 featured challenges, got %d", len(featured))
	}
}

func TestChallengeStore_JoinOnce(t *testing.T) {
	db := testDB(t)
	store := NewChallengeStore(db)
	store.EnsureSeeds()
	testUser(t, db, "u1")

	challenges, _ := store.Active()
	id := challenges[0].ID

	if err := store.Join(id, "u1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := store.Join(id, "u1"); !errors.Is(err, core.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	participations, err := store.Participating("u1")
	if err != nil {
		t.Fatalf("participating failed: %v", err)
	}
	if len(participations) != 1 {
		t.Fatalf("expected 1 participation, got %d", len(participations))
	}
	if participations[0].Challenge == nil || participations[0].Challenge.ID != id {
		t.Errorf("expected challenge attached: %+v", participations[0])
	}
}

func TestChallengeStore_JoinMissingChallenge(t *testing.T) {
	db := testDB(t)
	store := NewChallengeStore(db)
	testUser(t, db, "u1")

	if err := store.Join(9999, "u1"); !errors.Is(err, core.ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

// --- Achievement store ---

func TestAchievementStore_AwardOnce(t *testing.T) {
	db := testDB(t)
	store := NewAchievementStore(db)
	testUser(t, db, "u1")

	awarded, err := store.Award("u1", "first_sort", map[string]any{"items_at_award": 1}, 10)
	if err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if !awarded {
		t.Fatal("expected first award to create a row")
	}

	again, err := store.Award("u1", "first_sort", nil, 10)
	if err != nil {
		t.Fatalf("second award failed: %v", err)
	}
	if again {
		t.Fatal("expected duplicate award to be ignored")
	}

	list, _ := store.ListByUser("u1")
	if len(list) != 1 || list[0].Points != 10 {
		t.Fatalf("unexpected achievements: %+v", list)
	}
	count, _ := store.CountByUser("u1")
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

// --- Feedback and analytics stores ---

func TestFeedbackStore_Insert(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "u1")

	id, err := NewFeedbackStore(db).Insert(&core.Feedback{
		UserID:  "u1",
		Rating:  4,
		Comment: "works well",
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned id")
	}
}

func TestAnalyticsStore_TrackGeneratesSession(t *testing.T) {
	db := testDB(t)
	store := NewAnalyticsStore(db)

	session, err := store.Track("", "page_view", `{"page":"home"}`, "")
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if session == "" {
		t.Fatal("expected generated session id")
	}

	same, err := store.Track("", "page_view", "", session)
	if err != nil {
		t.Fatalf("second track failed: %v", err)
	}
	if same != session {
		t.Fatalf("expected session to be reused, got %q", same)
	}
}
