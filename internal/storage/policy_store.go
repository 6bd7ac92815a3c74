package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

// PolicyStore handles disposal policy persistence
type PolicyStore struct {
	db *DB
}

// NewPolicyStore creates a new policy store
func NewPolicyStore(db *DB) *PolicyStore {
	return &PolicyStore{db: db}
}

// Get returns the policy for a ZIP code
func (s *PolicyStore) Get(zip string) (*core.Policy, error) {
	policy := &core.Policy{}
	var rules string
	var city, state, country sql.NullString

	err := s.db.conn.QueryRow(`
		SELECT zip, rules_json, city, state, country, updated_at
		FROM policies WHERE zip = ?
	`, zip).Scan(&policy.Zip, &rules, &city, &state, &country, &policy.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, core.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}

	policy.City = city.String
	policy.State = state.String
	policy.Country = country.String
	json.Unmarshal([]byte(rules), &policy.Rules)

	return policy, nil
}

// Upsert writes a policy row keyed by ZIP
func (s *PolicyStore) Upsert(policy *core.Policy) error {
	rules, _ := json.Marshal(policy.Rules)
	_, err := s.db.conn.Exec(`
		INSERT INTO policies (zip, rules_json, city, state, country, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(zip) DO UPDATE SET
		    rules_json = excluded.rules_json,
		    city = excluded.city,
		    state = excluded.state,
		    country = excluded.country,
		    updated_at = excluded.updated_at
	`, policy.Zip, string(rules), nullString(policy.City), nullString(policy.State),
		nullString(policy.Country), time.Now().UTC())
	return err
}

// seedPolicies is the fixed startup seed set.
var seedPolicies = []core.Policy{
	{
		Zip: "10001",
		Rules: core.PolicyRules{
			Recycling: []string{"plastic #1-2", "paper", "cardboard", "glass", "metal"},
			Compost:   []string{"food scraps", "yard waste", "soiled paper"},
			Trash:     []string{"styrofoam", "plastic bags", "electronics", "hazardous waste"},
		},
		City: "New York", State: "NY", Country: "US",
	},
	{
		Zip: "94103",
		Rules: core.PolicyRules{
			Recycling: []string{"glass", "paper", "metal", "plastic #1-7"},
			Compost:   []string{"food", "soiled paper", "yard waste"},
			Trash:     []string{"film plastic", "styrofoam", "electronics"},
		},
		City: "San Francisco", State: "CA", Country: "US",
	},
	{
		Zip: "90210",
		Rules: core.PolicyRules{
			Recycling: []string{"paper", "cardboard", "glass", "metal", "plastic #1-2"},
			Compost:   []string{"food waste", "yard trimmings"},
			Trash:     []string{"plastic bags", "styrofoam", "electronics"},
		},
		City: "Beverly Hills", State: "CA", Country: "US",
	},
}

// EnsureSeeds inserts the fixed policy set for ZIPs that don't have a row
// yet. Idempotent; existing rows are never overwritten.
func (s *PolicyStore) EnsureSeeds() error {
	seeded := 0
	for i := range seedPolicies {
		policy := seedPolicies[i]
		_, err := s.Get(policy.Zip)
		if err == nil {
			continue
		}
		if err != core.ErrPolicyNotFound {
			return err
		}
		if err := s.Upsert(&policy); err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		logging.Info("Seeded %d policies", seeded)
	} else {
		logging.Info("Policies already seeded")
	}
	return nil
}
