package services

import (
	"fmt"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/models"
)

// AssignmentGraph holds who must review whom, by username.
//
// Everyone reviews the whole roster, self included, except override
// reviewers. An override reviewer rates only the ratees listed for them and
// is left out of everyone else's default list. They still appear in a
// restricted list that names them explicitly.
type AssignmentGraph struct {
	ratees map[string][]string
}

func NewAssignmentGraph(review *config.ReviewConfig) *AssignmentGraph {
	defaults := make([]string, 0, len(review.Roster))
	for _, entry := range review.Roster {
		if _, restricted := review.Overrides[entry.Username]; restricted {
			continue
		}
		defaults = append(defaults, entry.Username)
	}

	g := &AssignmentGraph{ratees: make(map[string][]string, len(review.Roster))}
	for _, entry := range review.Roster {
		if listed, restricted := review.Overrides[entry.Username]; restricted {
			g.ratees[entry.Username] = uniqueInOrder(listed)
			continue
		}
		g.ratees[entry.Username] = defaults
	}
	return g
}

// uniqueInOrder drops repeated usernames, keeping the first occurrence.
func uniqueInOrder(usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Ratees returns the usernames the reviewer must rate, in display order.
func (g *AssignmentGraph) Ratees(username string) []string {
	return g.ratees[username]
}

type UserRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type MetricRef struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// IDMaps are the id lookups derived from the store after initialization.
// They are built once and only read afterwards.
type IDMaps struct {
	Users   []UserRef
	Metrics []MetricRef

	userByUsername map[string]UserRef
	userByID       map[uint]UserRef
	metricByKey    map[string]MetricRef
	rateeSets      map[uint][]uint
	assigned       map[uint]map[uint]bool
}

// BuildIDMaps joins the configured roster and metrics with their stored rows.
// A configured user or metric without a row means the store does not match
// the configuration.
func BuildIDMaps(review *config.ReviewConfig, users []models.User, metrics []models.Metric) (*IDMaps, error) {
	storedUsers := make(map[string]models.User, len(users))
	for _, u := range users {
		storedUsers[u.Username] = u
	}
	storedMetrics := make(map[string]models.Metric, len(metrics))
	for _, m := range metrics {
		storedMetrics[m.Name] = m
	}

	ids := &IDMaps{
		Users:          make([]UserRef, 0, len(review.Roster)),
		Metrics:        make([]MetricRef, 0, len(review.Metrics)),
		userByUsername: make(map[string]UserRef, len(review.Roster)),
		userByID:       make(map[uint]UserRef, len(review.Roster)),
		metricByKey:    make(map[string]MetricRef, len(review.Metrics)),
		rateeSets:      make(map[uint][]uint, len(review.Roster)),
		assigned:       make(map[uint]map[uint]bool, len(review.Roster)),
	}

	for _, entry := range review.Roster {
		u, ok := storedUsers[entry.Username]
		if !ok {
			return nil, storeError("build id maps", fmt.Errorf("configured user %q is not in the store", entry.Username))
		}
		ref := UserRef{ID: u.ID, Username: u.Username, Name: u.Name}
		ids.Users = append(ids.Users, ref)
		ids.userByUsername[ref.Username] = ref
		ids.userByID[ref.ID] = ref
	}

	for _, entry := range review.Metrics {
		m, ok := storedMetrics[entry.Name]
		if !ok {
			return nil, storeError("build id maps", fmt.Errorf("configured metric %q is not in the store", entry.Name))
		}
		ref := MetricRef{ID: m.ID, Name: m.Name, Key: config.MetricKey(m.Name), Description: m.Description}
		ids.Metrics = append(ids.Metrics, ref)
		ids.metricByKey[ref.Key] = ref
	}

	graph := NewAssignmentGraph(review)
	for _, reviewer := range ids.Users {
		usernames := graph.Ratees(reviewer.Username)
		set := make([]uint, 0, len(usernames))
		lookup := make(map[uint]bool, len(usernames))
		for _, username := range usernames {
			id := ids.userByUsername[username].ID
			set = append(set, id)
			lookup[id] = true
		}
		ids.rateeSets[reviewer.ID] = set
		ids.assigned[reviewer.ID] = lookup
	}

	return ids, nil
}

func (m *IDMaps) UserByUsername(username string) (UserRef, bool) {
	u, ok := m.userByUsername[username]
	return u, ok
}

func (m *IDMaps) User(id uint) (UserRef, bool) {
	u, ok := m.userByID[id]
	return u, ok
}

func (m *IDMaps) MetricByKey(key string) (MetricRef, bool) {
	metric, ok := m.metricByKey[key]
	return metric, ok
}

// RateeSet returns the ids the reviewer must rate, in display order.
func (m *IDMaps) RateeSet(reviewerID uint) []uint {
	return m.rateeSets[reviewerID]
}

func (m *IDMaps) IsAssigned(reviewerID, rateeID uint) bool {
	return m.assigned[reviewerID][rateeID]
}

// ExpectedRatings is the row count that completes a reviewer:
// ratee-set size times metric count.
func (m *IDMaps) ExpectedRatings(reviewerID uint) int {
	return len(m.rateeSets[reviewerID]) * len(m.Metrics)
}
