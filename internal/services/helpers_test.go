package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/models"
	"gorm.io/gorm"
)

const (
	browserA = "3f2b8c1e-1d2a-4b7e-9a51-0c6a1f7e2d10"
	browserB = "8d0f7a42-5c3e-4e11-a7d2-9b4c3e6f1a22"
	browserC = "c1a9e6d4-7b28-4f3a-8e90-2d5b7c4a6e33"
)

// threePersonReview is a three-person roster rated on Quality and Speed.
func threePersonReview() *config.ReviewConfig {
	return &config.ReviewConfig{
		Roster: []config.RosterEntry{
			{Name: "Alice Adams", Username: "alice"},
			{Name: "Bob Brown", Username: "bob"},
			{Name: "Carol Clark", Username: "carol"},
		},
		Metrics: []config.MetricEntry{
			{Name: "Quality", Description: "How good the work is"},
			{Name: "Speed"},
		},
	}
}

// overrideReview adds dave, who only rates alice.
func overrideReview() *config.ReviewConfig {
	r := threePersonReview()
	r.Roster = append(r.Roster, config.RosterEntry{Name: "Dave Dunn", Username: "dave"})
	r.Overrides = map[string][]string{"dave": {"alice"}}
	return r
}

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), name),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return db
}

type fixture struct {
	db     *gorm.DB
	rc     *ReviewContext
	hub    *SSEHub
	submit *SubmissionService
}

func newFixture(t *testing.T, review *config.ReviewConfig) *fixture {
	t.Helper()
	db := openDB(t, "review.db")
	ids, _, err := NewInitializer(db, review).Initialize("")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	rc := NewReviewContext(db, review, ids, NewMemoryDraftStore())
	hub := NewSSEHub()
	return &fixture{
		db:     db,
		rc:     rc,
		hub:    hub,
		submit: NewSubmissionService(db, rc, hub),
	}
}

func (f *fixture) user(t *testing.T, username string) UserRef {
	t.Helper()
	u, ok := f.rc.IDs.UserByUsername(username)
	if !ok {
		t.Fatalf("user %q not in id maps", username)
	}
	return u
}

func (f *fixture) confirm(t *testing.T, reviewer, ratee string, inputs map[string]string) {
	t.Helper()
	_, err := f.submit.Confirm(context.Background(), f.user(t, reviewer).ID, f.user(t, ratee).ID, inputs)
	if err != nil {
		t.Fatalf("Confirm(%s -> %s) error = %v", reviewer, ratee, err)
	}
}

func (f *fixture) ratingCount(t *testing.T, reviewer, ratee string) int64 {
	t.Helper()
	var count int64
	err := f.db.Model(&models.Rating{}).
		Where("user_id = ? AND ratee_id = ?", f.user(t, reviewer).ID, f.user(t, ratee).ID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count ratings: %v", err)
	}
	return count
}
