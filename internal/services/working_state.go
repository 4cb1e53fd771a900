package services

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// WorkingState is the per-reviewer scratch state: the ratees already
// finalized and the drafts typed but not yet confirmed.
type WorkingState struct {
	db     *gorm.DB
	ids    *IDMaps
	drafts DraftStore

	mu        sync.Mutex
	finalized map[uint]map[uint]bool
}

func NewWorkingState(db *gorm.DB, ids *IDMaps, drafts DraftStore) *WorkingState {
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}
	return &WorkingState{
		db:        db,
		ids:       ids,
		drafts:    drafts,
		finalized: make(map[uint]map[uint]bool),
	}
}

func (w *WorkingState) Drafts() DraftStore {
	return w.drafts
}

// load fills the finalized set from the store the first time a reviewer is
// seen. Callers hold w.mu.
func (w *WorkingState) load(ctx context.Context, reviewerID uint) (map[uint]bool, error) {
	if set, ok := w.finalized[reviewerID]; ok {
		return set, nil
	}
	ratees, err := finalizedRatees(w.db.WithContext(ctx), w.ids, reviewerID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ratees))
	for _, id := range ratees {
		set[id] = true
	}
	w.finalized[reviewerID] = set
	return set, nil
}

// Finalized returns a copy of the reviewer's finalized ratee set.
func (w *WorkingState) Finalized(ctx context.Context, reviewerID uint) (map[uint]bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, err := w.load(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(set))
	for id := range set {
		out[id] = true
	}
	return out, nil
}

func (w *WorkingState) IsFinalized(ctx context.Context, reviewerID, rateeID uint) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, err := w.load(ctx, reviewerID)
	if err != nil {
		return false, err
	}
	return set[rateeID], nil
}

func (w *WorkingState) MarkFinalized(reviewerID, rateeID uint) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized[reviewerID] == nil {
		// Not loaded yet; the next load reads the committed rows.
		return
	}
	w.finalized[reviewerID][rateeID] = true
}
