package services

import (
	"github.com/huangang/peerreview/internal/config"
	"gorm.io/gorm"
)

// ReviewContext is built once at startup and handed to every service. It
// carries the identity bindings, id maps and working drafts; nothing about a
// review run lives in package state.
type ReviewContext struct {
	Config   *config.ReviewConfig
	IDs      *IDMaps
	Identity *IdentityResolver
	Work     *WorkingState
}

func NewReviewContext(db *gorm.DB, review *config.ReviewConfig, ids *IDMaps, drafts DraftStore) *ReviewContext {
	return &ReviewContext{
		Config:   review,
		IDs:      ids,
		Identity: NewIdentityResolver(db, ids),
		Work:     NewWorkingState(db, ids, drafts),
	}
}
