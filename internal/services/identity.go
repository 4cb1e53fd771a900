package services

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/pkg/logger"
	"gorm.io/gorm"
)

// SessionState describes a page load from an already bound browser.
type SessionState string

const (
	// SessionNew is the first page load seen for the reviewer.
	SessionNew SessionState = "new"
	// SessionUnchanged repeats a known session key: same view, nothing to do.
	SessionUnchanged SessionState = "unchanged"
	// SessionRefreshed is a new key from a known browser. Drafts should be
	// reloaded from the working state.
	SessionRefreshed SessionState = "refreshed"
	// SessionNewBrowser is a browser the reviewer has not loaded pages from
	// while other browsers of theirs have.
	SessionNewBrowser SessionState = "new_browser"
)

type Resolution struct {
	Bound    bool         `json:"bound"`
	Reviewer *UserRef     `json:"reviewer,omitempty"`
	Session  SessionState `json:"session,omitempty"`
}

type Binding struct {
	Reviewer  UserRef `json:"reviewer"`
	BrowserID string  `json:"-"`
	Resumed   bool    `json:"resumed"`
}

// IdentityResolver maps browser ids to the reviewer chosen on them. A browser
// binds to one reviewer; a reviewer is bound to a single browser through Bind
// but may own several after a resume.
type IdentityResolver struct {
	db  *gorm.DB
	ids *IDMaps

	mu       sync.Mutex
	browsers map[string]uint                        // browser id -> reviewer id
	sessions map[uint]map[string]map[string]struct{} // reviewer -> browser -> session keys
}

func NewIdentityResolver(db *gorm.DB, ids *IDMaps) *IdentityResolver {
	return &IdentityResolver{
		db:       db,
		ids:      ids,
		browsers: make(map[string]uint),
		sessions: make(map[uint]map[string]map[string]struct{}),
	}
}

// ValidBrowserID reports whether id looks like the UUID the identity cookie
// carries.
func ValidBrowserID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Hydrate reloads persisted bindings after a resume. Session keys start
// empty, so the first page load of each browser reports SessionRefreshed.
func (r *IdentityResolver) Hydrate() error {
	var auths []models.UserAuth
	if err := r.db.Find(&auths).Error; err != nil {
		return storeError("load user_auth", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, auth := range auths {
		if _, ok := r.ids.User(auth.UserID); !ok {
			logger.Warnf("[Identity] Skipping binding for unknown user id %d", auth.UserID)
			continue
		}
		r.browsers[auth.BrowserUUID] = auth.UserID
		if r.sessions[auth.UserID] == nil {
			r.sessions[auth.UserID] = make(map[string]map[string]struct{})
		}
		r.sessions[auth.UserID][auth.BrowserUUID] = make(map[string]struct{})
	}
	logger.Infof("[Identity] Restored %d browser bindings", len(auths))
	return nil
}

// Resolve returns the reviewer bound to the browser and classifies the page
// load by its session key, registering the key. An empty key skips session
// tracking.
func (r *IdentityResolver) Resolve(browserID, sessionKey string) (*Resolution, error) {
	return r.resolve(browserID, sessionKey, true)
}

// Peek classifies the page load like Resolve but leaves the key unregistered,
// so a later Resolve with the same key reports the same state.
func (r *IdentityResolver) Peek(browserID, sessionKey string) (*Resolution, error) {
	return r.resolve(browserID, sessionKey, false)
}

func (r *IdentityResolver) resolve(browserID, sessionKey string, register bool) (*Resolution, error) {
	if !ValidBrowserID(browserID) {
		return nil, ErrIdentityUnresolved
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reviewerID, ok := r.browsers[browserID]
	if !ok {
		return &Resolution{Bound: false}, nil
	}
	reviewer, ok := r.ids.User(reviewerID)
	if !ok {
		return &Resolution{Bound: false}, nil
	}

	res := &Resolution{Bound: true, Reviewer: &reviewer, Session: SessionUnchanged}
	if sessionKey == "" {
		return res, nil
	}

	browserKeys := r.sessions[reviewerID]
	switch {
	case len(browserKeys) == 0:
		res.Session = SessionNew
	case browserKeys[browserID] == nil:
		res.Session = SessionNewBrowser
	default:
		if _, seen := browserKeys[browserID][sessionKey]; !seen {
			res.Session = SessionRefreshed
		}
	}
	if !register || res.Session == SessionUnchanged {
		return res, nil
	}

	if browserKeys == nil {
		browserKeys = make(map[string]map[string]struct{})
		r.sessions[reviewerID] = browserKeys
	}
	if browserKeys[browserID] == nil {
		browserKeys[browserID] = make(map[string]struct{})
	}
	browserKeys[browserID][sessionKey] = struct{}{}
	if res.Session == SessionRefreshed {
		logger.Debug().Str("reviewer", reviewer.Username).Msg("page refreshed")
	}
	return res, nil
}

// Reviewer returns the reviewer bound to the browser, or ErrIdentityUnbound.
func (r *IdentityResolver) Reviewer(browserID string) (UserRef, error) {
	if !ValidBrowserID(browserID) {
		return UserRef{}, ErrIdentityUnresolved
	}

	r.mu.Lock()
	reviewerID, ok := r.browsers[browserID]
	r.mu.Unlock()
	if !ok {
		return UserRef{}, ErrIdentityUnbound
	}
	reviewer, ok := r.ids.User(reviewerID)
	if !ok {
		return UserRef{}, ErrIdentityUnbound
	}
	return reviewer, nil
}

// Bind records the one-time choice of reviewer for a browser. A browser that
// is already bound keeps its reviewer and the call reports a resume. A
// reviewer already bound to another browser is refused with
// ErrDuplicateIdentity and nothing changes.
func (r *IdentityResolver) Bind(browserID, username string) (*Binding, error) {
	if !ValidBrowserID(browserID) {
		return nil, ErrIdentityUnresolved
	}
	reviewer, ok := r.ids.UserByUsername(username)
	if !ok {
		return nil, ErrUnknownReviewer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, bound := r.browsers[browserID]; bound {
		existing, _ := r.ids.User(existingID)
		return &Binding{Reviewer: existing, BrowserID: browserID, Resumed: true}, nil
	}
	for _, id := range r.browsers {
		if id == reviewer.ID {
			return nil, ErrDuplicateIdentity
		}
	}

	auth := models.UserAuth{UserID: reviewer.ID, BrowserUUID: browserID}
	if err := r.db.Create(&auth).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateIdentity
		}
		return nil, storeError("insert user_auth", err)
	}

	r.browsers[browserID] = reviewer.ID
	logger.Infof("[Identity] Browser bound to reviewer %s", reviewer.Username)
	return &Binding{Reviewer: reviewer, BrowserID: browserID}, nil
}
