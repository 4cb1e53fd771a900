package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Drafts maps a ratee id to its raw, unconfirmed inputs keyed by metric key.
type Drafts map[uint]map[string]string

// DraftStore keeps the values a reviewer has typed but not confirmed.
type DraftStore interface {
	Put(ctx context.Context, reviewerID, rateeID uint, values map[string]string) error
	Get(ctx context.Context, reviewerID, rateeID uint) (map[string]string, error)
	All(ctx context.Context, reviewerID uint) (Drafts, error)
	Discard(ctx context.Context, reviewerID, rateeID uint) error
}

type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[uint]Drafts
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[uint]Drafts)}
}

func (s *MemoryDraftStore) Put(_ context.Context, reviewerID, rateeID uint, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drafts[reviewerID] == nil {
		s.drafts[reviewerID] = make(Drafts)
	}
	if s.drafts[reviewerID][rateeID] == nil {
		s.drafts[reviewerID][rateeID] = make(map[string]string, len(values))
	}
	for key, value := range values {
		s.drafts[reviewerID][rateeID][key] = value
	}
	return nil
}

func (s *MemoryDraftStore) Get(_ context.Context, reviewerID, rateeID uint) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.drafts[reviewerID][rateeID]))
	for key, value := range s.drafts[reviewerID][rateeID] {
		out[key] = value
	}
	return out, nil
}

func (s *MemoryDraftStore) All(_ context.Context, reviewerID uint) (Drafts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Drafts, len(s.drafts[reviewerID]))
	for rateeID, values := range s.drafts[reviewerID] {
		copied := make(map[string]string, len(values))
		for key, value := range values {
			copied[key] = value
		}
		out[rateeID] = copied
	}
	return out, nil
}

func (s *MemoryDraftStore) Discard(_ context.Context, reviewerID, rateeID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts[reviewerID], rateeID)
	return nil
}

// RedisDraftStore keeps one hash per reviewer so drafts outlive a restart.
// Fields are "<ratee id>:<metric key>".
type RedisDraftStore struct {
	client *redis.Client
	prefix string
}

func NewRedisDraftStore(client *redis.Client, prefix string) *RedisDraftStore {
	if prefix == "" {
		prefix = "peerreview:drafts:"
	}
	return &RedisDraftStore{client: client, prefix: prefix}
}

func (s *RedisDraftStore) key(reviewerID uint) string {
	return s.prefix + strconv.FormatUint(uint64(reviewerID), 10)
}

func draftField(rateeID uint, metricKey string) string {
	return fmt.Sprintf("%d:%s", rateeID, metricKey)
}

func parseDraftField(field string) (uint, string, bool) {
	idx := strings.IndexByte(field, ':')
	if idx <= 0 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(field[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return uint(id), field[idx+1:], true
}

func (s *RedisDraftStore) Put(ctx context.Context, reviewerID, rateeID uint, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for key, value := range values {
		fields[draftField(rateeID, key)] = value
	}
	if err := s.client.HSet(ctx, s.key(reviewerID), fields).Err(); err != nil {
		return storeError("save drafts", err)
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, reviewerID, rateeID uint) (map[string]string, error) {
	all, err := s.All(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if values, ok := all[rateeID]; ok {
		return values, nil
	}
	return map[string]string{}, nil
}

func (s *RedisDraftStore) All(ctx context.Context, reviewerID uint) (Drafts, error) {
	fields, err := s.client.HGetAll(ctx, s.key(reviewerID)).Result()
	if err != nil {
		return nil, storeError("load drafts", err)
	}

	out := make(Drafts)
	for field, value := range fields {
		rateeID, metricKey, ok := parseDraftField(field)
		if !ok {
			continue
		}
		if out[rateeID] == nil {
			out[rateeID] = make(map[string]string)
		}
		out[rateeID][metricKey] = value
	}
	return out, nil
}

func (s *RedisDraftStore) Discard(ctx context.Context, reviewerID, rateeID uint) error {
	key := s.key(reviewerID)
	fields, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		return storeError("discard drafts", err)
	}

	prefix := strconv.FormatUint(uint64(rateeID), 10) + ":"
	var stale []string
	for _, field := range fields {
		if strings.HasPrefix(field, prefix) {
			stale = append(stale, field)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, key, stale...).Err(); err != nil {
		return storeError("discard drafts", err)
	}
	return nil
}
