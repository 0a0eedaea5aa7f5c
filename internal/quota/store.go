package quota

import (
	"context"
	"sync"

	"canaro-bot/internal/types"
)

// Key identifies a quota record.
type Key struct {
	ChatID int64
	UserID int64
}

// Store is the key-value backend of the tracker.
type Store interface {
	Get(ctx context.Context, key Key) (types.DailyQuota, bool, error)
	Set(ctx context.Context, q types.DailyQuota) error
}

// MemoryStore keeps records in process memory; they are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]types.DailyQuota
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]types.DailyQuota)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (types.DailyQuota, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.records[key]
	return q, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, q types.DailyQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[Key{ChatID: q.ChatID, UserID: q.UserID}] = q
	return nil
}
