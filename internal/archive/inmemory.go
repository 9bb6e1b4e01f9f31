package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultInMemoryLimit bounds how many records the in-process store keeps.
const DefaultInMemoryLimit = 500

// InMemoryStore is a bounded ring of recent records for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	limit   int
	records []Record
}

func NewInMemoryStore(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = DefaultInMemoryLimit
	}
	return &InMemoryStore{limit: limit}
}

func (s *InMemoryStore) SaveExpired(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ExpiredAt.IsZero() {
		record.ExpiredAt = time.Now().UTC()
	}
	record.Participants = append([]string(nil), record.Participants...)
	s.records = append(s.records, record)
	if over := len(s.records) - s.limit; over > 0 {
		s.records = append([]Record(nil), s.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }
