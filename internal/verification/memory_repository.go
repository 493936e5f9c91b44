package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
)

// MemoryRepository keeps records in process memory. Used by the dev server
// and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]Record{}}
}

func (m *MemoryRepository) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.JTI]; ok {
		return apperr.Persistence("insert verification", fmt.Errorf("duplicate jti %s", r.JTI))
	}
	m.records[r.JTI] = *r
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, jti string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[jti]
	if !ok {
		return nil, apperr.ErrTokenNotFound
	}
	return &rec, nil
}

func (m *MemoryRepository) Consume(_ context.Context, jti string, now time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[jti]
	if !ok {
		return nil, apperr.ErrTokenNotFound
	}
	if rec.Consumed() || rec.Expired(now) {
		return nil, classify(&rec, now)
	}
	at := now
	rec.ConsumedAt = &at
	m.records[jti] = rec
	return &rec, nil
}

func (m *MemoryRepository) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, rec := range m.records {
		if rec.PurgeAt.Before(before) {
			delete(m.records, jti)
			n++
		}
	}
	return n, nil
}
