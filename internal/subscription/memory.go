// internal/subscription/memory.go
package subscription

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store keyed by uid. Users are seeded with
// AddUser; FindUserByEmail returns the earliest added match.
type MemoryStore struct {
	mu      sync.Mutex
	order   []string
	emails  map[string]string
	records map[string]Record
	writes  int

	// UpsertErr and FindErr, when set, are returned by the matching call.
	UpsertErr error
	FindErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		emails:  make(map[string]string),
		records: make(map[string]Record),
	}
}

func (m *MemoryStore) AddUser(uid, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[uid]; !ok {
		m.order = append(m.order, uid)
	}
	m.emails[uid] = email
}

func (m *MemoryStore) Upsert(_ context.Context, uid string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, m.UpsertErr)
	}
	m.writes++
	m.records[uid] = rec
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return "", false, m.FindErr
	}
	for _, uid := range m.order {
		if m.emails[uid] == email {
			return uid, true, nil
		}
	}
	return "", false, nil
}

// Get returns the stored record for uid.
func (m *MemoryStore) Get(uid string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[uid]
	return rec, ok
}

// Writes counts successful Upsert calls.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
