package store

import (
	"sync"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// MemoryStore keeps the two keys in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string, 2)}
}

func (m *MemoryStore) Save(s domain.Session) error {
	token, user, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[TokenKey] = token
	m.values[UserKey] = user
	return nil
}

func (m *MemoryStore) Load() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.values[TokenKey], m.values[UserKey])
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, TokenKey)
	delete(m.values, UserKey)
	return nil
}

// SetRaw writes a single key verbatim, bypassing validation.
func (m *MemoryStore) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Raw returns the stored value for key.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}
