package state

import (
	"errors"
	"sync"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory Store with switchable failures.
type memStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	failGet  bool
	failSet  bool
	setCalls int
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("read failed")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key string, value []byte) error {
	return m.SetMany(map[string][]byte{key: value})
}

func (m *memStore) SetMany(values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.failSet {
		return errDiskFull
	}
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}
