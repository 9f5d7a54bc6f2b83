package kvbackend

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/storage"
)

// Memory stores key-value pairs in memory. The zero value is ready to use.
//
// Data is lost when the process exits; Memory is meant for tests and dry runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Put creates or updates a value.
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if _, _, err := boltBucketKey(key); err != nil {
		return errors.Wrap(err, "put")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Get returns a single value.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.Wrap(storage.ErrNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

// Delete deletes a key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return errors.Wrap(storage.ErrNotFound, key)
	}
	delete(m.data, key)
	return nil
}

// Scan returns the values directly below prefix, matching Bolt.
func (m *Memory) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	if strings.HasSuffix(prefix, "/") {
		return nil, errors.New("prefix should not contain trailing /")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range m.data {
		rest := strings.TrimPrefix(k, prefix+"/")
		if rest == k || strings.Contains(rest, "/") {
			continue
		}
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}
