package envmap

import (
	"fmt"

	"github.com/stackgraph/stackgraph/suggest"
)

// A Pair is a single key-value entry.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// A Map is a mutable, insertion-ordered string map.
//
// The zero value is an empty map ready to use.
type Map struct {
	keys []string
	vals map[string]string
}

// New creates a new empty map.
func New() *Map {
	return &Map{}
}

// Set sets a value. If the key already exists, the value is overwritten and
// the key keeps its position.
func (m *Map) Set(key, value string) {
	if m.vals == nil {
		m.vals = make(map[string]string)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Get returns the value for a key. A *NotFoundError is returned if the key
// has not been set.
func (m *Map) Get(key string) (string, error) {
	v, ok := m.vals[key]
	if !ok {
		return "", &NotFoundError{Key: key, Suggestion: suggest.String(key, m.keys)}
	}
	return v, nil
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys in the map.
func (m *Map) Len() int { return len(m.keys) }

// Snapshot returns an immutable copy of the map. Later writes to the map are
// not reflected in the snapshot.
func (m *Map) Snapshot() Snapshot {
	s := Snapshot{
		keys: m.Keys(),
		vals: make(map[string]string, len(m.vals)),
	}
	for k, v := range m.vals {
		s.vals[k] = v
	}
	return s
}

// A Snapshot is a read-only copy of a Map.
//
// The zero value is an empty snapshot.
type Snapshot struct {
	keys []string
	vals map[string]string
}

// SnapshotOf creates a snapshot from a list of pairs. If a key is repeated,
// the last value wins.
func SnapshotOf(pairs ...Pair) Snapshot {
	m := New()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m.Snapshot()
}

// Get returns the value for a key. A *NotFoundError is returned if the key
// does not exist.
func (s Snapshot) Get(key string) (string, error) {
	v, ok := s.vals[key]
	if !ok {
		return "", &NotFoundError{Key: key, Suggestion: suggest.String(key, s.keys)}
	}
	return v, nil
}

// Lookup returns the value for a key and whether it was set.
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s Snapshot) Len() int { return len(s.keys) }

// Pairs returns all entries in insertion order.
func (s Snapshot) Pairs() []Pair {
	out := make([]Pair, len(s.keys))
	for i, k := range s.keys {
		out[i] = Pair{Key: k, Value: s.vals[k]}
	}
	return out
}

// Map returns the entries as a Go map. The returned map is a copy.
func (s Snapshot) Map() map[string]string {
	out := make(map[string]string, len(s.vals))
	for k, v := range s.vals {
		out[k] = v
	}
	return out
}

// NotFoundError is returned when reading a key that was never written.
type NotFoundError struct {
	Key        string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config key %q not set%s", e.Key, suggest.Hint(e.Suggestion))
}
