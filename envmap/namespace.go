package envmap

import (
	"bytes"
	"fmt"
	"strings"
)

// A Namespace is a sub-map owned by a single component. Every key written
// through the namespace is prefixed with the namespace prefix.
type Namespace struct {
	// Owner identifies the component that writes to the namespace. It is
	// reported in collisions.
	Owner string

	// Prefix is prepended to every key. It may be empty.
	Prefix string

	m Map
}

// NewNamespace creates a new namespace for an owner.
func NewNamespace(owner, prefix string) *Namespace {
	return &Namespace{Owner: owner, Prefix: prefix}
}

// Key returns the full key for a name in the namespace.
func (n *Namespace) Key(name string) string {
	return n.Prefix + name
}

// Set sets a value in the namespace. Writing the same name twice overwrites
// the previous value.
func (n *Namespace) Set(name, value string) {
	n.m.Set(n.Key(name), value)
}

// Get returns a value previously set in the namespace.
func (n *Namespace) Get(name string) (string, error) {
	return n.m.Get(n.Key(name))
}

// Keys returns the full keys written to the namespace, in insertion order.
func (n *Namespace) Keys() []string {
	return n.m.Keys()
}

// Merge combines namespaces into a single map. Keys keep the order in which
// they were written, with namespaces merged in argument order.
//
// If more than one namespace writes the same key, a *CollisionError listing
// every colliding key is returned and the map is nil.
func Merge(namespaces ...*Namespace) (*Map, error) {
	out := New()
	owners := make(map[string][]string)
	var collided []string

	for _, ns := range namespaces {
		for _, key := range ns.m.keys {
			prev, seen := owners[key]
			owners[key] = append(prev, ns.Owner)
			if seen {
				if len(prev) == 1 {
					collided = append(collided, key)
				}
				continue
			}
			out.Set(key, ns.m.vals[key])
		}
	}

	if len(collided) > 0 {
		err := &CollisionError{}
		for _, key := range collided {
			err.Collisions = append(err.Collisions, Collision{Key: key, Owners: owners[key]})
		}
		return nil, err
	}
	return out, nil
}

// A Collision is a key written by more than one namespace.
type Collision struct {
	Key    string
	Owners []string
}

// CollisionError is returned from Merge when namespaces overlap.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("config key collision: ")
	for i, c := range e.Collisions {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s written by %s", c.Key, strings.Join(c.Owners, " and "))
	}
	return buf.String()
}
