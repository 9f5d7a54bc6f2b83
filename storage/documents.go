package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/stackgraph/stackgraph/synth"
)

// The KVBackend is used for persisting key-value data.
//
// Keys contain at least one slash. Scan returns the keys directly below a
// prefix: scanning "a/b" returns "a/b/c" but not "a/b/c/d".
type KVBackend interface {
	// Put creates or updates a key.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the given key. Returns ErrNotFound if the given key does not
	// exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a key. Returns ErrNotFound if the given key does not exist.
	Delete(ctx context.Context, key string) error

	// Scan returns a key-value map of all keys matching the given prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

const documentsPrefix = "documents"

// Documents stores the history of synthesized documents.
type Documents struct {
	Backend KVBackend

	// Now returns the time recorded in new ids. Defaults to time.Now.
	Now func() time.Time
}

// An Entry is a stored document.
type Entry struct {
	ID       string
	Stack    string
	Created  time.Time
	Document *synth.Document
}

func (d *Documents) key(stack, id string) string {
	return strings.Join([]string{documentsPrefix, stack, id}, "/")
}

// Put stores a document and returns its id. The document digest is verified
// before storing, an empty digest is computed.
func (d *Documents) Put(ctx context.Context, doc *synth.Document) (string, error) {
	if doc.Stack == "" {
		return "", errors.New("document has no stack name")
	}
	if strings.Contains(doc.Stack, "/") {
		return "", errors.Errorf("stack name %q contains a slash", doc.Stack)
	}
	if doc.Digest == "" {
		sum, err := doc.ComputeDigest()
		if err != nil {
			return "", errors.Wrap(err, "compute digest")
		}
		doc.Digest = sum
	} else if err := doc.Verify(); err != nil {
		return "", err
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	id, err := ksuid.NewRandomWithTime(now())
	if err != nil {
		return "", errors.Wrap(err, "generate id")
	}

	var buf bytes.Buffer
	if err := doc.EncodeJSON(&buf); err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	if err := d.Backend.Put(ctx, d.key(doc.Stack, id.String()), buf.Bytes()); err != nil {
		return "", errors.Wrap(err, "store")
	}
	return id.String(), nil
}

// Get returns a stored document. Returns ErrNotFound if it does not exist.
func (d *Documents) Get(ctx context.Context, stack, id string) (*Entry, error) {
	kid, err := ksuid.Parse(id)
	if err != nil {
		return nil, errors.Wrapf(err, "parse id %q", id)
	}
	data, err := d.Backend.Get(ctx, d.key(stack, id))
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", stack, id)
	}
	doc, err := synth.DecodeBytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", stack, id)
	}
	return &Entry{ID: id, Stack: stack, Created: kid.Time(), Document: doc}, nil
}

// Latest returns the most recently stored document of a stack. Returns
// ErrNotFound if the stack has no documents.
func (d *Documents) Latest(ctx context.Context, stack string) (*Entry, error) {
	list, err := d.List(ctx, stack)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "stack %s", stack)
	}
	return list[len(list)-1], nil
}

// Delete deletes a stored document.
func (d *Documents) Delete(ctx context.Context, stack, id string) error {
	if err := d.Backend.Delete(ctx, d.key(stack, id)); err != nil {
		return errors.Wrapf(err, "delete %s/%s", stack, id)
	}
	return nil
}

// List returns the documents of a stack, oldest first.
func (d *Documents) List(ctx context.Context, stack string) ([]*Entry, error) {
	prefix := documentsPrefix + "/" + stack
	values, err := d.Backend.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	ret := make([]*Entry, 0, len(values))
	for k, v := range values {
		id := strings.TrimPrefix(k, prefix+"/")
		kid, err := ksuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "parse key %q", k)
		}
		doc, err := synth.DecodeBytes(v)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", k)
		}
		ret = append(ret, &Entry{ID: id, Stack: stack, Created: kid.Time(), Document: doc})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}
