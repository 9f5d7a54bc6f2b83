package kvbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/storage"
	bolt "go.etcd.io/bbolt"
)

// Bolt stores key-value pairs in bolt db.
//
// Keys are split on the last slash: everything before it is the bucket and
// everything after it the key within the bucket.
type Bolt struct {
	db *bolt.DB
}

// DefaultFile returns the default database location, ~/.stackgraph/state.db.
func DefaultFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get home dir")
	}
	return filepath.Join(home, ".stackgraph", "state.db"), nil
}

// NewBolt opens the database at the default location.
func NewBolt() (*Bolt, error) {
	file, err := DefaultFile()
	if err != nil {
		return nil, err
	}
	return NewBoltWithFile(file)
}

// NewBoltWithFile creates and opens a database at the given path. If the file
// or directory do not exist, they are created.
func NewBoltWithFile(file string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, errors.Wrapf(err, "ensure dir exists: %s", filepath.Dir(file))
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt db")
	}
	return &Bolt{db: db}, nil
}

// Close closes the database and releases the file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// keyFunc runs inside a bolt transaction for a single split key.
type keyFunc func(tx *bolt.Tx, bucket, key []byte) error

// withKey splits key and runs fn in a read or write transaction.
func (b *Bolt) withKey(ctx context.Context, op, key string, write bool, fn keyFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucket, k, err := boltBucketKey(key)
	if err != nil {
		return errors.Wrap(err, op)
	}
	run := b.db.View
	if write {
		run = b.db.Update
	}
	return run(func(tx *bolt.Tx) error { return fn(tx, bucket, k) })
}

// Put creates or updates a value.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	return b.withKey(ctx, "put", key, true, func(tx *bolt.Tx, bucket, k []byte) error {
		bk, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return errors.Wrapf(err, "create bucket %s", bucket)
		}
		return bk.Put(k, value)
	})
}

// Get returns a single value.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.withKey(ctx, "get", key, false, func(tx *bolt.Tx, bucket, k []byte) error {
		v := lookup(tx, bucket, k)
		if v == nil {
			return errors.Wrap(storage.ErrNotFound, key)
		}
		// Only valid while the transaction is open.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes a key.
func (b *Bolt) Delete(ctx context.Context, key string) error {
	return b.withKey(ctx, "delete", key, true, func(tx *bolt.Tx, bucket, k []byte) error {
		if lookup(tx, bucket, k) == nil {
			return errors.Wrap(storage.ErrNotFound, key)
		}
		return errors.Wrapf(tx.Bucket(bucket).Delete(k), "delete %s", key)
	})
}

func lookup(tx *bolt.Tx, bucket, key []byte) []byte {
	bk := tx.Bucket(bucket)
	if bk == nil {
		return nil
	}
	return bk.Get(key)
}

// Scan returns the values in the bucket named by prefix. The prefix must not
// end with a slash.
func (b *Bolt) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasSuffix(prefix, "/") {
		return nil, errors.New("prefix should not contain trailing /")
	}
	ret := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(prefix))
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, v []byte) error {
			if v == nil {
				// Nested bucket.
				return nil
			}
			ret[prefix+"/"+string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	return ret, err
}

// boltBucketKey splits a key at its last slash, so documents/demo/1 is stored
// as key 1 in bucket documents/demo.
func boltBucketKey(input string) (bucket, key []byte, err error) {
	if strings.HasPrefix(input, "/") {
		return nil, nil, errors.Errorf("key %q starts with a slash", input)
	}
	if strings.HasSuffix(input, "/") {
		return nil, nil, errors.Errorf("key %q ends with a slash", input)
	}
	slash := strings.LastIndex(input, "/")
	if slash == -1 {
		return nil, nil, errors.Errorf("key %q does not contain a slash", input)
	}
	return []byte(input[:slash]), []byte(input[slash+1:]), nil
}
