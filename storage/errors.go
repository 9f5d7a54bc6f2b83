package storage

import "github.com/pkg/errors"

// ErrNotFound is returned when attempting to get or delete an item that does
// not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether the cause of err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
