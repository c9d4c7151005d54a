package storage

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a backend failure on a write. Its message is the
// backend's message, unchanged.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// LikePattern builds a "%fragment%" pattern with LIKE wildcards in fragment
// escaped by a backslash.
func LikePattern(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(fragment) + "%"
}
