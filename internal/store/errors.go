package store

import "errors"

// ErrNotFound is returned when a requested game id is not in the
// snapshot.
var ErrNotFound = errors.New("store: not found")
