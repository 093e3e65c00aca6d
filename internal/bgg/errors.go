package bgg

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog API operations.
var (
	// ErrUpstreamUnavailable means the catalog kept failing (connection
	// errors, 5xx, rate limiting) until the retry budget ran out.
	ErrUpstreamUnavailable = errors.New("bgg: upstream unavailable")

	// ErrUpstreamTimeout means the catalog kept answering "request
	// accepted, still generating" until the retry budget ran out.
	ErrUpstreamTimeout = errors.New("bgg: collection not generated in time")

	// ErrUpstreamRejected means the catalog answered with an explicit
	// error document. Never retried.
	ErrUpstreamRejected = errors.New("bgg: request rejected")

	// ErrMalformedRecord marks a single item that failed required-field
	// extraction. The item is dropped; the batch continues.
	ErrMalformedRecord = errors.New("bgg: malformed record")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "collection", "things", "plays"
	URL string // Request URL, if one was built
	Err error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("bgg %s [%s]: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("bgg %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, url string, err error) error {
	return &Error{
		Op:  op,
		URL: url,
		Err: err,
	}
}
