package bgg

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Test helpers for unit testing against mock HTTP servers. The returned
// client talks to the given host with no rate limiting; tests that care
// about backoff replace the sleep and jitter seams.

// newClientWithHost creates a client pointed at a custom base URL.
func newClientWithHost(logger *slog.Logger, baseURL string, opts ...Option) *Client {
	c := New(logger, opts...)
	c.baseURL = baseURL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.http = &http.Client{Timeout: 5 * time.Second}
	return c
}
