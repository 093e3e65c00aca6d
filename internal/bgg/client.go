package bgg

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.boardgamegeek.com/xmlapi2"
	userAgent      = "GameShelf/1.0"

	// HTTP client settings
	defaultTimeout = 30 * time.Second
)

// Retry policies per outcome bucket. The catalog queues collection
// generation per user, so pending responses get a long leash while rate
// limiting backs off much harder.
var (
	transientPolicy = &retryPolicy{"transient failure", 10, time.Second, ErrUpstreamUnavailable}
	rateLimitPolicy = &retryPolicy{"rate limited", 3, 30 * time.Second, ErrUpstreamUnavailable}
	pendingPolicy   = &retryPolicy{"generation pending", 10, 10 * time.Second, ErrUpstreamTimeout}
)

type retryPolicy struct {
	name      string
	attempts  int           // retries allowed after the first attempt
	base      time.Duration // backoff base
	exhausted error         // sentinel reported when attempts run out
}

// delay computes the backoff before retry n (0-based): base * 2^n,
// scaled by the jitter factor.
func (p *retryPolicy) delay(attempt int, jitter float64) time.Duration {
	return time.Duration(float64(p.base) * math.Pow(2, float64(attempt)) * jitter)
}

// Cache stores raw response bodies between runs. Implementations own
// expiry; only successfully parsed schema documents are ever stored.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, body []byte) error
}

// Client is a rate-limited catalog API client with bucket-specific retry.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	cache   Cache
	baseURL string

	// Test seams; real runs sleep and draw random jitter.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Option configures a Client.
type Option func(*Client)

// WithCache attaches a response cache consulted before the network and
// filled after successful requests.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// New creates a catalog client. The limiter keeps a polite cadence of one
// request every two seconds; the retry policies handle the catalog's own
// throttling on top of that.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:  logger,
		baseURL: defaultBaseURL,
		sleep:   sleepContext,
		jitter:  func() float64 { return 0.5 + rand.Float64() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases resources. Currently a no-op but included for interface
// consistency.
func (c *Client) Close() {
	// No persistent resources to close
}

// get performs one logical request with retry. Each attempt is classified
// into a bucket: success, transient failure, rate limited, generation
// pending, or rejected. The retryable buckets share one attempt counter
// and back off exponentially with jitter before the next try.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(fullURL); ok {
			c.logger.Debug("bgg cache hit", "url", fullURL)
			return body, nil
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, policy, err := c.attempt(ctx, fullURL)
		if err == nil {
			if c.cache != nil {
				if cerr := c.cache.Set(fullURL, body); cerr != nil {
					c.logger.Warn("bgg cache write failed", "url", fullURL, "error", cerr)
				}
			}
			return body, nil
		}
		if policy == nil {
			return nil, err
		}
		if attempt >= policy.attempts {
			return nil, fmt.Errorf("%w after %d attempts: %v", policy.exhausted, attempt+1, err)
		}

		delay := policy.delay(attempt, c.jitter())
		c.logger.Debug("bgg retrying",
			"url", fullURL,
			"reason", policy.name,
			"attempt", attempt+1,
			"delay", delay,
		)
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// attempt executes a single request. A nil policy with a non-nil error
// means the failure is terminal.
func (c *Client) attempt(ctx context.Context, fullURL string) ([]byte, *retryPolicy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("bgg request", "url", fullURL)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, transientPolicy, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		// Truncated or prematurely closed body
		return nil, transientPolicy, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, rateLimitPolicy, errors.New("status 429: too many requests")
	case resp.StatusCode >= 400:
		return nil, transientPolicy, fmt.Errorf("status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	switch root := documentRoot(body); root {
	case "message":
		// The catalog accepted the collection request and is still
		// generating it.
		return nil, pendingPolicy, errors.New("collection generation pending")
	case "errors":
		msgs := errorMessages(body)
		if len(msgs) == 0 {
			return nil, nil, ErrUpstreamRejected
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, strings.Join(msgs, "; "))
	}

	return body, nil, nil
}

// documentRoot returns the local name of the document's root element.
func documentRoot(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local
		}
	}
}

// errorMessages pulls the message texts out of a catalog error document.
func errorMessages(body []byte) []string {
	var doc struct {
		Errors []struct {
			Message string `xml:"message"`
		} `xml:"error"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil
	}
	var msgs []string
	for _, e := range doc.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// sleepContext blocks for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
