package bgg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestClient returns a client against the test server with recorded
// sleeps and pinned jitter, so backoff is deterministic and instant.
func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *[]time.Duration, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := newClientWithHost(testLogger(), server.URL, opts...)
	sleeps := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	client.jitter = func() float64 { return 1.0 }

	return client, sleeps, server
}

type memCache struct {
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(key string) ([]byte, bool) {
	body, ok := m.data[key]
	return body, ok
}

func (m *memCache) Set(key string, body []byte) error {
	m.data[key] = body
	m.sets++
	return nil
}

func TestClient_Collection(t *testing.T) {
	fixture := loadFixture(t, "collection.xml")

	var gotQuery url.Values
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write(fixture)
	})

	client, _, _ := newTestClient(t, handler)
	defer client.Close()

	entries, err := client.Collection(context.Background(), "meeplequeen", url.Values{"own": {"1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery.Get("username") != "meeplequeen" || gotQuery.Get("version") != "1" || gotQuery.Get("own") != "1" {
		t.Errorf("unexpected query sent: %v", gotQuery)
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	first := entries[0]
	if first.ID != 68448 || first.CollectionID != 91514701 {
		t.Errorf("unexpected ids: %d/%d", first.ID, first.CollectionID)
	}
	if first.Name != "7 Wonders" {
		t.Errorf("unexpected name %q", first.Name)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "own" {
		t.Errorf("unexpected tags %v", first.Tags)
	}
	if first.NumPlays != 23 {
		t.Errorf("unexpected numplays %d", first.NumPlays)
	}
	if first.VersionName != "German edition" || first.VersionYear != 2011 {
		t.Errorf("unexpected version %q/%d", first.VersionName, first.VersionYear)
	}
	if first.VersionPublisherID != 512 {
		t.Errorf("unexpected version publisher %d", first.VersionPublisherID)
	}
	if !strings.Contains(first.ImageVersion, "87616") {
		t.Errorf("expected version thumbnail, got %q", first.ImageVersion)
	}
	want := time.Date(2025, 11, 2, 19, 3, 17, 0, time.UTC)
	if !first.LastModified.Equal(want) {
		t.Errorf("unexpected lastmodified %v", first.LastModified)
	}
	if first.Comment != "Bought at Essen." {
		t.Errorf("unexpected comment %q", first.Comment)
	}

	wishlisted := entries[2]
	if len(wishlisted.Tags) != 2 || wishlisted.Tags[0] != "wanttoplay" || wishlisted.Tags[1] != "wishlist" {
		t.Errorf("unexpected tags %v", wishlisted.Tags)
	}
	if wishlisted.WishlistComment != "Birthday idea." {
		t.Errorf("unexpected wishlist comment %q", wishlisted.WishlistComment)
	}
}

func TestClient_Collection_PendingThenSuccess(t *testing.T) {
	pending := loadFixture(t, "pending.xml")
	fixture := loadFixture(t, "collection.xml")

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 3 {
			w.Write(pending)
			return
		}
		w.Write(fixture)
	})

	client, sleeps, _ := newTestClient(t, handler)
	defer client.Close()

	entries, err := client.Collection(context.Background(), "meeplequeen", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
	if requests != 4 {
		t.Errorf("got %d requests, want 4", requests)
	}

	if len(*sleeps) != 3 {
		t.Fatalf("got %d sleeps, want 3", len(*sleeps))
	}
	wantSleeps := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}
	for i, want := range wantSleeps {
		if (*sleeps)[i] != want {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], want)
		}
	}
	for i := 1; i < len(*sleeps); i++ {
		if (*sleeps)[i] <= (*sleeps)[i-1] {
			t.Errorf("backoff not increasing: %v", *sleeps)
		}
	}
}

func TestClient_Collection_ErrorDocumentFailsFast(t *testing.T) {
	errorDoc := loadFixture(t, "errors.xml")

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(errorDoc)
	})

	client, sleeps, _ := newTestClient(t, handler)
	defer client.Close()

	_, err := client.Collection(context.Background(), "nobody", nil)
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid username specified") {
		t.Errorf("expected upstream message in error, got %v", err)
	}
	if requests != 1 {
		t.Errorf("got %d requests, want 1 (no retry)", requests)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no sleeps, got %v", *sleeps)
	}
}

func TestClient_RateLimitExhausted(t *testing.T) {
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client, sleeps, _ := newTestClient(t, handler)
	defer client.Close()

	_, err := client.Collection(context.Background(), "meeplequeen", nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if requests != 4 {
		t.Errorf("got %d requests, want 4 (1 + 3 retries)", requests)
	}
	wantSleeps := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}
	if len(*sleeps) != len(wantSleeps) {
		t.Fatalf("got %d sleeps, want %d", len(*sleeps), len(wantSleeps))
	}
	for i, want := range wantSleeps {
		if (*sleeps)[i] != want {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], want)
		}
	}
}

func TestClient_TransientErrorsRecover(t *testing.T) {
	fixture := loadFixture(t, "collection.xml")

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(fixture)
	})

	client, sleeps, _ := newTestClient(t, handler)
	defer client.Close()

	entries, err := client.Collection(context.Background(), "meeplequeen", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
	wantSleeps := []time.Duration{time.Second, 2 * time.Second}
	if len(*sleeps) != len(wantSleeps) {
		t.Fatalf("got %d sleeps, want %d", len(*sleeps), len(wantSleeps))
	}
	for i, want := range wantSleeps {
		if (*sleeps)[i] != want {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], want)
		}
	}
}

func TestClient_TransientExhausted(t *testing.T) {
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, sleeps, _ := newTestClient(t, handler)
	defer client.Close()

	_, err := client.Collection(context.Background(), "meeplequeen", nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if requests != 11 {
		t.Errorf("got %d requests, want 11 (1 + 10 retries)", requests)
	}
	if len(*sleeps) != 10 {
		t.Errorf("got %d sleeps, want 10", len(*sleeps))
	}
}

func TestClient_Things_Chunking(t *testing.T) {
	var idParams []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idParams = append(idParams, r.URL.Query().Get("id"))
		fmt.Fprint(w, `<items><item type="boardgame" id="1"><name type="primary" value="Stub"/></item></items>`)
	})

	client, _, _ := newTestClient(t, handler)
	defer client.Close()

	ids := make([]int64, 45)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	items, err := client.Things(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("got %d items, want 3 (one stub per chunk)", len(items))
	}

	if len(idParams) != 3 {
		t.Fatalf("got %d requests, want 3", len(idParams))
	}
	wantSizes := []int{20, 20, 5}
	for i, want := range wantSizes {
		if got := len(strings.Split(idParams[i], ",")); got != want {
			t.Errorf("chunk %d carried %d ids, want %d", i, got, want)
		}
	}
	if !strings.HasPrefix(idParams[0], "1,2,") || !strings.HasSuffix(idParams[2], ",45") {
		t.Errorf("ids not in order: %v", idParams)
	}
}

func TestClient_Things_Empty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty id list")
	})

	client, _, _ := newTestClient(t, handler)
	defer client.Close()

	items, err := client.Things(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items != nil {
		t.Errorf("expected nil result, got %v", items)
	}
}

func TestClient_Plays_Pagination(t *testing.T) {
	page1 := loadFixture(t, "plays.xml")
	empty := loadFixture(t, "plays_empty.xml")

	var pages []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			w.Write(page1)
			return
		}
		w.Write(empty)
	})

	client, _, _ := newTestClient(t, handler)
	defer client.Close()

	plays, err := client.Plays(context.Background(), "meeplequeen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pages) != 2 {
		t.Errorf("fetched pages %v, want exactly [1 2]", pages)
	}
	if len(plays) != 2 {
		t.Fatalf("got %d plays, want 2", len(plays))
	}
	if plays[0].PlayID != 41324318 || plays[0].GameID != 68448 {
		t.Errorf("unexpected play %+v", plays[0])
	}
	wantPlayers := []string{"Kim", "Anna", "Unknown"}
	if len(plays[0].Players) != len(wantPlayers) {
		t.Fatalf("got players %v, want %v", plays[0].Players, wantPlayers)
	}
	for i, want := range wantPlayers {
		if plays[0].Players[i] != want {
			t.Errorf("player %d = %q, want %q", i, plays[0].Players[i], want)
		}
	}
}

func TestClient_CacheRoundTrip(t *testing.T) {
	fixture := loadFixture(t, "collection.xml")

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(fixture)
	})

	cache := newMemCache()
	client, _, _ := newTestClient(t, handler, WithCache(cache))
	defer client.Close()

	for range 2 {
		entries, err := client.Collection(context.Background(), "meeplequeen", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 3 {
			t.Errorf("got %d entries, want 3", len(entries))
		}
	}

	if requests != 1 {
		t.Errorf("got %d upstream requests, want 1 (second served from cache)", requests)
	}
	if cache.sets != 1 {
		t.Errorf("got %d cache writes, want 1", cache.sets)
	}
}

func TestClient_CacheSkipsPendingBodies(t *testing.T) {
	pending := loadFixture(t, "pending.xml")
	fixture := loadFixture(t, "collection.xml")

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Write(pending)
			return
		}
		w.Write(fixture)
	})

	cache := newMemCache()
	client, _, _ := newTestClient(t, handler, WithCache(cache))
	defer client.Close()

	if _, err := client.Collection(context.Background(), "meeplequeen", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.sets != 1 {
		t.Fatalf("got %d cache writes, want 1", cache.sets)
	}
	for _, body := range cache.data {
		if strings.Contains(string(body), "has been accepted") {
			t.Error("pending document must not be cached")
		}
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	client, _, _ := newTestClient(t, handler)
	defer client.Close()
	client.sleep = sleepContext

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Collection(ctx, "meeplequeen", nil)
	if err == nil {
		t.Error("expected error due to context cancellation")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with URL",
			err: &Error{
				Op:  "collection",
				URL: "https://example.com/xmlapi2/collection",
				Err: ErrUpstreamTimeout,
			},
			want: "bgg collection [https://example.com/xmlapi2/collection]: bgg: collection not generated in time",
		},
		{
			name: "without URL",
			err: &Error{
				Op:  "plays",
				Err: ErrUpstreamUnavailable,
			},
			want: "bgg plays: bgg: upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := wrapError("things", "", ErrUpstreamUnavailable)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected errors.Is to work with Unwrap")
	}
}
