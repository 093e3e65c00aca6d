package api

// Version is reported in the OpenAPI document and the health response.
const Version = "1.0.0"

// Cache-Control header values.
const (
	// CacheNoStore forces revalidation; the archive changes on every
	// sync run.
	CacheNoStore = "no-cache"
)

// Public API rate limit per client IP.
const (
	rateLimitPerMinute = 300
	rateLimitBurst     = 50
)
