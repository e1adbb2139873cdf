package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/statecraft/internal/engine"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiterWithClock(t *testing.T, burst int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(burst, window)
	rl.now = clock.now
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl, clock := limiterWithClock(t, 2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	// Two tokens per minute: one every 30s.
	assert.Equal(t, 30, rl.RetryAfter("10.0.0.1"))
	clock.advance(29 * time.Second)
	assert.False(t, rl.Allow("10.0.0.1"))
	clock.advance(2 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))

	clock.advance(10 * time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "refill is capped at the burst")
}

func TestRateLimiterZeroBurstDenies(t *testing.T) {
	rl, _ := limiterWithClock(t, 0, time.Minute)
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.Equal(t, 60, rl.RetryAfter("10.0.0.1"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clock := limiterWithClock(t, 1, time.Minute)
	rl.Allow("10.0.0.1")
	clock.advance(time.Minute)
	rl.Allow("10.0.0.2")

	clock.advance(90 * time.Second)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "10.0.0.1")
	assert.Contains(t, rl.buckets, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := limiterWithClock(t, 1, time.Minute)
	calls := 0
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) { calls++ })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, calls)
}

func TestClientIPIgnoresForwardedFromUntrustedPeer(t *testing.T) {
	rl, _ := limiterWithClock(t, 1, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", rl.clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.7", rl.clientIP(req))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	rl, _ := limiterWithClock(t, 1, time.Minute)
	rl.TrustProxies("127.0.0.1", "10.0.0.1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", rl.clientIP(req), "spoofed leftmost entry is skipped")

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "127.0.0.1", rl.clientIP(req))
}

func TestRateLimitMiddlewareIgnoresSpoofedForwarding(t *testing.T) {
	rl, _ := limiterWithClock(t, 1, time.Minute)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {})

	for i, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", nil)
		req.RemoteAddr = "192.0.2.7:51234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func snapshotAt(turn int) engine.TurnSnapshot {
	return engine.TurnSnapshot{Turn: turn}
}

func TestHubSkipsFullClients(t *testing.T) {
	h := NewHub()
	_, frames, ok := h.join()
	require.True(t, ok)

	for turn := range streamBuffer + 3 {
		h.Broadcast(snapshotAt(turn + 1))
	}
	assert.Len(t, frames, streamBuffer)

	// A late joiner starts from the newest frame.
	_, late, ok := h.join()
	require.True(t, ok)
	assert.Len(t, late, 1)
	assert.Equal(t, 2, h.Clients())
}

func TestHubLimitsClients(t *testing.T) {
	h := NewHub()
	for range maxStreamConns {
		_, _, ok := h.join()
		require.True(t, ok)
	}
	_, _, ok := h.join()
	assert.False(t, ok)

	h.leave(1)
	_, _, ok = h.join()
	assert.True(t, ok)
}
