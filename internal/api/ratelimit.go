// Rate limiter for the admin control plane.
// In-memory token bucket per client address.
package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter gives each client a bucket of burst tokens that refills
// continuously at burst per window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	refill  float64 // tokens per second
	window  time.Duration
	now     func() time.Time
	trusted map[string]bool // Proxy addresses whose X-Forwarded-For is believed

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows burst requests at once and burst per window
// sustained. Call Close to stop the background cleanup.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   float64(max(burst, 0)),
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if window > 0 {
		rl.refill = rl.burst / window.Seconds()
	}
	go rl.sweep(max(window, time.Minute))
	return rl
}

// TrustProxies marks peer addresses allowed to name the client through
// X-Forwarded-For. Call before serving requests.
func (rl *RateLimiter) TrustProxies(ips ...string) {
	rl.trusted = make(map[string]bool, len(ips))
	for _, ip := range ips {
		rl.trusted[strings.TrimSpace(ip)] = true
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow takes a token from ip's bucket. It returns false when none is left.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.fill(ip)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter returns the whole seconds until ip has a token again.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || b.tokens >= 1 {
		return 0
	}
	if rl.refill <= 0 {
		return int(rl.window.Seconds())
	}
	return int(math.Ceil((1 - b.tokens) / rl.refill))
}

// fill tops up ip's bucket for the time since it was last seen.
func (rl *RateLimiter) fill(ip string) *bucket {
	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, seen: now}
		rl.buckets[ip] = b
		return b
	}
	elapsed := now.Sub(b.seen).Seconds()
	b.tokens = math.Min(rl.burst, b.tokens+elapsed*rl.refill)
	b.seen = now
	return b
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup forgets buckets idle long enough to have refilled completely.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	for ip, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// clientIP returns the remote address without its port. Behind a trusted
// proxy it is the nearest X-Forwarded-For hop that is not itself a trusted
// proxy; entries left of that are client-supplied and ignored.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !rl.trusted[host] {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !rl.trusted[hop] {
			return hop
		}
	}
	return host
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
