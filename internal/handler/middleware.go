package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contactlearncert-blip/prospection/pkg/auth"
)

// SecurityHeaders sets the response headers every API reply carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const rateWindow = time.Minute

// RateLimiter caps requests per client over a sliding one-minute window. A
// client is the signed-in user when the request carries one, otherwise the
// IP address.
type RateLimiter struct {
	maxPerMinute      int
	trustedProxyCount int
	now               func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// NewRateLimiter creates a limiter and prunes idle clients until ctx is done.
// One trusted reverse proxy is assumed in front of the server.
func NewRateLimiter(ctx context.Context, maxPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		maxPerMinute:      maxPerMinute,
		trustedProxyCount: 1,
		now:               time.Now,
		clients:           make(map[string][]time.Time),
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	start := rl.now().Add(-rateWindow)
	for key, hits := range rl.clients {
		if hits = inWindow(hits, start); len(hits) == 0 {
			delete(rl.clients, key)
		} else {
			rl.clients[key] = hits
		}
	}
}

// inWindow drops timestamps at or before start, reusing the backing array.
func inWindow(hits []time.Time, start time.Time) []time.Time {
	kept := hits[:0]
	for _, ts := range hits {
		if ts.After(start) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// allow records a hit for key and reports whether it fits the budget. When it
// does not, it also returns how long until the oldest hit leaves the window.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	hits := inWindow(rl.clients[key], now.Add(-rateWindow))
	if len(hits) >= rl.maxPerMinute {
		rl.clients[key] = hits
		return false, hits[0].Add(rateWindow).Sub(now)
	}
	rl.clients[key] = append(hits, now)
	return true, 0
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientKey(r)
		ok, retryAfter := rl.allow(key)
		if !ok {
			slog.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(int(d.Seconds())+1, 1))
}

func (rl *RateLimiter) clientKey(r *http.Request) string {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + rl.clientIP(r)
}

// clientIP reads X-Forwarded-For at the position our own proxy writes, so a
// client cannot spoof it by prepending entries.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		if idx := len(parts) - rl.trustedProxyCount; idx >= 0 {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
