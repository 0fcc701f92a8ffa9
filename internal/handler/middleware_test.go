package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contactlearncert-blip/prospection/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code, "inner handler status")
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"X-XSS-Protection":        "0",
		"Permissions-Policy":      "camera=(), microphone=(), geolocation=()",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for name, v := range want {
		assert.Equal(t, v, rec.Header().Get(name), name)
	}
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
}

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *fakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(ctx, limit)
	rl.now = clock.now
	return rl, clock
}

func hit(h http.Handler, configure func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/prospects/evaluate", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)
	h := rl.Middleware(okHandler)

	for i := range 3 {
		require.Equal(t, http.StatusOK, hit(h, nil).Code, "request %d", i+1)
	}
	rec := hit(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
	assert.Equal(t, "61", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler)

	require.Equal(t, http.StatusOK, hit(h, nil).Code)
	clock.t = clock.t.Add(30 * time.Second)
	rec := hit(h, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "31", rec.Header().Get("Retry-After"))

	clock.t = clock.t.Add(31 * time.Second)
	assert.Equal(t, http.StatusOK, hit(h, nil).Code)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler)

	require.Equal(t, http.StatusOK, hit(h, nil).Code)
	assert.Equal(t, http.StatusOK, hit(h, func(r *http.Request) { r.RemoteAddr = "10.0.0.2:1234" }).Code)
}

func TestRateLimiter_KeysSignedInUsers(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler)
	as := func(userID string) func(*http.Request) {
		return func(r *http.Request) {
			*r = *r.WithContext(auth.WithUserID(r.Context(), userID))
		}
	}

	require.Equal(t, http.StatusOK, hit(h, as("u-1")).Code)
	// Same IP, different user.
	assert.Equal(t, http.StatusOK, hit(h, as("u-2")).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, as("u-1")).Code)
}

func TestRateLimiter_IgnoresSpoofedForwardedFor(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler)
	forwarded := func(xff string) func(*http.Request) {
		return func(r *http.Request) {
			r.RemoteAddr = "10.0.0.99:1234"
			r.Header.Set("X-Forwarded-For", xff)
		}
	}

	require.Equal(t, http.StatusOK, hit(h, forwarded("203.0.113.50")).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, forwarded("9.9.9.9, 203.0.113.50")).Code)
}

func TestRateLimiter_Prune(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)
	h := rl.Middleware(okHandler)
	hit(h, nil)

	clock.t = clock.t.Add(2 * time.Minute)
	rl.prune()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.clients)
}

func TestRateLimiter_CleanupStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	NewRateLimiter(ctx, 1)
	cancel()
}
