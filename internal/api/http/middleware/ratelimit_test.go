package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		d := rl.Allow("k", 3, time.Minute)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}

	d := rl.Allow("k", 3, time.Minute)
	assert.False(t, d.Allowed)

	// A different key has its own window.
	assert.True(t, rl.Allow("other", 3, time.Minute).Allowed)
}

func TestMemoryRateLimiter_WindowReset(t *testing.T) {
	t.Parallel()

	rl := NewMemoryRateLimiter()
	defer rl.Close()

	assert.True(t, rl.Allow("k", 1, 10*time.Millisecond).Allowed)
	assert.False(t, rl.Allow("k", 1, 10*time.Millisecond).Allowed)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow("k", 1, 10*time.Millisecond).Allowed)
}

func TestMemoryRateLimiter_ZeroLimitDisables(t *testing.T) {
	t.Parallel()

	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("k", 0, time.Minute).Allowed)
	}
}

func TestRateLimit_Handle(t *testing.T) {
	t.Parallel()

	rl := NewMemoryRateLimiter()
	defer rl.Close()

	m := NewRateLimit(rl, 2, time.Minute, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.Handle(next)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// Another client is unaffected.
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKeyByIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4321"
	assert.Equal(t, "ip:192.0.2.7", KeyByIP(req))

	req.RemoteAddr = "bare-host"
	assert.Equal(t, "ip:bare-host", KeyByIP(req))
}
