package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute int) *Limiter {
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	return rl
}

func TestLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other clients are independent")

	metrics := rl.GetMetrics()
	assert.Equal(t, int64(1), metrics.Rejected)
	assert.Equal(t, int64(2), metrics.ClientCount)
}

func TestLimiter_WindowResets(t *testing.T) {
	rl := newTestLimiter(t, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("ip"))
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := newTestLimiter(t, 10)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("new")
	rl.cleanupStaleEntries()

	assert.Equal(t, int64(1), rl.GetMetrics().ClientCount)
}

func TestLimiter_MiddlewareOnlyLimitsWrites(t *testing.T) {
	rl := newTestLimiter(t, 1)
	handler := rl.Middleware(
		func(*http.Request) string { return "ip" },
		nil,
		http.MethodPost, http.MethodDelete,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/movements", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost))
	assert.Equal(t, http.StatusOK, do(http.MethodGet))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodDelete))
}

func TestLimiter_CustomOnLimit(t *testing.T) {
	rl := newTestLimiter(t, 1)
	handler := rl.Middleware(
		func(*http.Request) string { return "ip" },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
