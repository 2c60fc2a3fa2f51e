package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int) (*Limiter, *time.Time) {
	l := NewLimiter(Config{RequestsPerMinute: limit})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_WindowResets(t *testing.T) {
	l, now := newTestLimiter(2)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "limits are per key")
	assert.Equal(t, int64(1), l.Rejected())

	*now = now.Add(window)
	assert.True(t, l.Allow("a"))
}

func TestLimiter_RemoveStale(t *testing.T) {
	l, now := newTestLimiter(5)
	defer l.Stop()

	l.Allow("a")
	*now = now.Add(11 * time.Minute)
	l.Allow("b")
	l.removeStale()
	assert.Equal(t, 1, l.ActiveClients())
}

func TestMiddleware_OnlyMutating(t *testing.T) {
	l, _ := newTestLimiter(1)
	defer l.Stop()

	h := l.Middleware(func(*http.Request) string { return "1.2.3.4" }, MutatingOnly, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
