package http

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"creditos/internal/cache"
)

// submitGuard tracks form submission tokens. A token is in flight from Acquire until
// Release or Complete; completed tokens are remembered for a while so a replayed
// submit is rejected too.
type submitGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	done     *cache.LRUCache[struct{}]
	rejected atomic.Int64
}

func newSubmitGuard() *submitGuard {
	return &submitGuard{
		inflight: make(map[string]struct{}),
		done:     cache.NewLRUCache[struct{}](4096, 30*time.Minute),
	}
}

func newSubmitToken() string {
	return uuid.NewString()
}

// Acquire reports whether the submit may proceed. An empty token is not guarded.
func (g *submitGuard) Acquire(token string) bool {
	if token == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[token]; busy {
		g.rejected.Add(1)
		return false
	}
	if _, used := g.done.Get(token); used {
		g.rejected.Add(1)
		return false
	}
	g.inflight[token] = struct{}{}
	return true
}

// Release frees a token after a failed submit so the user can retry.
func (g *submitGuard) Release(token string) {
	if token == "" {
		return
	}
	g.mu.Lock()
	delete(g.inflight, token)
	g.mu.Unlock()
}

func (g *submitGuard) Complete(token string) {
	if token == "" {
		return
	}
	g.mu.Lock()
	delete(g.inflight, token)
	g.done.Set(token, struct{}{})
	g.mu.Unlock()
}

func (g *submitGuard) Rejected() int64 {
	return g.rejected.Load()
}
