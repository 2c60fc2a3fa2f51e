package charts

import "sync"

// Board holds the most recently rendered chart set. Each Replace disposes the
// previous charts before the new ones are installed.
type Board struct {
	mu        sync.RWMutex
	current   Set
	version   uint64
	rendered  bool
	onDispose func(canvas string, old Spec)
}

// NewBoard returns an empty board. onDispose, if set, is called once per slot on Replace.
func NewBoard(onDispose func(canvas string, old Spec)) *Board {
	return &Board{onDispose: onDispose}
}

// Replace installs s and returns its version.
func (b *Board) Replace(s Set) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rendered && b.onDispose != nil {
		b.onDispose(CanvasTotal, b.current.Total)
		b.onDispose(CanvasClientes, b.current.ByClient)
		b.onDispose(CanvasRangos, b.current.ByRange)
	}
	b.current = s
	b.rendered = true
	b.version++
	return b.version
}

// Current returns the last set and its version; ok is false before the first Replace.
func (b *Board) Current() (s Set, version uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current, b.version, b.rendered
}
