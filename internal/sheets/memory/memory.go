// Package memory is an in-process audit sheet for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "creditos/internal/sheets"
	"creditos/internal/storage"
)

type Sheet struct {
	mu   sync.Mutex
	rows     [][]any
	failNext int
}

var _ ports.AuditWriter = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{rows: [][]any{ports.Header}}
}

func (s *Sheet) AppendAuditRow(_ context.Context, e storage.AuditEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return "", fmt.Errorf("append audit row %s: sheet unavailable", e.EventID)
	}
	s.rows = append(s.rows, ports.AuditRow(e))
	return fmt.Sprintf("mem!A%d:H%d", len(s.rows), len(s.rows)), nil
}

// FailNext makes the next n appends return an error.
func (s *Sheet) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Rows returns a copy of all rows, header first.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
