// Package memory is an in-process storage backend used for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"creditos/internal/core"
	"creditos/internal/storage"
)

// Store keeps credits and audit entries in memory.
type Store struct {
	mu      sync.RWMutex
	credits []core.Credit
	nextID  int64

	audit       []storage.AuditEntry
	auditIndex  map[string]struct{}
	nextAuditID int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{auditIndex: make(map[string]struct{})}
}

func (s *Store) Close() error { return nil }

func (s *Store) ListCredits(_ context.Context) ([]core.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Credit, len(s.credits))
	copy(out, s.credits)
	return out, nil
}

func (s *Store) index(id core.CreditID) int {
	for i, c := range s.credits {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) GetCredit(_ context.Context, id core.CreditID) (core.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.credits[i], nil
	}
	return core.Credit{}, storage.ErrNotFound
}

func (s *Store) CreateCredit(_ context.Context, f core.CreditFields) (core.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := core.Credit{ID: core.NewCreditID(s.nextID), CreditFields: f}
	s.credits = append(s.credits, c)
	return c, nil
}

func (s *Store) UpdateCredit(_ context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return core.Credit{}, storage.ErrNotFound
	}
	s.credits[i].CreditFields = f
	return s.credits[i], nil
}

func (s *Store) DeleteCredit(_ context.Context, id core.CreditID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.credits = append(s.credits[:i], s.credits[i+1:]...)
	return nil
}

func (s *Store) TotalMonto(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, _ := core.SumMontos(s.credits).Float64()
	return total, nil
}

func (s *Store) MontoByCliente(_ context.Context) ([]storage.ClientTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := make(map[string]int)
	out := make([]storage.ClientTotal, 0)
	for _, c := range s.credits {
		i, ok := pos[c.Cliente]
		if !ok {
			i = len(out)
			pos[c.Cliente] = i
			out = append(out, storage.ClientTotal{Cliente: c.Cliente})
		}
		out[i].Total += c.Monto
	}
	return out, nil
}

func (s *Store) RecordAudit(_ context.Context, e storage.AuditEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.auditIndex[e.EventID]; seen {
		return 0, nil
	}
	s.nextAuditID++
	e.ID = s.nextAuditID
	e.SyncedAt = nil
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	s.audit = append(s.audit, e)
	s.auditIndex[e.EventID] = struct{}{}
	return e.ID, nil
}

func (s *Store) PendingAudit(_ context.Context, limit int) ([]storage.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.AuditEntry
	for _, e := range s.audit {
		if e.SyncedAt != nil {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) MarkAuditSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.audit {
		if s.audit[i].ID == id {
			now := time.Now().UTC()
			s.audit[i].SyncedAt = &now
			return nil
		}
	}
	return storage.ErrNotFound
}
