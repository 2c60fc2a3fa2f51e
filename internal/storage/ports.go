package storage

import (
	"context"
	"errors"
	"time"

	"creditos/internal/core"
)

var ErrNotFound = errors.New("credit not found")

// Ports implemented by the sqlite and memory repositories.
type (
	CreditRepository interface {
		ListCredits(ctx context.Context) ([]core.Credit, error)
		GetCredit(ctx context.Context, id core.CreditID) (core.Credit, error)
		CreateCredit(ctx context.Context, f core.CreditFields) (core.Credit, error)
		UpdateCredit(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error)
		DeleteCredit(ctx context.Context, id core.CreditID) error
	}

	// SummaryReader backs the total and per-client endpoints.
	SummaryReader interface {
		TotalMonto(ctx context.Context) (float64, error)
		MontoByCliente(ctx context.Context) ([]ClientTotal, error)
	}

	// AuditStore persists credit change events for the worker.
	AuditStore interface {
		RecordAudit(ctx context.Context, e AuditEntry) (int64, error)
		PendingAudit(ctx context.Context, limit int) ([]AuditEntry, error)
		MarkAuditSynced(ctx context.Context, id int64) error
	}

	// Store is everything a storage backend provides.
	Store interface {
		CreditRepository
		SummaryReader
		AuditStore
		Close() error
	}
)

// ClientTotal is the sum of monto for one cliente.
type ClientTotal struct {
	Cliente string
	Total   float64
}

// AuditEntry is one recorded credit change.
type AuditEntry struct {
	ID         int64
	EventID    string
	Event      string
	CreditID   core.CreditID
	Fields     core.CreditFields
	OccurredAt time.Time
	SyncedAt   *time.Time
}
