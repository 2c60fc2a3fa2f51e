package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"creditos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "creditos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func fields(cliente string, monto float64) core.CreditFields {
	return core.CreditFields{
		Cliente:           cliente,
		Monto:             monto,
		TasaInteres:       12.5,
		Plazo:             12,
		FechaOtorgamiento: "2024-01-15",
	}
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	list, err := repo.ListCredits(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	created, err := repo.CreateCredit(ctx, fields("Ana", 1000))
	require.NoError(t, err)
	assert.Equal(t, core.CreditID("1"), created.ID)

	got, err := repo.GetCredit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := repo.UpdateCredit(ctx, created.ID, fields("Ana María", 1500))
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Cliente)

	got, err = repo.GetCredit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, got.Monto)

	require.NoError(t, repo.DeleteCredit(ctx, created.ID))
	_, err = repo.GetCredit(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.UpdateCredit(ctx, "99", fields("x", 1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCredit(ctx, "99"), ErrNotFound)
	_, err = repo.GetCredit(ctx, "not-a-number")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepository_Summaries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	total, err := repo.TotalMonto(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	for _, f := range []core.CreditFields{fields("B", 100), fields("A", 200.5), fields("B", 0.25)} {
		_, err := repo.CreateCredit(ctx, f)
		require.NoError(t, err)
	}

	total, err = repo.TotalMonto(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 300.75, total, 1e-9)

	byClient, err := repo.MontoByCliente(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ClientTotal{{Cliente: "B", Total: 100.25}, {Cliente: "A", Total: 200.5}}, byClient)
}

func TestSQLiteRepository_Audit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	entry := AuditEntry{
		EventID:    "evt-1",
		Event:      "credit.created",
		CreditID:   "1",
		Fields:     fields("Ana", 10),
		OccurredAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	id, err := repo.RecordAudit(ctx, entry)
	require.NoError(t, err)
	assert.NotZero(t, id)

	// replay is ignored
	again, err := repo.RecordAudit(ctx, entry)
	require.NoError(t, err)
	assert.Zero(t, again)

	pending, err := repo.PendingAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ana", pending[0].Fields.Cliente)
	assert.Equal(t, core.CreditID("1"), pending[0].CreditID)

	require.NoError(t, repo.MarkAuditSynced(ctx, id))
	pending, err = repo.PendingAudit(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
