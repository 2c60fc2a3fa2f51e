package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditos/internal/amqp"
	"creditos/internal/core"
	"creditos/internal/log"
	sheetmem "creditos/internal/sheets/memory"
	"creditos/internal/storage"
	"creditos/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createdEvent(cliente string) *amqp.CreditEvent {
	return amqp.NewCreditEvent(amqp.EventCreditCreated, "1", &core.CreditFields{
		Cliente: cliente, Monto: 1000, TasaInteres: 10, Plazo: 12, FechaOtorgamiento: "2024-01-15",
	})
}

func TestHandleCreditEvent_RecordsAndSyncs(t *testing.T) {
	store := memory.New()
	sheet := sheetmem.New()
	w := NewAuditWorker(store, sheet, 10, log.Discard())

	require.NoError(t, w.HandleCreditEvent(context.Background(), createdEvent("Ana")))

	rows := sheet.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "credit.created", rows[1][1])
	assert.Equal(t, "Ana", rows[1][3])

	pending, err := store.PendingAudit(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHandleCreditEvent_DuplicateIgnored(t *testing.T) {
	store := memory.New()
	sheet := sheetmem.New()
	w := NewAuditWorker(store, sheet, 10, log.Discard())

	evt := createdEvent("Ana")
	require.NoError(t, w.HandleCreditEvent(context.Background(), evt))
	require.NoError(t, w.HandleCreditEvent(context.Background(), evt))

	assert.Len(t, sheet.Rows(), 2, "redelivered event must not add a row")
}

func TestHandleCreditEvent_SheetFailureDefersSync(t *testing.T) {
	store := memory.New()
	sheet := sheetmem.New()
	sheet.FailNext(1)
	w := NewAuditWorker(store, sheet, 10, log.Discard())

	require.NoError(t, w.HandleCreditEvent(context.Background(), createdEvent("Ana")))

	pending, err := store.PendingAudit(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	synced, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Len(t, sheet.Rows(), 2)
}

type failingAuditStore struct{ storage.AuditStore }

func (failingAuditStore) RecordAudit(context.Context, storage.AuditEntry) (int64, error) {
	return 0, errors.New("disk full")
}

func TestHandleCreditEvent_StorageFailureReturned(t *testing.T) {
	w := NewAuditWorker(failingAuditStore{memory.New()}, sheetmem.New(), 10, log.Discard())
	err := w.HandleCreditEvent(context.Background(), createdEvent("Ana"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record audit entry")
}

func TestHandleCreditEvent_DeleteWithoutFields(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store, nil, 10, log.Discard())

	evt := amqp.NewCreditEvent(amqp.EventCreditDeleted, "9", nil)
	require.NoError(t, w.HandleCreditEvent(context.Background(), evt))

	pending, err := store.PendingAudit(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "without a sheet entries stay pending")
	assert.Equal(t, core.CreditID("9"), pending[0].CreditID)
	assert.Equal(t, "credit.deleted", pending[0].Event)
}

func TestProcessPending_BatchesAndStopsOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for i := 0; i < 5; i++ {
		_, err := store.RecordAudit(ctx, storage.AuditEntry{
			EventID:    createdEvent("x").ID,
			Event:      "credit.created",
			CreditID:   core.NewCreditID(int64(i + 1)),
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)
	}

	sheet := sheetmem.New()
	w := NewAuditWorker(store, sheet, 2, log.Discard())

	synced, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	sheet.FailNext(1)
	synced, err = w.ProcessPending(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, synced)

	require.NoError(t, w.StartupSyncCheck(ctx))
	pending, err := store.PendingAudit(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rows := sheet.Rows()
	require.Len(t, rows, 6)
	assert.Equal(t, "1", rows[1][2])
	assert.Equal(t, "5", rows[5][2], "rows stay in recording order")
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(NewAuditWorker(memory.New(), nil, 1, nil), "not a schedule", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid audit sync schedule")
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(NewAuditWorker(memory.New(), sheetmem.New(), 1, nil), "@every 1h", log.Discard())
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_ResyncRuns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.RecordAudit(ctx, storage.AuditEntry{EventID: "e1", Event: "credit.created", CreditID: "1"})
	require.NoError(t, err)

	sheet := sheetmem.New()
	s, err := NewScheduler(NewAuditWorker(store, sheet, 10, nil), "@every 1h", nil)
	require.NoError(t, err)

	s.resync()
	assert.Len(t, sheet.Rows(), 2)
}
