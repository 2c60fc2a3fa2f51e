// Package worker records credit change events and mirrors them to the audit sheet.
package worker

import (
	"context"
	"fmt"

	"creditos/internal/amqp"
	"creditos/internal/log"
	"creditos/internal/sheets"
	"creditos/internal/storage"
)

// AuditWorker turns credit events into audit entries and pushes unsynced entries
// to the sheet. A nil sheet leaves every entry pending.
type AuditWorker struct {
	store     storage.AuditStore
	sheet     sheets.AuditWriter
	batchSize int
	logger    *log.Logger
}

func NewAuditWorker(store storage.AuditStore, sheet sheets.AuditWriter, batchSize int, logger *log.Logger) *AuditWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{
		store:     store,
		sheet:     sheet,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleCreditEvent records evt and mirrors it. Only a storage failure is returned,
// so the delivery is requeued; a sheet failure leaves the entry for the next re-sync.
func (w *AuditWorker) HandleCreditEvent(ctx context.Context, evt *amqp.CreditEvent) error {
	entry := storage.AuditEntry{
		EventID:    evt.ID,
		Event:      string(evt.Type),
		CreditID:   evt.CreditID,
		OccurredAt: evt.Timestamp,
	}
	if evt.Credit != nil {
		entry.Fields = *evt.Credit
	}

	id, err := w.store.RecordAudit(ctx, entry)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	if id == 0 {
		w.logger.InfoContext(ctx, "Duplicate credit event ignored", "event_id", evt.ID, log.FieldEvent, evt.Type)
		return nil
	}
	entry.ID = id

	w.logger.InfoContext(ctx, "Credit event recorded",
		"event_id", evt.ID,
		log.FieldEvent, evt.Type,
		log.FieldCreditID, evt.CreditID.String())

	if err := w.syncEntry(ctx, entry); err != nil {
		w.logger.WarnContext(ctx, "Audit sync deferred", "audit_id", id, log.FieldError, err)
	}
	return nil
}

// ProcessPending pushes one batch of unsynced entries, oldest first. It stops at the
// first sheet failure so rows stay in order.
func (w *AuditWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger backlog left by downtime or lost deliveries.
func (w *AuditWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldCount, synced)
	return nil
}

func (w *AuditWorker) processPending(ctx context.Context, limit int) (int, error) {
	if w.sheet == nil {
		return 0, nil
	}
	pending, err := w.store.PendingAudit(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending audit entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending audit entries", log.FieldCount, len(pending))
	synced := 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.syncEntry(ctx, e); err != nil {
			return synced, fmt.Errorf("sync audit entry %d: %w", e.ID, err)
		}
		synced++
	}
	return synced, nil
}

func (w *AuditWorker) syncEntry(ctx context.Context, e storage.AuditEntry) error {
	if w.sheet == nil {
		return nil
	}
	ref, err := w.sheet.AppendAuditRow(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	// the row is written; a failed mark only means a duplicate row on the next re-sync
	if err := w.store.MarkAuditSynced(ctx, e.ID); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark audit entry synced", "audit_id", e.ID, log.FieldError, err)
	}
	w.logger.DebugContext(ctx, "Audit entry synced", "audit_id", e.ID, "sheets_ref", ref)
	return nil
}
