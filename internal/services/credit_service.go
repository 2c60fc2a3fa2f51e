package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creditos/internal/amqp"
	"creditos/internal/cache"
	"creditos/internal/core"
	"creditos/internal/log"
	"creditos/internal/storage"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishCreditEvent(ctx context.Context, evt *amqp.CreditEvent) error
}

// CreditStore is the storage a CreditService needs.
type CreditStore interface {
	storage.CreditRepository
	storage.SummaryReader
}

const (
	summaryTotalKey     = "total"
	summaryByClienteKey = "by_cliente"
	summaryTTL          = 30 * time.Second
)

// CreditService persists credits and announces every change on the event bus.
type CreditService struct {
	store     CreditStore
	publisher EventPublisher
	summaries *cache.LRUCache[any]
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewCreditService wires the service. publisher may be nil when AMQP is not configured.
func NewCreditService(store CreditStore, publisher EventPublisher, logger *log.Logger) *CreditService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentCredit)
	return &CreditService{
		store:     store,
		publisher: publisher,
		summaries: cache.NewLRUCache[any](8, summaryTTL),
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Summaries exposes the summary cache so the caller can register it with a janitor.
func (s *CreditService) Summaries() *cache.LRUCache[any] {
	return s.summaries
}

func (s *CreditService) ListCredits(ctx context.Context) ([]core.Credit, error) {
	credits, err := s.store.ListCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	return credits, nil
}

func (s *CreditService) GetCredit(ctx context.Context, id core.CreditID) (core.Credit, error) {
	return s.store.GetCredit(ctx, id)
}

func (s *CreditService) CreateCredit(ctx context.Context, f core.CreditFields) (core.Credit, error) {
	c, err := s.store.CreateCredit(ctx, f)
	if err != nil {
		return core.Credit{}, fmt.Errorf("save credit: %w", err)
	}
	s.afterWrite(ctx, amqp.EventCreditCreated, log.OpCreate, c)
	return c, nil
}

func (s *CreditService) UpdateCredit(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error) {
	c, err := s.store.UpdateCredit(ctx, id, f)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Credit{}, err
		}
		return core.Credit{}, fmt.Errorf("update credit: %w", err)
	}
	s.afterWrite(ctx, amqp.EventCreditUpdated, log.OpUpdate, c)
	return c, nil
}

func (s *CreditService) DeleteCredit(ctx context.Context, id core.CreditID) error {
	// fetched first so the audit trail records what was removed
	c, err := s.store.GetCredit(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCredit(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete credit: %w", err)
	}
	s.afterWrite(ctx, amqp.EventCreditDeleted, log.OpDelete, c)
	return nil
}

// Total is the sum of monto over every credit.
func (s *CreditService) Total(ctx context.Context) (float64, error) {
	if v, ok := s.summaries.Get(summaryTotalKey); ok {
		return v.(float64), nil
	}
	total, err := s.store.TotalMonto(ctx)
	if err != nil {
		return 0, fmt.Errorf("total monto: %w", err)
	}
	s.summaries.Set(summaryTotalKey, total)
	return total, nil
}

// DistributionByCliente sums monto per cliente.
func (s *CreditService) DistributionByCliente(ctx context.Context) ([]storage.ClientTotal, error) {
	if v, ok := s.summaries.Get(summaryByClienteKey); ok {
		return v.([]storage.ClientTotal), nil
	}
	totals, err := s.store.MontoByCliente(ctx)
	if err != nil {
		return nil, fmt.Errorf("monto by cliente: %w", err)
	}
	s.summaries.Set(summaryByClienteKey, totals)
	return totals, nil
}

func (s *CreditService) afterWrite(ctx context.Context, t amqp.EventType, op string, c core.Credit) {
	s.summaries.Purge()
	s.events.LogCreditWritten(ctx, op, c.ID.String(), c.Cliente, c.Monto, c.Plazo)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping credit event", log.FieldEvent, string(t))
		return
	}
	fields := c.CreditFields
	if err := s.publisher.PublishCreditEvent(ctx, amqp.NewCreditEvent(t, c.ID, &fields)); err != nil {
		// the write already succeeded, so a lost event is only logged
		s.events.LogError(ctx, "Failed to publish credit event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithCredit(c.ID.String(), c.Cliente, c.Monto, c.Plazo))
	}
}
