package backend

import (
	"context"
	"errors"
	"fmt"

	"creditos/internal/amqp"
	"creditos/internal/log"
	"creditos/internal/services"
	"creditos/internal/storage"
	"creditos/internal/storage/memory"
)

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result holds what Open created. Publisher and Ready are nil when not available.
type Result struct {
	Store     storage.Store
	Publisher services.EventPublisher
	AMQP      *amqp.Client
	Ready     Pinger
	Cleanup   func() error
}

// Open creates the store and, when configured, the AMQP client. A broker that cannot
// be reached is logged and skipped; the backend still serves requests.
func Open(cfg Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store = repo
		res.Ready = repo
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		res.Store = memory.New()
		logger.Info("Initialized memory backend")
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.AMQP = client
			res.Publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			errs = append(errs, res.AMQP.Close())
		}
		errs = append(errs, res.Store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}
