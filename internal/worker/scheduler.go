package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"creditos/internal/log"
)

// Scheduler re-syncs pending audit entries on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	worker *AuditWorker
	logger *log.Logger
}

// NewScheduler accepts standard five-field specs and descriptors such as "@every 1m".
// Runs never overlap; a tick that finds the previous run busy is skipped.
func NewScheduler(w *AuditWorker, spec string, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	cl := cronLogger{logger}

	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		worker: w,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.resync); err != nil {
		return nil, fmt.Errorf("invalid audit sync schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	synced, err := s.worker.ProcessPending(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Audit re-sync incomplete", log.FieldCount, synced, log.FieldError, err)
		return
	}
	if synced > 0 {
		s.logger.InfoContext(ctx, "Audit re-sync completed", log.FieldCount, synced)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for a running one, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own messages to the worker logger.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, log.FieldError, err)...)
}
