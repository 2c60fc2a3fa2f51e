package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"creditos/internal/amqp"
	"creditos/internal/backend"
	"creditos/internal/cli"
	"creditos/internal/log"
	"creditos/internal/sheets"
	gsheet "creditos/internal/sheets/google"
	sheetmem "creditos/internal/sheets/memory"
	"creditos/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// the worker consumes; it never publishes
	bcfg.AMQPURL = ""
	res, err := backend.Open(bcfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err)
		os.Exit(1)
	}

	var sheet sheets.AuditWriter
	switch {
	case cfg.GoogleSpreadsheetID != "":
		client, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sheet = client
		logger.Info("Audit mirror enabled", "sheet", cfg.GoogleSheetName)
	case bcfg.Type == backend.MemoryBackend:
		sheet = sheetmem.New()
		logger.Info("Audit mirror kept in memory")
	default:
		logger.Info("GOOGLE_SPREADSHEET_ID not set, audit entries stay in the database only")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewAuditWorker(res.Store, sheet, cfg.AuditBatchSize, logger)
	sched, err := worker.NewScheduler(w, cfg.AuditSyncSchedule, logger)
	if err != nil {
		logger.Error("Invalid audit sync schedule", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Warn("Startup sync incomplete", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming credit events", "queue", cfg.AMQPQueue)
		return consumer.ConsumeCreditEvents(gctx, w.HandleCreditEvent)
	})
	g.Go(func() error {
		sched.Start()
		logger.Info("Audit re-sync scheduled", "schedule", cfg.AuditSyncSchedule, "batch_size", cfg.AuditBatchSize)
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}

	cli.Shutdown(logger, 30*time.Second,
		sched.Stop,
		func(context.Context) error { return consumer.Close() },
		func(context.Context) error { return res.Cleanup() },
	)
}
