package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"creditos/internal/apiclient"
	"creditos/internal/cli"
	apphttp "creditos/internal/http"
	"creditos/internal/log"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	logger := cli.SetupLogger(log.ComponentUI)
	cfg := cli.LoadAndValidateConfig(logger)

	client, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, apiclient.WithLogger(logger))
	if err != nil {
		logger.Error("Invalid API client configuration", log.FieldError, err, "base_url", cfg.APIBaseURL)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		API:                client,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build UI server", log.FieldError, err)
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := cli.SignalContext()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting creditos UI", "port", cfg.Port, "api_base_url", cfg.APIBaseURL, "api_timeout", cfg.APITimeout.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	cli.Shutdown(logger, 30*time.Second, srv.Shutdown)
}
