package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"creditos/internal/api"
	"creditos/internal/backend"
	"creditos/internal/cache"
	"creditos/internal/cli"
	"creditos/internal/log"
	"creditos/internal/middleware/ratelimit"
	"creditos/internal/middleware/security"
	"creditos/internal/middleware/trace"
	"creditos/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	logger := cli.SetupLogger(log.ComponentAPI)
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.Open(bcfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", bcfg.Type.String())
		os.Exit(1)
	}

	svc := services.NewCreditService(res.Store, res.Publisher, logger)
	janitor := cache.NewJanitor(logger, svc.Summaries())
	janitor.Start(time.Minute)

	detector := security.NewDetector(logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	tracer := trace.NewMiddleware(logger, detector.ClientIP)
	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())

	router := api.NewRouter(api.NewHandler(svc), api.RouterOptions{
		Middlewares: []mux.MiddlewareFunc{limiter.Middleware(detector.ClientIP, ratelimit.MutatingOnly, nil)},
		Ready:       res.Ready,
	})

	var handler http.Handler = router
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = tracer.Handler(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting creditos API", "port", cfg.APIPort, "backend", bcfg.Type.String(), "amqp_enabled", res.Publisher != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.APIPort)
			os.Exit(1)
		}
	}

	cli.Shutdown(logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error { janitor.Stop(); limiter.Stop(); return nil },
		func(context.Context) error { return res.Cleanup() },
	)
}
