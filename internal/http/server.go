package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"creditos/internal/cache"
	"creditos/internal/charts"
	"creditos/internal/core"
	"creditos/internal/log"
	"creditos/internal/middleware/ratelimit"
	"creditos/internal/middleware/security"
	"creditos/internal/middleware/trace"
	appweb "creditos/web"
)

// CreditAPI is the slice of the backend client the UI needs.
type CreditAPI interface {
	List(ctx context.Context) ([]core.Credit, error)
	Find(ctx context.Context, id core.CreditID) (core.Credit, error)
	Create(ctx context.Context, f core.CreditFields) (core.Credit, error)
	Update(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error)
	Delete(ctx context.Context, id core.CreditID) error
}

type Options struct {
	Addr               string
	API                CreditAPI
	Logger             *log.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	api       CreditAPI
	logger    *log.Logger

	board    *charts.Board
	guard    *submitGuard
	janitor  *cache.Janitor
	trace    *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	chartDisposals atomic.Int64
	started        time.Time
	shutdownOnce   sync.Once
}

func NewServer(opts Options) (*Server, error) {
	if opts.API == nil {
		return nil, errors.New("credit api client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentUI)

	tmpl, err := appweb.ParseTemplates(templateFuncs())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: tmpl,
		api:       opts.API,
		logger:    logger,
		guard:     newSubmitGuard(),
		detector:  security.NewDetector(logger),
		started:   time.Now(),
	}
	chartLog := logger.WithComponent(log.ComponentCharts)
	s.board = charts.NewBoard(func(canvas string, _ charts.Spec) {
		s.chartDisposals.Add(1)
		chartLog.Debug("Chart disposed", "canvas", canvas)
	})
	s.trace = trace.NewMiddleware(logger, s.detector.ClientIP)

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(rlCfg)

	s.janitor = cache.NewJanitor(logger, s.guard.done)
	s.janitor.Start(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/credits", s.handleListCredits)
	mux.HandleFunc("POST /ui/credits", s.handleSaveCredit)
	mux.HandleFunc("GET /ui/credits/{id}/edit", s.handleEditForm)
	mux.HandleFunc("DELETE /ui/credits/{id}", s.handleDeleteCredit)
	mux.HandleFunc("GET /ui/form", s.handleBlankForm)
	mux.HandleFunc("GET /ui/charts.json", s.handleChartsJSON)
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServerFS(appweb.Static()))))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP, ratelimit.MutatingOnly, s.rateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.trace.Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) rateLimited(w http.ResponseWriter, _ *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerWarningNotification("Demasiadas solicitudes, intente nuevamente en un momento").
		Write(w)
}

// Shutdown stops background work and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
