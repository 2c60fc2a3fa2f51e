package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"creditos/internal/apiclient"
	"creditos/internal/charts"
	"creditos/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks that the backend answers a list request.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{"templates": "ok"}

	if _, err := s.api.List(ctx); err != nil {
		checks["credit_api"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["credit_api"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	tm := s.trace.Metrics()
	_, version, _ := s.board.Current()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", tm.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time", tm.AverageResponseTime.Milliseconds())
	metric("chart_renders_total", "counter", "Chart sets rendered", version)
	metric("chart_disposals_total", "counter", "Charts disposed before redraw", s.chartDisposals.Load())
	metric("submissions_rejected_total", "counter", "Duplicate or in-flight form submissions", s.guard.Rejected())
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", s.limiter.Rejected())
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", s.limiter.ActiveClients())
	metric("suspicious_requests_total", "counter", "Suspicious requests rejected", s.detector.SuspiciousCount())
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

// handleIndex renders the page in Create mode. The table fills itself on load.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	body, err := s.render("index.html", pageView{Form: blankForm(newSubmitToken())})
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Page render failed",
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleChartsJSON serves the last rendered chart set, drawing one if none exists yet.
func (s *Server) handleChartsJSON(w http.ResponseWriter, r *http.Request) {
	set, _, ok := s.board.Current()
	if !ok {
		credits, err := s.api.List(r.Context())
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Chart data unavailable",
				log.FieldOperation, log.OpList,
				log.FieldErrorType, log.ErrorTypeUpstream,
				log.FieldError, err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": apiclient.MsgListFailed})
			return
		}
		set = charts.Build(credits)
		s.board.Replace(set)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, set)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
