package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Pinger reports backend storage health for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions carries the optional pieces of the API router.
type RouterOptions struct {
	Middlewares []mux.MiddlewareFunc
	Ready       Pinger
}

// NewRouter registers the credit resource. Summary routes come before the {id}
// routes, and ids are restricted to digits like the stored integer keys.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Recurso no encontrado")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Método no permitido")
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyHandler(opts.Ready)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/creditos").Subrouter()
	for _, mw := range opts.Middlewares {
		api.Use(mw)
	}
	api.HandleFunc("", h.ListCredits).Methods(http.MethodGet)
	api.HandleFunc("", h.CreateCredit).Methods(http.MethodPost)
	api.HandleFunc("/total", h.Total).Methods(http.MethodGet)
	api.HandleFunc("/distribucion_cliente", h.DistributionByCliente).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.UpdateCredit).Methods(http.MethodPut)
	api.HandleFunc("/{id:[0-9]+}", h.DeleteCredit).Methods(http.MethodDelete)

	return r
}

func readyHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
