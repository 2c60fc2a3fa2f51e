// Package api serves the /api/creditos REST resource.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"creditos/internal/core"
	"creditos/internal/log"
	"creditos/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Response messages returned to clients.
const (
	MsgMissingFields = "Faltan datos obligatorios"
	MsgInvalidDate   = "Formato de fecha inválido, debe ser YYYY-MM-DD"
	MsgInvalidData   = "Datos del crédito inválidos"
	MsgInvalidBody   = "Cuerpo de la petición inválido"
	MsgNotFound      = "Crédito no encontrado"
	MsgInternal      = "Error interno del servidor"
	MsgUpdated       = "Crédito actualizado"
	MsgDeleted       = "Crédito eliminado"
)

const maxBodyBytes = 64 << 10

// CreditService is the backend behaviour the handlers need.
type CreditService interface {
	ListCredits(ctx context.Context) ([]core.Credit, error)
	CreateCredit(ctx context.Context, f core.CreditFields) (core.Credit, error)
	UpdateCredit(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error)
	DeleteCredit(ctx context.Context, id core.CreditID) error
	Total(ctx context.Context) (float64, error)
	DistributionByCliente(ctx context.Context) ([]storage.ClientTotal, error)
}

// creditRequest is the create/update payload. Zero values count as missing.
type creditRequest struct {
	Cliente           string  `json:"cliente" validate:"required"`
	Monto             float64 `json:"monto" validate:"required"`
	TasaInteres       float64 `json:"tasa_interes" validate:"required"`
	Plazo             int     `json:"plazo" validate:"required"`
	FechaOtorgamiento string  `json:"fecha_otorgamiento" validate:"required"`
}

var validate = validator.New()

type Handler struct {
	svc CreditService
}

func NewHandler(svc CreditService) *Handler {
	return &Handler{svc: svc}
}

// ListCredits handles GET /api/creditos
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := h.svc.ListCredits(r.Context())
	if err != nil {
		h.internalError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

// CreateCredit handles POST /api/creditos
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeCredit(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CreateCredit(r.Context(), fields)
	if err != nil {
		h.internalError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]core.CreditID{"id": c.ID})
}

// UpdateCredit handles PUT /api/creditos/{id}
func (h *Handler) UpdateCredit(w http.ResponseWriter, r *http.Request) {
	id := core.CreditID(mux.Vars(r)["id"])
	fields, ok := decodeCredit(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.UpdateCredit(r.Context(), id, fields); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgNotFound)
			return
		}
		h.internalError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgUpdated})
}

// DeleteCredit handles DELETE /api/creditos/{id}
func (h *Handler) DeleteCredit(w http.ResponseWriter, r *http.Request) {
	id := core.CreditID(mux.Vars(r)["id"])
	if err := h.svc.DeleteCredit(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgNotFound)
			return
		}
		h.internalError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgDeleted})
}

// Total handles GET /api/creditos/total
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Total(r.Context())
	if err != nil {
		h.internalError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"total": total})
}

// DistributionByCliente handles GET /api/creditos/distribucion_cliente
func (h *Handler) DistributionByCliente(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.DistributionByCliente(r.Context())
	if err != nil {
		h.internalError(w, r, log.OpRead, err)
		return
	}
	out := make(map[string]float64, len(totals))
	for _, t := range totals {
		out[t.Cliente] = t.Total
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeCredit applies the payload checks in order: body, required fields, date, ranges.
// On failure it has already written the 400 response.
func decodeCredit(w http.ResponseWriter, r *http.Request) (core.CreditFields, bool) {
	var req creditRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return core.CreditFields{}, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, MsgMissingFields)
		return core.CreditFields{}, false
	}
	if _, err := time.Parse(core.DateLayout, req.FechaOtorgamiento); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidDate)
		return core.CreditFields{}, false
	}

	fields := core.CreditFields(req)
	if err := fields.Validate(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected credit payload",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeValidation)
		writeError(w, http.StatusBadRequest, MsgInvalidData)
		return core.CreditFields{}, false
	}
	return fields, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Credit API request failed",
		log.FieldOperation, op,
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeDatabase)
	writeError(w, http.StatusInternalServerError, MsgInternal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
