package http

import (
	"errors"
	"net/http"

	"creditos/internal/apiclient"
	"creditos/internal/charts"
	"creditos/internal/core"
	"creditos/internal/log"
)

const (
	msgCreated        = "Crédito guardado"
	msgUpdated        = "Crédito actualizado"
	msgDeleted        = "Crédito eliminado"
	msgNotFound       = "Crédito no encontrado"
	msgInFlight       = "La solicitud anterior aún está en curso"
	msgConfirmDelete  = "Confirme la eliminación del crédito"
	msgFormLoadFailed = "No se pudo cargar el crédito"
	msgRenderFailed   = "Error al generar la vista"
)

// handleListCredits is the refresh: full list, fresh table body, new chart set.
// On failure nothing is swapped, so the last good render stays.
func (s *Server) handleListCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	credits, err := s.api.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Credit list refresh failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldErrorType, log.ErrorTypeUpstream,
			log.FieldError, err)
		BadGatewayError(apiclient.MsgListFailed).Write(w)
		return
	}

	set := charts.Build(credits)
	data, err := chartJSON(set)
	if err != nil {
		logger.ErrorContext(ctx, "Chart encoding failed", log.FieldError, err)
		InternalServerError(msgRenderFailed).Write(w)
		return
	}

	rows, err := s.render("credit_rows", credits)
	if err == nil {
		var oob []byte
		oob, err = s.render("chart_data", data)
		rows = append(rows, oob...)
	}
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).ErrorContext(ctx, "Credit table render failed",
			log.FieldError, err)
		InternalServerError(msgRenderFailed).Write(w)
		return
	}

	version := s.board.Replace(set)
	logger.DebugContext(ctx, "Credits refreshed", log.FieldCount, len(credits), "chart_version", version)
	NewHTMXResponse().BodyHTML(rows).Write(w)
}

// handleSaveCredit creates a credit, or updates it when the form tracks an id.
func (s *Server) handleSaveCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}

	token := r.PostForm.Get("token")
	if !s.guard.Acquire(token) {
		logger.WarnContext(ctx, "Duplicate credit submission rejected", log.FieldErrorType, log.ErrorTypeConflict)
		NewHTMXResponse().
			Status(http.StatusConflict).
			TriggerWarningNotification(msgInFlight).
			Write(w)
		return
	}

	fields, err := core.ParseCreditForm(r.PostForm)
	if err != nil {
		s.guard.Release(token)
		logger.InfoContext(ctx, "Credit form rejected", log.FieldErrorType, log.ErrorTypeValidation)
		UnprocessableEntityError(core.FormValidationMessage).Write(w)
		return
	}

	var (
		op, okMsg, failMsg string
		saved              core.Credit
	)
	if rawID := r.PostForm.Get("id"); rawID != "" {
		id, idErr := core.ParseCreditID(rawID)
		if idErr != nil {
			s.guard.Release(token)
			BadRequestError("Identificador de crédito inválido").Write(w)
			return
		}
		op, okMsg, failMsg = log.OpUpdate, msgUpdated, apiclient.MsgUpdateFailed
		saved, err = s.api.Update(ctx, id, fields)
	} else {
		op, okMsg, failMsg = log.OpCreate, msgCreated, apiclient.MsgCreateFailed
		saved, err = s.api.Create(ctx, fields)
	}
	if err != nil {
		s.guard.Release(token)
		logger.ErrorContext(ctx, "Credit save failed",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeUpstream,
			log.FieldError, err)
		BadGatewayError(apiclient.UserMessage(err, failMsg)).Write(w)
		return
	}
	s.guard.Complete(token)

	logger.InfoContext(ctx, "Credit saved",
		log.FieldOperation, op,
		log.FieldCreditID, saved.ID.String(),
		log.FieldCliente, saved.Cliente)

	body, err := s.render("credit_form", blankForm(newSubmitToken()))
	if err != nil {
		logger.ErrorContext(ctx, "Form render failed", log.FieldError, err)
		body = nil
	}
	NewHTMXResponse().
		BodyHTML(body).
		TriggerFormReset().
		TriggerCreditsRefresh().
		TriggerSuccessNotification(okMsg).
		Write(w)
}

// handleEditForm switches the form to Edit mode for one credit.
func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, resp := pathCreditID(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	credit, err := s.api.Find(ctx, id)
	switch {
	case errors.Is(err, apiclient.ErrNotFound):
		NotFoundError(msgNotFound).Write(w)
		return
	case err != nil:
		log.FromContext(ctx).ErrorContext(ctx, "Credit lookup failed",
			log.FieldOperation, log.OpRead,
			log.FieldCreditID, id.String(),
			log.FieldError, err)
		BadGatewayError(msgFormLoadFailed).Write(w)
		return
	}

	s.writeForm(w, r, editForm(credit, newSubmitToken()))
}

// handleBlankForm is Cancel: back to Create mode with empty fields.
func (s *Server) handleBlankForm(w http.ResponseWriter, r *http.Request) {
	s.writeForm(w, r, blankForm(newSubmitToken()))
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, fv formView) {
	body, err := s.render("credit_form", fv)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Form render failed", log.FieldError, err)
		InternalServerError(msgRenderFailed).Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleDeleteCredit removes a credit. The request must carry confirm=yes.
func (s *Server) handleDeleteCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	id, resp := pathCreditID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	if paramFromRequest(r, "confirm") != "yes" {
		NewHTMXResponse().
			Status(http.StatusPreconditionRequired).
			TriggerWarningNotification(msgConfirmDelete).
			Write(w)
		return
	}

	if err := s.api.Delete(ctx, id); err != nil {
		logger.ErrorContext(ctx, "Credit delete failed",
			log.FieldOperation, log.OpDelete,
			log.FieldCreditID, id.String(),
			log.FieldErrorType, log.ErrorTypeUpstream,
			log.FieldError, err)
		BadGatewayError(apiclient.UserMessage(err, apiclient.MsgDeleteFailed)).Write(w)
		return
	}

	logger.InfoContext(ctx, "Credit deleted", log.FieldOperation, log.OpDelete, log.FieldCreditID, id.String())
	NewHTMXResponse().
		TriggerCreditsRefresh().
		TriggerSuccessNotification(msgDeleted).
		Write(w)
}
