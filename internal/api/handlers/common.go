package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/middleware"
)

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	sendErrorFields(w, r, code, message, status, nil)
}

// sendErrorFields answers with the error envelope; meta carries per-field failures.
func sendErrorFields(w http.ResponseWriter, r *http.Request, code, message string, status int, meta map[string]string) {
	var resp domain.APIError
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Meta = meta
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// handleError maps a failure from the resource clients or forms to a response.
func handleError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindMissingParameter, domain.KindInvalidParameter:
			sendErrorFields(w, r, string(de.Kind), de.Details, http.StatusBadRequest, de.Meta)
		case domain.KindValidation:
			sendErrorFields(w, r, string(de.Kind), de.Details, http.StatusUnprocessableEntity, de.Meta)
		case domain.KindInvalidState:
			sendError(w, r, string(de.Kind), de.Details, http.StatusConflict)
		case domain.KindUnauthenticated:
			sendError(w, r, string(de.Kind), de.Details, http.StatusUnauthorized)
		case domain.KindInvalidResponse:
			logger.Ctx(r.Context()).Error().Err(err).Msg(defaultMsg)
			sendError(w, r, string(de.Kind), de.Details, http.StatusBadGateway)
		default:
			sendError(w, r, "internal_error", defaultMsg, http.StatusInternalServerError)
		}
		return
	}

	var se *downstream.StatusError
	switch {
	case errors.As(err, &se):
		logger.Ctx(r.Context()).Warn().Err(err).Int("backend_status", se.StatusCode).Msg(defaultMsg)
		sendError(w, r, se.Code, se.Message, se.StatusCode)
	case errors.Is(err, downstream.ErrTimeout):
		logger.Ctx(r.Context()).Error().Err(err).Msg(defaultMsg)
		sendError(w, r, "upstream_timeout", "backend timeout", http.StatusGatewayTimeout)
	case errors.Is(err, downstream.ErrUnavailable):
		logger.Ctx(r.Context()).Error().Err(err).Msg(defaultMsg)
		sendError(w, r, "upstream_unavailable", defaultMsg, http.StatusBadGateway)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg(defaultMsg)
		sendError(w, r, "internal_error", defaultMsg, http.StatusBadGateway)
	}
}

// decodeJSON reads the request body into v, answering 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		sendError(w, r, "invalid_json", "request body is not valid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		sendError(w, r, "validation_failed", "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// principal returns the session principal. Routes are mounted behind
// RequireSession, so a nil principal is a wiring bug answered with 401.
func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		sendError(w, r, "unauthenticated", "login required", http.StatusUnauthorized)
		return nil, false
	}
	return p, true
}
