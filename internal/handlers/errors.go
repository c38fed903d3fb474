package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"impactfamilies/internal/service"
)

// APIError is an error with the status and message sent to the client
type APIError struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	badRequestErrors = []error{
		service.ErrFamilyNameRequired,
		service.ErrInvalidCoordinates,
		service.ErrSameLeader,
		service.ErrUnknownFamilyLeader,
		service.ErrLeaderNameRequired,
		service.ErrMemberNameRequired,
		service.ErrBirthDateRequired,
		service.ErrInvalidPeriod,
	}
	notFoundErrors = []error{
		service.ErrMemberNotFound,
		service.ErrFamilyNotFound,
		service.ErrLeaderNotFound,
	}
)

// toAPIError maps service sentinels onto HTTP statuses. Anything unknown is
// a 500 whose cause stays in the logs.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			return &APIError{Status: http.StatusNotFound, Message: sentinel.Error()}
		}
	}
	for _, sentinel := range badRequestErrors {
		if errors.Is(err, sentinel) {
			return &APIError{Status: http.StatusBadRequest, Message: sentinel.Error()}
		}
	}

	switch {
	case errors.Is(err, service.ErrInvalidPassword):
		return &APIError{Status: http.StatusUnauthorized, Message: "Invalid password"}
	case errors.Is(err, service.ErrSessionInvalid):
		return &APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	case errors.Is(err, service.ErrSiteAccessDisabled):
		return &APIError{Status: http.StatusServiceUnavailable, Message: "Site access is not configured"}
	}

	return &APIError{Status: http.StatusInternalServerError, Message: "Internal server error"}
}

func (h *Handlers) logError(r *http.Request, status int, err error) {
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
}

func (h *Handlers) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	h.logError(r, apiErr.Status, err)
	writeError(w, apiErr)
}

// writeError is shared with the middleware, which has no Handlers
func writeError(w http.ResponseWriter, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, &APIError{Status: http.StatusNotFound, Message: "The requested resource could not be found"})
}

func (h *Handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, &APIError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"})
}
