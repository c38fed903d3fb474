package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

type envelope map[string]any

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		"data":   data,
		"status": status,
	}); err != nil {
		h.logError(r, status, fmt.Errorf("failed to write response: %w", err))
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, &APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf("invalid %s", name)}
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf("invalid %s: must be a number", key)}
	}
	return n, nil
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf("invalid %s: expected YYYY-MM-DD", key)}
	}
	return &t, nil
}
