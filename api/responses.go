package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heraldhq/herald/delivery"
	"github.com/heraldhq/herald/ingest"
	"github.com/heraldhq/herald/storage"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps service errors onto HTTP responses. An unowned
// channel answers 404 like a missing one, so callers cannot probe which
// channel ids exist.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrPublisherRequired):
		writeError(w, http.StatusForbidden, "publisher_required", err.Error())
	case errors.Is(err, ingest.ErrChannelNotFound), errors.Is(err, ingest.ErrNotChannelOwner):
		writeError(w, http.StatusNotFound, "channel_not_found", ingest.ErrChannelNotFound.Error())
	case errors.Is(err, ingest.ErrChannelNotActive):
		writeError(w, http.StatusBadRequest, "channel_not_active", err.Error())
	case errors.Is(err, ingest.ErrTitleAndBodyRequired):
		writeError(w, http.StatusBadRequest, "title_and_body_required", err.Error())
	case errors.Is(err, ingest.ErrInvalidUrgency):
		writeError(w, http.StatusBadRequest, "invalid_urgency", err.Error())
	case errors.Is(err, delivery.ErrDeadLetterResolved):
		writeError(w, http.StatusConflict, "already_resolved", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
