package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
)

var now = time.Now

// writeError converts any request failure into the structured error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, phrase, message := mapError(err)

	slog.ErrorContext(r.Context(), "request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)

	writeJSON(w, status, domain.ErrorResponse{
		Timestamp: now().UTC(),
		Status:    status,
		Error:     phrase,
		Message:   message,
		Path:      r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
