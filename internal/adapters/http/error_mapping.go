package httpadapter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
)

// mapError picks the response status, reason phrase and message for err.
// Prediction service status errors pass through with their own status and
// raw body; everything else is classified by domain kind.
func mapError(err error) (status int, phrase string, message string) {
	if statusErr, ok := domain.AsDownstreamStatus(err); ok {
		return statusErr.StatusCode, reasonPhrase(statusErr.StatusCode, statusErr.Status), statusErr.Body
	}
	var routeErr *routeError
	if errors.As(err, &routeErr) {
		return routeErr.status, http.StatusText(routeErr.status), err.Error()
	}

	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	return status, http.StatusText(status), err.Error()
}

func reasonPhrase(code int, status string) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
}
