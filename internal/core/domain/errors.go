package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DownstreamStatusError is returned when the prediction service answered
// with a non-2xx status. Body holds the raw response text.
type DownstreamStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *DownstreamStatusError) Error() string {
	if e == nil {
		return "prediction status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("prediction %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("prediction %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// AsDownstreamStatus unwraps err to a downstream status error if it carries one.
func AsDownstreamStatus(err error) (*DownstreamStatusError, bool) {
	var statusErr *DownstreamStatusError
	if errors.As(err, &statusErr) && statusErr != nil {
		return statusErr, true
	}
	return nil, false
}
