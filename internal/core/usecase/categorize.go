package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
	"github.com/kirillkom/invoice-categorizer/internal/core/ports"
)

const (
	OutcomeSuccess           = "success"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeDownstreamStatus  = "downstream_status"
	OutcomeMalformedResponse = "malformed_response"
	OutcomeUnavailable       = "unavailable"
	OutcomeTransportError    = "transport_error"
)

type CategorizeUseCase struct {
	predictor ports.CategoryPredictor
	observer  ports.CategorizationObserver
}

func NewCategorizeUseCase(predictor ports.CategoryPredictor, observer ports.CategorizationObserver) *CategorizeUseCase {
	return &CategorizeUseCase{
		predictor: predictor,
		observer:  observer,
	}
}

// Categorize validates the description and asks the prediction service for
// its category. Every call that passes validation makes one Predict call.
func (uc *CategorizeUseCase) Categorize(ctx context.Context, description string) (string, error) {
	slog.InfoContext(ctx, "categorize_received", "description", description)

	if strings.TrimSpace(description) == "" {
		err := domain.WrapError(domain.ErrInvalidInput, "categorize", errors.New("description is required"))
		uc.record(OutcomeInvalidInput)
		slog.ErrorContext(ctx, "categorize_failed", "error", err)
		return "", err
	}

	prediction, err := uc.predictor.Predict(ctx, domain.PredictionRequest{Description: description})
	if err != nil {
		uc.record(outcomeOf(err))
		slog.ErrorContext(ctx, "categorize_failed", "error", err)
		return "", fmt.Errorf("predict category: %w", err)
	}

	uc.record(OutcomeSuccess)
	slog.InfoContext(ctx, "categorize_succeeded", "category", prediction.Category)
	return prediction.Category, nil
}

func (uc *CategorizeUseCase) record(outcome string) {
	if uc.observer == nil {
		return
	}
	uc.observer.RecordCategorization(outcome)
}

func outcomeOf(err error) string {
	if _, ok := domain.AsDownstreamStatus(err); ok {
		return OutcomeDownstreamStatus
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return OutcomeInvalidInput
	case domain.IsKind(err, domain.ErrMalformedResponse):
		return OutcomeMalformedResponse
	case domain.IsKind(err, domain.ErrTemporary):
		return OutcomeUnavailable
	default:
		return OutcomeTransportError
	}
}
