package ports

import (
	"context"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
)

// CategoryPredictor calls the external prediction service.
type CategoryPredictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.Prediction, error)
}

// CategorizationObserver receives per-request outcomes for metrics.
type CategorizationObserver interface {
	RecordCategorization(outcome string)
}
