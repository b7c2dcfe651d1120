package domain

import "time"

// PredictionRequest is the payload sent to the prediction service.
type PredictionRequest struct {
	Description string `json:"description"`
}

// Prediction is the decoded prediction service answer.
type Prediction struct {
	Category string `json:"category"`
}

// ErrorResponse is the single error body returned for every failed request.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
