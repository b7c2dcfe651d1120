package prediction

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
	"github.com/kirillkom/invoice-categorizer/internal/infrastructure/resilience"
)

// PredictPath is the prediction route exposed by the ML service. The
// trailing slash is part of the route.
const PredictPath = "/predict/"

const defaultTimeout = 10 * time.Second

// CallObserver receives the outcome of every HTTP call to the prediction service.
type CallObserver interface {
	ObservePredictionCall(status string, duration time.Duration)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Resilience resilience.Config
	Observer   CallObserver
}

// predictResponse tells an absent or null category apart from an empty one.
type predictResponse struct {
	Category *string `json:"category"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor[domain.Prediction]
	observer   CallObserver
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			// A redirect is a non-2xx answer like any other and is not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		executor:   resilience.NewExecutor[domain.Prediction]("predict", cfg.Resilience, classifyPredictionError),
		observer:   cfg.Observer,
	}
}

// Predict posts the description to the prediction service and returns the
// decoded category.
func (c *Client) Predict(ctx context.Context, req domain.PredictionRequest) (domain.Prediction, error) {
	prediction, err := c.executor.Execute(ctx, func(ctx context.Context) (domain.Prediction, error) {
		var out predictResponse
		if err := c.postJSON(ctx, PredictPath, req, &out, "predict"); err != nil {
			return domain.Prediction{}, err
		}
		if out.Category == nil {
			return domain.Prediction{}, domain.WrapError(domain.ErrMalformedResponse, "predict", errors.New("category is missing"))
		}
		return domain.Prediction{Category: *out.Category}, nil
	})
	if err != nil {
		return domain.Prediction{}, wrapTemporaryIfNeeded("predict", err)
	}
	return prediction, nil
}
