package bootstrap

import (
	"net/http"

	httpadapter "github.com/kirillkom/invoice-categorizer/internal/adapters/http"
	"github.com/kirillkom/invoice-categorizer/internal/config"
	"github.com/kirillkom/invoice-categorizer/internal/core/ports"
	"github.com/kirillkom/invoice-categorizer/internal/core/usecase"
	"github.com/kirillkom/invoice-categorizer/internal/infrastructure/prediction"
	"github.com/kirillkom/invoice-categorizer/internal/infrastructure/resilience"
	"github.com/kirillkom/invoice-categorizer/internal/observability/metrics"
)

const ServiceName = "invoice-categorizer"

type App struct {
	Config config.Config

	Metrics      *metrics.HTTPServerMetrics
	CategorizeUC ports.Categorizer
	Handler      http.Handler
}

func New(cfg config.Config) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics(ServiceName)

	predictor := prediction.New(prediction.Config{
		BaseURL:    cfg.PredictionAPIBaseURL,
		Timeout:    cfg.PredictionTimeout,
		Resilience: resilienceConfig(cfg),
		Observer:   httpMetrics,
	})
	categorizeUC := usecase.NewCategorizeUseCase(predictor, httpMetrics)

	router, err := httpadapter.NewRouter(cfg, categorizeUC, httpMetrics)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:       cfg,
		Metrics:      httpMetrics,
		CategorizeUC: categorizeUC,
		Handler:      router.Handler(),
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.PredictionRetryMaxAttempts
	out.RetryInitialBackoff = cfg.PredictionRetryInitialBackoff
	out.RetryMaxBackoff = cfg.PredictionRetryMaxBackoff
	out.BreakerEnabled = cfg.PredictionBreakerEnabled
	if cfg.PredictionBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.PredictionBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.PredictionBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.PredictionBreakerOpenTimeout
	return out
}
