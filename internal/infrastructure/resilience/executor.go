package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor runs a single named downstream operation under the configured
// retry and circuit breaker policy.
type Executor[T any] struct {
	operation  string
	cfg        Config
	classifier ErrorClassifier
	breaker    *gobreaker.CircuitBreaker[T]
}

func NewExecutor[T any](operation string, cfg Config, classifier ErrorClassifier) *Executor[T] {
	if operation == "" {
		operation = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	e := &Executor[T]{
		operation:  operation,
		cfg:        cfg.normalize(),
		classifier: classifier,
	}
	if e.cfg.BreakerEnabled {
		e.breaker = e.newBreaker()
	}
	return e
}

func (e *Executor[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if fn == nil {
		var zero T
		return zero, fmt.Errorf("resilience: operation callback is nil")
	}
	if e.breaker == nil {
		return e.executeWithRetry(ctx, fn)
	}
	return e.breaker.Execute(func() (T, error) {
		return e.executeWithRetry(ctx, fn)
	})
}

func (e *Executor[T]) executeWithRetry(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	backoff := e.cfg.RetryInitialBackoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if attempt >= e.cfg.RetryMaxAttempts || !e.classifier(err).Retryable {
			return zero, err
		}

		wait := min(backoff, e.cfg.RetryMaxBackoff)
		slog.WarnContext(ctx, "retry_attempt",
			"operation", e.operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}

		backoff = min(time.Duration(float64(backoff)*e.cfg.RetryMultiplier), e.cfg.RetryMaxBackoff)
	}
}

func (e *Executor[T]) newBreaker() *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        e.operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !e.classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) ErrorClassification {
	return ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
