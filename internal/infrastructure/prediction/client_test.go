package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
	"github.com/kirillkom/invoice-categorizer/internal/infrastructure/resilience"
)

type callObserverFake struct {
	statuses []string
}

func (f *callObserverFake) ObservePredictionCall(status string, _ time.Duration) {
	f.statuses = append(f.statuses, status)
}

func TestPredictPostsDescriptionToPredictRoute(t *testing.T) {
	var capturedPath, capturedContentType, capturedDescription string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedContentType = r.Header.Get("Content-Type")
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		capturedDescription = payload["description"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":"Test Category"}`))
	}))
	defer server.Close()

	observer := &callObserverFake{}
	client := New(Config{BaseURL: server.URL + "/", Timeout: time.Second, Observer: observer})
	prediction, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "Test Invoice Item"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if prediction.Category != "Test Category" {
		t.Fatalf("expected Test Category, got %q", prediction.Category)
	}
	if capturedPath != "/predict/" {
		t.Fatalf("expected /predict/, got %q", capturedPath)
	}
	if capturedContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", capturedContentType)
	}
	if capturedDescription != "Test Invoice Item" {
		t.Fatalf("unexpected forwarded description: %q", capturedDescription)
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != "200" {
		t.Fatalf("expected one observed 200 call, got %v", observer.statuses)
	}
}

func TestPredictReturnsDownstreamStatusWithRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error from Python API"))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "Error Item"})
	statusErr, ok := domain.AsDownstreamStatus(err)
	if !ok {
		t.Fatalf("expected downstream status error, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", statusErr.StatusCode)
	}
	if statusErr.Body != "Internal Server Error from Python API" {
		t.Fatalf("unexpected body: %q", statusErr.Body)
	}
}

func TestPredictKeepsClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"This is a simulated error from FastAPI."}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "error"})
	statusErr, ok := domain.AsDownstreamStatus(err)
	if !ok || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 downstream status error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("status errors must not be marked temporary")
	}
}

func TestPredictRejectsMalformedResponses(t *testing.T) {
	for _, body := range []string{`not json`, `{"label":"x"}`, `{"category":null}`, `null`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		client := New(Config{BaseURL: server.URL})
		_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
		server.Close()
		if !domain.IsKind(err, domain.ErrMalformedResponse) {
			t.Fatalf("expected malformed response for %q, got %v", body, err)
		}
	}
}

func TestPredictReturnsEmptyCategoryUnchanged(t *testing.T) {
	for _, category := range []string{"", "  "} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"category": category})
		}))

		client := New(Config{BaseURL: server.URL})
		prediction, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
		server.Close()
		if err != nil {
			t.Fatalf("Predict() error for category %q = %v", category, err)
		}
		if prediction.Category != category {
			t.Fatalf("expected category %q, got %q", category, prediction.Category)
		}
	}
}

func TestPredictDoesNotFollowRedirects(t *testing.T) {
	var predictCalls, redirectedCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/predict/", func(w http.ResponseWriter, r *http.Request) {
		predictCalls.Add(1)
		http.Redirect(w, r, "/elsewhere/", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/elsewhere/", func(w http.ResponseWriter, _ *http.Request) {
		redirectedCalls.Add(1)
		_, _ = w.Write([]byte(`{"category":"Redirected"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	observer := &callObserverFake{}
	client := New(Config{BaseURL: server.URL, Observer: observer})
	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	statusErr, ok := domain.AsDownstreamStatus(err)
	if !ok {
		t.Fatalf("expected downstream status error, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", statusErr.StatusCode)
	}
	if predictCalls.Load() != 1 || redirectedCalls.Load() != 0 {
		t.Fatalf("expected one call and no redirect, got predict=%d redirected=%d", predictCalls.Load(), redirectedCalls.Load())
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != "307" {
		t.Fatalf("expected one observed 307 call, got %v", observer.statuses)
	}
}

func TestPredictReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	observer := &callObserverFake{}
	client := New(Config{BaseURL: url, Timeout: time.Second, Observer: observer})
	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if _, ok := domain.AsDownstreamStatus(err); ok {
		t.Fatalf("transport failure must not look like a status error: %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("transport failure must not be marked temporary without a breaker: %v", err)
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != "error" {
		t.Fatalf("expected observed transport error, got %v", observer.statuses)
	}
}

func TestPredictHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"category":"late"}`))
	}))
	defer server.Close()
	defer close(release)

	client := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestPredictMakesSingleCallByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, _ = client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one downstream call, got %d", calls.Load())
	}
}

func TestPredictRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"category":"Travel"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Resilience: resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}})
	prediction, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "taxi"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if prediction.Category != "Travel" || calls.Load() != 2 {
		t.Fatalf("expected Travel after 2 calls, got %q after %d", prediction.Category, calls.Load())
	}
}

func TestPredictMarksOpenCircuitTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Resilience: resilience.Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}})

	_, err := client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	if _, ok := domain.AsDownstreamStatus(err); !ok {
		t.Fatalf("expected first call to surface status error, got %v", err)
	}
	_, err = client.Predict(context.Background(), domain.PredictionRequest{Description: "item"})
	if !domain.IsKind(err, domain.ErrTemporary) || !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected temporary circuit open error, got %v", err)
	}
}
