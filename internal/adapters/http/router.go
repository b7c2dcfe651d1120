package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/invoice-categorizer/internal/config"
	"github.com/kirillkom/invoice-categorizer/internal/core/domain"
	"github.com/kirillkom/invoice-categorizer/internal/core/ports"
	"github.com/kirillkom/invoice-categorizer/internal/observability/metrics"
)

const (
	healthMessage          = "Invoice Identification Service is up and running!"
	defaultMaxRequestBytes = 1 << 20
)

type Router struct {
	categorizer ports.Categorizer
	metrics     *metrics.HTTPServerMetrics
	apiDoc      *openapi3.T

	maxDescriptionBytes int64
	maxInFlight         int
	queueWait           time.Duration
}

func NewRouter(
	cfg config.Config,
	categorizer ports.Categorizer,
	httpMetrics *metrics.HTTPServerMetrics,
) (*Router, error) {
	apiDoc, err := loadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}

	maxBytes := cfg.MaxDescriptionBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBytes
	}
	return &Router{
		categorizer:         categorizer,
		metrics:             httpMetrics,
		apiDoc:              apiDoc,
		maxDescriptionBytes: maxBytes,
		maxInFlight:         cfg.APIMaxInFlight,
		queueWait:           cfg.APIQueueWait,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.handle(rt.index))
	mux.HandleFunc("GET /healthz", rt.handle(rt.healthz))
	mux.HandleFunc("POST /api/categorize", rt.handle(rt.categorize))
	mux.HandleFunc("GET /openapi.yaml", rt.handle(rt.openAPIYAML))
	mux.HandleFunc("GET /openapi.json", rt.handle(rt.openAPIJSON))

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	// Recovery sits inside the metrics layer so recovered panics are counted.
	handler := recoverMiddleware(unmatchedRoutes(mux))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.queueWait)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// routeError is a request no registered pattern accepts.
type routeError struct {
	status int
	method string
	path   string
}

func (e *routeError) Error() string {
	return fmt.Sprintf("no route for %s %s: %s", e.method, e.path, http.StatusText(e.status))
}

// unmatchedRoutes answers the mux's own 404 and 405 with the structured
// error body. The Allow header of a 405 is kept.
func unmatchedRoutes(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallback, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		recorded := &discardWriter{header: make(http.Header), status: http.StatusNotFound}
		fallback.ServeHTTP(recorded, r)
		if allow := recorded.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		writeError(w, r, &routeError{status: recorded.status, method: r.Method, path: r.URL.Path})
	})
}

// discardWriter records the status a fallback handler picks and drops its body.
type discardWriter struct {
	header http.Header
	status int
}

func (w *discardWriter) Header() http.Header         { return w.header }
func (w *discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *discardWriter) WriteHeader(status int)      { w.status = status }

// handlerFunc is an endpoint that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle routes every endpoint error through writeError so each failed
// request gets exactly one error body.
func (rt *Router) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func (rt *Router) index(w http.ResponseWriter, _ *http.Request) error {
	writeText(w, http.StatusOK, healthMessage)
	return nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

// categorize takes the raw request body as the item description and answers
// with the category as plain text.
func (rt *Router) categorize(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.maxDescriptionBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.WrapError(domain.ErrInvalidInput, "read description", fmt.Errorf("body exceeds %d bytes", maxErr.Limit))
		}
		return domain.WrapError(domain.ErrInvalidInput, "read description", err)
	}

	category, err := rt.categorizer.Categorize(r.Context(), string(body))
	if err != nil {
		return err
	}
	writeText(w, http.StatusOK, category)
	return nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
