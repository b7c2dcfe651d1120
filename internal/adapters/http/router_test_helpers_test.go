package httpadapter

import (
	"context"
	"net/http"
	"testing"

	"github.com/kirillkom/invoice-categorizer/internal/config"
	"github.com/kirillkom/invoice-categorizer/internal/core/ports"
)

type categorizerFake struct {
	calls    int
	category string
	err      error
}

func (f *categorizerFake) Categorize(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.category, nil
}

type panicCategorizer struct{}

func (panicCategorizer) Categorize(context.Context, string) (string, error) {
	panic("boom")
}

func newTestHandler(t *testing.T, cfg config.Config, categorizer ports.Categorizer) http.Handler {
	t.Helper()
	router, err := NewRouter(cfg, categorizer, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}
