package runtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loqalabs/loqa-sing/internal/config"
)

func TestHealthAndReadinessBeforeStart(t *testing.T) {
	rt := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	rt.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	rt.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503 before start, got %d", rec.Code)
	}
}
