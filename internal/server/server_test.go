package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/ingest"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHealth bool

func (h stubHealth) Healthy(context.Context) bool { return bool(h) }

type stubProgress ingest.StatusSnapshot

func (p stubProgress) Snapshot() ingest.StatusSnapshot { return ingest.StatusSnapshot(p) }

func newTestServer(health HealthChecker) *Server {
	return New(&Config{Port: "8089"}, health, nil).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupProgress("/progress", stubProgress{
			RunID:     "9b2f6c8e-3a55-4c54-9d61-0b1f3f3b6a01",
			State:     "running",
			Persisted: 1500,
			Batches:   3,
		})
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health HealthChecker
		want   int
	}{
		{name: "healthy", health: stubHealth(true), want: http.StatusOK},
		{name: "unhealthy", health: stubHealth(false), want: http.StatusServiceUnavailable},
		{name: "default checker", health: nil, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(tt.health), "/health")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestProgress(t *testing.T) {
	rec := serve(newTestServer(stubHealth(true)), "/progress")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "running", got["state"])
	assert.Equal(t, float64(1500), got["persisted"])
	assert.Equal(t, float64(3), got["batches"])
	assert.Equal(t, "9b2f6c8e-3a55-4c54-9d61-0b1f3f3b6a01", got["run_id"])
}

func TestErrorHandler(t *testing.T) {
	s := newTestServer(stubHealth(true))
	s.Echo.GET("/invalid", func(c echo.Context) error {
		return apperr.NewValidation("bad limit")
	})

	s.Echo.GET("/cancelled", func(c echo.Context) error {
		return apperr.NewCancellation(nil)
	})
	s.Echo.GET("/broken", func(c echo.Context) error {
		return apperr.NewCursor("fetch", errors.New("connection reset"))
	})

	rec := serve(s, "/invalid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad limit","kind":"validation"}`, rec.Body.String())

	rec = serve(s, "/cancelled")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(s, "/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	rec = serve(s, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := New(&Config{Port: "0"}, nil, nil).SetupHealthChecks("/health")
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Echo.ListenerAddr() != nil }, timeout, tick)

	resp, err := http.Get("http://" + s.Echo.ListenerAddr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
