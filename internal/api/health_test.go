package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}

func readiness(t *testing.T, h *HealthHandler) (int, ReadinessResponse) {
	t.Helper()
	rec := httptestDo(http.HandlerFunc(h.Readiness), http.MethodGet, "/health/ready")
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, nil, "test", "v1")
	rec := httptestDo(http.HandlerFunc(h.Liveness), http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"v1","env":"test"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	down := fakePinger{err: errors.New("connection refused")}

	tests := []struct {
		name       string
		postgres   Pinger
		redis      Pinger
		wantCode   int
		wantStatus string
		wantDeps   map[string]string
	}{
		{"all disabled", nil, nil, http.StatusOK, "ok", map[string]string{"postgres": "disabled", "redis": "disabled"}},
		{"all up", fakePinger{}, fakePinger{}, http.StatusOK, "ok", map[string]string{"postgres": "ok", "redis": "ok"}},
		{"redis down", fakePinger{}, down, http.StatusOK, "degraded", map[string]string{"postgres": "ok", "redis": "down"}},
		{"postgres down", down, nil, http.StatusServiceUnavailable, "error", map[string]string{"postgres": "down", "redis": "disabled"}},
		{"both down", down, down, http.StatusServiceUnavailable, "error", map[string]string{"postgres": "down", "redis": "down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := readiness(t, NewHealthHandler(tt.postgres, tt.redis, "test", "v1"))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantDeps, resp.Dependencies)
		})
	}
}

func TestRouterHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"disabled"`)

	rec = env.do(t, http.MethodGet, "/health/live", "", map[string]string{"X-Request-ID": "req-123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
