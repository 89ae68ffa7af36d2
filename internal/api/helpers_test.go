package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/internal/audit"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
	"github.com/hackgods/patient-appointment-agent/internal/metrics"
	redisclient "github.com/hackgods/patient-appointment-agent/internal/redis"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

const janeArgs = `{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678"}`

type delivered struct {
	to           string
	functionName string
	envelope     appointment.Response
}

type fakeDeliverer struct {
	mu    sync.Mutex
	err   error
	calls []delivered
}

func (f *fakeDeliverer) Deliver(_ context.Context, to, functionName string, envelope appointment.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, delivered{to: to, functionName: functionName, envelope: envelope})
	return f.err
}

type fakeCalls struct {
	mu      sync.Mutex
	calls   []audit.Call
	err     error
	limitAt int
}

func (f *fakeCalls) Record(_ context.Context, call audit.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeCalls) Recent(_ context.Context, limit int) ([]audit.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limitAt = limit
	return f.calls, f.err
}

type testEnv struct {
	router    http.Handler
	registry  *appointment.Registry
	reg       *prometheus.Registry
	deliverer *fakeDeliverer
	calls     *fakeCalls
}

type envOption func(*WebhookConfig)

func withDedup(d redisclient.EventDeduper) envOption {
	return func(c *WebhookConfig) { c.Dedup = d }
}

func newTestEnv(t *testing.T, enabled []string, opts ...envOption) *testEnv {
	t.Helper()
	logger := logging.NewWithWriter(io.Discard, "error")
	registry := appointment.NewRegistry()
	svc := appointment.NewService(registry, appointment.DemoAvailability{},
		appointment.WithClock(func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }),
		appointment.WithLogger(logger),
	)
	table, err := functions.NewTable(svc, enabled)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewAgentMetrics(reg)
	calls := &fakeCalls{}
	deliverer := &fakeDeliverer{}

	dispatcher := NewDispatcher(DispatcherConfig{
		Table:    table,
		Registry: registry,
		Calls:    calls,
		Metrics:  m,
		Logger:   logger,
	})
	webhookCfg := WebhookConfig{
		Dispatcher: dispatcher,
		Deliverer:  deliverer,
		Metrics:    m,
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&webhookCfg)
	}

	router := NewRouter(RouterConfig{
		Table:      table,
		Dispatcher: dispatcher,
		Webhook:    NewWebhookHandler(webhookCfg),
		Calls:      calls,
		Gatherer:   reg,
		Logger:     logger,
		Env:        "test",
		Version:    "v0.0.0-test",
	})

	return &testEnv{router: router, registry: registry, reg: reg, deliverer: deliverer, calls: calls}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func httptestDo(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
