package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for function calls.
const (
	OutcomeOK               = "ok"
	OutcomeErrorResponse    = "error_response"
	OutcomeInvalidArguments = "invalid_arguments"
	OutcomeUnknownFunction  = "unknown_function"
)

// AgentMetrics exposes counters/histograms for function dispatch and webhooks.
type AgentMetrics struct {
	functionCalls      *prometheus.CounterVec
	functionDuration   *prometheus.HistogramVec
	webhookEvents      *prometheus.CounterVec
	registeredPatients prometheus.Gauge
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		functionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patient_agent",
			Name:      "function_calls_total",
			Help:      "Total AI function calls by outcome",
		}, []string{"function", "outcome"}),
		functionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "patient_agent",
			Name:      "function_call_duration_seconds",
			Help:      "Latency of AI function calls including argument extraction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patient_agent",
			Name:      "webhook_events_total",
			Help:      "Total inbound webhook events",
		}, []string{"event_type", "status"}),
		registeredPatients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "patient_agent",
			Name:      "registered_patients",
			Help:      "Patients currently held in the appointment registry",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.functionCalls, m.functionDuration, m.webhookEvents, m.registeredPatients)
	return m
}

func (m *AgentMetrics) ObserveFunctionCall(function, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.functionCalls.WithLabelValues(function, outcome).Inc()
	m.functionDuration.WithLabelValues(function).Observe(elapsed.Seconds())
}

func (m *AgentMetrics) ObserveWebhookEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *AgentMetrics) SetRegisteredPatients(n int) {
	if m == nil {
		return
	}
	m.registeredPatients.Set(float64(n))
}
