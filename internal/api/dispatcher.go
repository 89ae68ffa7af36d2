package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/internal/audit"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
	"github.com/hackgods/patient-appointment-agent/internal/metrics"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

// MsgInvalidArguments is returned to the AI agent when no usable argument
// object could be read from a function call.
const MsgInvalidArguments = "Function arguments could not be read. Provide a single JSON object containing all required parameters."

// CallRecorder persists dispatched calls.
type CallRecorder interface {
	Record(ctx context.Context, call audit.Call) error
}

// Dispatcher runs function calls through the dispatch table and records
// each call in the log, the audit table and metrics.
type Dispatcher struct {
	table    *functions.Table
	registry *appointment.Registry
	calls    CallRecorder
	metrics  *metrics.AgentMetrics
	logger   *logging.Logger
}

type DispatcherConfig struct {
	Table    *functions.Table
	Registry *appointment.Registry
	Calls    CallRecorder
	Metrics  *metrics.AgentMetrics
	Logger   *logging.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Table == nil {
		panic("api: function table required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		table:    cfg.Table,
		registry: cfg.Registry,
		calls:    cfg.Calls,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Dispatch invokes name with the raw argument text. Unknown functions return
// functions.ErrUnknownFunction and no envelope. Unreadable arguments return
// functions.ErrInvalidArguments together with an envelope the agent can act on.
func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string) (appointment.Response, error) {
	start := time.Now()
	resp, err := d.table.Invoke(name, arguments)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, functions.ErrUnknownFunction):
		d.metrics.ObserveFunctionCall(name, metrics.OutcomeUnknownFunction, elapsed)
		d.logger.Warn("unknown function requested", "function", name)
		return appointment.Response{}, err
	case errors.Is(err, functions.ErrInvalidArguments):
		outcome = metrics.OutcomeInvalidArguments
		resp = appointment.Response{Error: MsgInvalidArguments}
		d.logger.Warn("function arguments rejected", "function", name, "error", err)
	case resp.Failed():
		outcome = metrics.OutcomeErrorResponse
	}

	d.metrics.ObserveFunctionCall(name, outcome, elapsed)
	if d.registry != nil {
		d.metrics.SetRegisteredPatients(d.registry.Len())
	}
	d.logger.Info("function dispatched",
		"function", name,
		"outcome", outcome,
		"duration", elapsed,
		"error_response", resp.Error,
	)
	d.record(ctx, name, arguments, resp, elapsed)

	return resp, err
}

func (d *Dispatcher) record(ctx context.Context, name, arguments string, resp appointment.Response, elapsed time.Duration) {
	if d.calls == nil {
		return
	}
	result, err := json.Marshal(resp.Result)
	if err != nil {
		d.logger.Error("encode function result for audit", "function", name, "error", err)
		result = nil
	}
	call := audit.Call{
		FunctionName:  name,
		Arguments:     arguments,
		ErrorResponse: resp.Error,
		Result:        result,
		Duration:      elapsed,
		CreatedAt:     time.Now().UTC(),
	}
	if err := d.calls.Record(ctx, call); err != nil {
		d.logger.Error("audit function call", "function", name, "error", err)
	}
}
