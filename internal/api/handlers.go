package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/patient-appointment-agent/internal/audit"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
)

const (
	maxArgumentsBody  = 64 << 10
	defaultCallsLimit = 50
	maxCallsLimit     = 500
)

// CallLister reads back recorded calls.
type CallLister interface {
	Recent(ctx context.Context, limit int) ([]audit.Call, error)
}

func listFunctionsHandler(table *functions.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, table.ListCallableFunctions())
	}
}

func functionSchemasHandler(table *functions.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, table.Schemas())
	}
}

func invokeFunctionHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxArgumentsBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read request body")
			return
		}

		resp, err := d.Dispatch(r.Context(), name, string(body))
		if err != nil {
			handleDispatchError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, functions.ErrUnknownFunction):
		writeError(w, http.StatusNotFound, "unknown_function", err.Error())
	case errors.Is(err, functions.ErrInvalidArguments):
		writeError(w, http.StatusBadRequest, "invalid_arguments", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func recentCallsHandler(calls CallLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls == nil {
			writeError(w, http.StatusServiceUnavailable, "audit_disabled", "POSTGRES_DSN is not configured")
			return
		}

		limit := defaultCallsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			limit = min(n, maxCallsLimit)
		}

		list, err := calls.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if list == nil {
			list = []audit.Call{}
		}

		writeJSON(w, http.StatusOK, list)
	}
}
