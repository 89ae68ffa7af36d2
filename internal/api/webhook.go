package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/internal/delivery"
	"github.com/hackgods/patient-appointment-agent/internal/events"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
	"github.com/hackgods/patient-appointment-agent/internal/metrics"
	redisclient "github.com/hackgods/patient-appointment-agent/internal/redis"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

const maxWebhookBody = 1 << 20

var errUnsupportedAIEvent = errors.New("unsupported AI event type")

// ResultDeliverer sends a function call envelope back to the conversation.
type ResultDeliverer interface {
	Deliver(ctx context.Context, to, functionName string, envelope appointment.Response) error
}

// WebhookHandler receives messaging platform events.
type WebhookHandler struct {
	dispatcher *Dispatcher
	deliverer  ResultDeliverer
	dedup      redisclient.EventDeduper
	metrics    *metrics.AgentMetrics
	logger     *logging.Logger
}

type WebhookConfig struct {
	Dispatcher *Dispatcher
	Deliverer  ResultDeliverer
	Dedup      redisclient.EventDeduper
	Metrics    *metrics.AgentMetrics
	Logger     *logging.Logger
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Dispatcher == nil {
		panic("api: dispatcher required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		dispatcher: cfg.Dispatcher,
		deliverer:  cfg.Deliverer,
		dedup:      cfg.Dedup,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Options answers the CloudEvents abuse protection handshake.
func (h *WebhookHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WebHook-Allowed-Rate", "*")
	w.Header().Set("WebHook-Allowed-Origin", r.Header.Get("WebHook-Request-Origin"))
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) Post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read request body")
		return
	}

	switch r.Header.Get(events.HeaderEventType) {
	case events.SubscriptionValidation:
		h.handleValidation(w, body)
	case events.Notification:
		if events.IsCloudEvent(body) {
			h.handleCloudEvent(w, body)
			return
		}
		h.handleGridEvents(r.Context(), w, body)
	default:
		writeError(w, http.StatusBadRequest, "unsupported_event_type",
			fmt.Sprintf("%s header must be %s or %s", events.HeaderEventType, events.SubscriptionValidation, events.Notification))
	}
}

func (h *WebhookHandler) handleValidation(w http.ResponseWriter, body []byte) {
	evs, err := events.ParseGridEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_events", err.Error())
		return
	}
	code, err := events.ValidationCode(evs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_validation_event", err.Error())
		return
	}

	h.metrics.ObserveWebhookEvent(events.SubscriptionValidation, "processed")
	h.logger.Info("event subscription validated", "event_id", evs[0].ID)
	writeJSON(w, http.StatusOK, ValidationResponse{ValidationResponse: code})
}

func (h *WebhookHandler) handleCloudEvent(w http.ResponseWriter, body []byte) {
	ev, err := events.ParseCloudEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_events", err.Error())
		return
	}

	h.metrics.ObserveWebhookEvent(events.TypeLabel(ev.Type), "processed")
	h.logger.Info("cloud event received", "event_id", ev.ID, "event_type", ev.Type, "subject", ev.Subject)
	writeJSON(w, http.StatusOK, WebhookResponse{Results: []EventResult{{EventID: ev.ID, EventType: ev.Type}}})
}

func (h *WebhookHandler) handleGridEvents(ctx context.Context, w http.ResponseWriter, body []byte) {
	evs, err := events.ParseGridEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_events", err.Error())
		return
	}

	results := make([]EventResult, 0, len(evs))
	for _, ev := range evs {
		results = append(results, h.handleEvent(ctx, ev))
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Results: results})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, ev events.GridEvent) EventResult {
	res := EventResult{EventID: ev.ID, EventType: ev.EventType}
	log := h.logger.With("event_id", ev.ID, "event_type", ev.EventType)

	token := ""
	if h.dedup != nil && ev.ID != "" {
		t, err := h.dedup.Claim(ctx, ev.ID)
		switch {
		case errors.Is(err, redisclient.ErrEventAlreadyProcessed):
			res.Skipped = true
			h.metrics.ObserveWebhookEvent(events.TypeLabel(ev.EventType), "duplicate")
			log.Info("duplicate event skipped")
			return res
		case err != nil:
			log.Warn("event de-duplication unavailable", "error", err)
		default:
			token = t
		}
	}

	if err := h.route(ctx, ev, &res, log); err != nil {
		res.Error = err.Error()
		h.metrics.ObserveWebhookEvent(events.TypeLabel(ev.EventType), "failed")
		log.Error("event processing failed", "error", err)
		if token != "" {
			if err := h.dedup.Release(ctx, ev.ID, token); err != nil {
				log.Warn("release event claim", "error", err)
			}
		}
		return res
	}

	status := "processed"
	if res.Ignored {
		status = "ignored"
	}
	h.metrics.ObserveWebhookEvent(events.TypeLabel(ev.EventType), status)
	return res
}

func (h *WebhookHandler) route(ctx context.Context, ev events.GridEvent, res *EventResult, log *logging.Logger) error {
	switch ev.Kind() {
	case events.TypeAdvancedMessageReceived:
		msg, err := events.DecodeData[events.MessageReceived](ev)
		if err != nil {
			return err
		}
		res.EscalationRequested = msg.EscalationRequested()
		log.Info("customer message received",
			"from", msg.From,
			"to", msg.To,
			"channel_type", msg.ChannelType,
			"content", msg.Content,
			"escalation_requested", res.EscalationRequested,
		)
		return nil

	case events.TypeAdvancedMessageDeliveryStatus:
		log.Debug("delivery status updated")
		return nil

	case events.TypeExperimental:
		return h.routeAIEvent(ctx, ev, res, log)

	default:
		res.Ignored = true
		log.Debug("event type ignored")
		return nil
	}
}

func (h *WebhookHandler) routeAIEvent(ctx context.Context, ev events.GridEvent, res *EventResult, log *logging.Logger) error {
	kind, err := events.AIEventKind(ev)
	if err != nil {
		return err
	}

	switch kind {
	case events.AIFunctionCallRequested:
		call, err := events.DecodeData[events.FunctionCallRequested](ev)
		if err != nil {
			return err
		}
		res.FunctionName = call.FunctionName

		envelope, err := h.dispatcher.Dispatch(ctx, call.FunctionName, call.ArgumentsText())
		if errors.Is(err, functions.ErrUnknownFunction) {
			return err
		}
		res.Response = &envelope
		res.Delivered = h.deliver(ctx, call.To, call.FunctionName, envelope, log)
		return nil

	case events.AIGeneratedMessageSent:
		msg, err := events.DecodeData[events.MessageSent](ev)
		if err != nil {
			return err
		}
		log.Info("AI message sent", "to", msg.To, "content", msg.Content)
		return nil

	case events.AIDisengaged:
		d, err := events.DecodeData[events.Disengaged](ev)
		if err != nil {
			return err
		}
		if err := d.Reason.Validate(); err != nil {
			log.Warn("AI disengaged", "to", d.To, "error", err)
			return nil
		}
		log.Info("AI disengaged", "to", d.To, "reason", string(d.Reason.Canonical()))
		return nil

	default:
		return fmt.Errorf("%w: %q", errUnsupportedAIEvent, string(kind))
	}
}

func (h *WebhookHandler) deliver(ctx context.Context, to, functionName string, envelope appointment.Response, log *logging.Logger) bool {
	if h.deliverer == nil {
		return false
	}
	err := h.deliverer.Deliver(ctx, to, functionName, envelope)
	switch {
	case errors.Is(err, delivery.ErrNotConfigured):
		log.Debug("function result delivery not configured", "function", functionName)
		return false
	case err != nil:
		log.Error("deliver function result", "function", functionName, "error", err)
		return false
	}
	return true
}
