package api

import (
	"github.com/hackgods/patient-appointment-agent/internal/appointment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ValidationResponse answers a subscription validation handshake.
type ValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// WebhookResponse reports what happened to each event of a delivery.
type WebhookResponse struct {
	Results []EventResult `json:"results"`
}

type EventResult struct {
	EventID             string                `json:"eventId"`
	EventType           string                `json:"eventType"`
	FunctionName        string                `json:"functionName,omitempty"`
	Response            *appointment.Response `json:"response,omitempty"`
	Delivered           bool                  `json:"delivered,omitempty"`
	EscalationRequested bool                  `json:"escalationRequested,omitempty"`
	Skipped             bool                  `json:"skipped,omitempty"`
	Ignored             bool                  `json:"ignored,omitempty"`
	Error               string                `json:"error,omitempty"`
}
