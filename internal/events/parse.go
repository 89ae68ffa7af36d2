package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoEvents         = errors.New("no events in delivery")
	ErrNoValidationCode = errors.New("validation code missing")
	ErrUnknownReason    = errors.New("unknown disengagement reason")
)

// IsCloudEvent reports whether body is a single CloudEvents object.
// Event Grid deliveries are arrays and never match.
func IsCloudEvent(body []byte) bool {
	var probe struct {
		SpecVersion string `json:"specversion"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.SpecVersion != ""
}

func ParseCloudEvent(body []byte) (CloudEvent, error) {
	var ev CloudEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return CloudEvent{}, fmt.Errorf("decode cloud event: %w", err)
	}
	return ev, nil
}

func ParseGridEvents(body []byte) ([]GridEvent, error) {
	var evs []GridEvent
	if err := json.Unmarshal(body, &evs); err != nil {
		return nil, fmt.Errorf("decode grid events: %w", err)
	}
	return evs, nil
}

// ValidationCode returns the code of the first event of a subscription
// validation delivery.
func ValidationCode(evs []GridEvent) (string, error) {
	if len(evs) == 0 {
		return "", ErrNoEvents
	}
	var data ValidationData
	if err := json.Unmarshal(evs[0].Data, &data); err != nil {
		return "", fmt.Errorf("decode validation data: %w", err)
	}
	if data.ValidationCode == "" {
		return "", ErrNoValidationCode
	}
	return data.ValidationCode, nil
}

// Kind returns the lowercase event type used for routing.
func (e GridEvent) Kind() string {
	return strings.ToLower(e.EventType)
}

// TypeLabel maps an event type to a bounded label. Unknown types collapse to
// TypeOther since webhook callers choose the type freely.
func TypeLabel(eventType string) string {
	switch t := strings.ToLower(eventType); t {
	case TypeAdvancedMessageReceived, TypeAdvancedMessageDeliveryStatus, TypeExperimental:
		return t
	}
	return TypeOther
}

// DecodeData unmarshals the event payload into T.
func DecodeData[T any](e GridEvent) (T, error) {
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	return out, nil
}

// AIEventKind reads openAiEventType from an experimental event.
func AIEventKind(e GridEvent) (AIEventType, error) {
	var probe struct {
		OpenAIEventType AIEventType `json:"openAiEventType"`
	}
	if err := json.Unmarshal(e.Data, &probe); err != nil {
		return "", fmt.Errorf("decode ai event type: %w", err)
	}
	return probe.OpenAIEventType, nil
}

// ArgumentsText returns the function parameters as text for extraction. A
// JSON string is unquoted; an object is returned verbatim.
func (f FunctionCallRequested) ArgumentsText() string {
	raw := bytes.TrimSpace(f.FunctionParameters)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// ChannelID parses the channel registration id.
func (c Channel) ChannelID() (uuid.UUID, error) {
	return uuid.Parse(c.ChannelRegistrationID)
}

// EscalationRequested reports whether the customer asked for a human.
func (m MessageReceived) EscalationRequested() bool {
	return strings.Contains(strings.ToLower(m.Content), "escalate")
}

// Validate checks the reason is one of the known values.
func (r DisengagementReason) Validate() error {
	switch r {
	case DisengagementUnknown, DisengagementText, DisengagementConversationExpired,
		DisengagementEscalatedToHuman, DisengagementConversationCompleted:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownReason, string(r))
}

// Canonical maps the wire alias DisengagementText to DisengagementUnknown.
func (r DisengagementReason) Canonical() DisengagementReason {
	if r == DisengagementText {
		return DisengagementUnknown
	}
	return r
}

// NewFunctionCallEvent builds an experimental grid event requesting
// functionName with params encoded as a JSON object.
func NewFunctionCallEvent(channelID uuid.UUID, to, functionName string, params any) (GridEvent, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return GridEvent{}, fmt.Errorf("encode function parameters: %w", err)
	}
	data, err := json.Marshal(FunctionCallRequested{
		Channel: Channel{
			ChannelRegistrationID: channelID.String(),
			To:                    to,
			ReceivedTimestamp:     time.Now().UTC(),
		},
		OpenAIEventType:    AIFunctionCallRequested,
		FunctionName:       functionName,
		FunctionParameters: rawParams,
	})
	if err != nil {
		return GridEvent{}, fmt.Errorf("encode function call: %w", err)
	}
	return GridEvent{
		ID:          uuid.NewString(),
		Subject:     "conversation/" + channelID.String(),
		EventType:   TypeExperimental,
		EventTime:   time.Now().UTC(),
		Data:        data,
		DataVersion: "1.0",
	}, nil
}
