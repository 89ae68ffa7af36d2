package events

import (
	"encoding/json"
	"time"
)

// HeaderEventType carries the delivery kind of a webhook request.
const HeaderEventType = "aeg-event-type"

// Delivery kinds sent in HeaderEventType.
const (
	SubscriptionValidation = "SubscriptionValidation"
	Notification           = "Notification"
)

// Event types emitted by the messaging platform, compared lowercase.
const (
	TypeAdvancedMessageReceived       = "microsoft.communication.advancedmessagereceived"
	TypeAdvancedMessageDeliveryStatus = "microsoft.communication.advancedmessagedeliverystatusupdated"
	TypeExperimental                  = "microsoft.communication.experimentalevent"

	// TypeOther labels any event type not listed above.
	TypeOther = "other"
)

// AIEventType distinguishes the payloads carried by TypeExperimental events.
type AIEventType string

const (
	AIFunctionCallRequested AIEventType = "AIFunctionCallRequested"
	AIGeneratedMessageSent  AIEventType = "AIGeneratedMessageSent"
	AIDisengaged            AIEventType = "AIDisengaged"
)

// DisengagementReason explains why the AI agent left a conversation.
type DisengagementReason string

const (
	DisengagementUnknown               DisengagementReason = "unknown"
	DisengagementConversationExpired   DisengagementReason = "conversationExpired"
	DisengagementEscalatedToHuman      DisengagementReason = "escalatedToHuman"
	DisengagementConversationCompleted DisengagementReason = "conversationCompleted"

	// DisengagementText is the platform's wire value for an unknown reason.
	DisengagementText DisengagementReason = "text"
)

// GridEvent is one element of an Event Grid schema delivery.
type GridEvent struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic,omitempty"`
	Subject     string          `json:"subject"`
	EventType   string          `json:"eventType"`
	EventTime   time.Time       `json:"eventTime"`
	Data        json.RawMessage `json:"data"`
	DataVersion string          `json:"dataVersion,omitempty"`
}

// CloudEvent is a single CloudEvents 1.0 schema delivery.
type CloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        string          `json:"type"`
	Subject     string          `json:"subject,omitempty"`
	Time        *time.Time      `json:"time,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// ValidationData is the payload of a subscription validation event.
type ValidationData struct {
	ValidationCode string `json:"validationCode"`
	ValidationURL  string `json:"validationUrl,omitempty"`
}

// Channel identifies the conversation an AI event belongs to.
type Channel struct {
	ChannelRegistrationID string    `json:"channelRegistrationId"`
	To                    string    `json:"to"`
	ChannelType           string    `json:"channelType,omitempty"`
	ReceivedTimestamp     time.Time `json:"receivedTimestamp"`
}

// FunctionCallRequested asks the service to run a callable function.
// FunctionParameters is either a JSON object or a JSON string holding free
// text with an embedded object.
type FunctionCallRequested struct {
	Channel
	OpenAIEventType    AIEventType     `json:"openAiEventType"`
	FunctionName       string          `json:"functionName"`
	FunctionParameters json.RawMessage `json:"functionParameters"`
}

// MessageSent reports a message the AI agent sent to the customer.
type MessageSent struct {
	Channel
	OpenAIEventType            AIEventType     `json:"openAiEventType"`
	Content                    string          `json:"content"`
	ConversationSentimentScore json.RawMessage `json:"conversationSentimentScore,omitempty"`
}

// Disengaged reports that the AI agent stopped handling the conversation.
type Disengaged struct {
	Channel
	OpenAIEventType AIEventType         `json:"openAiEventType"`
	Reason          DisengagementReason `json:"aiDisengagementReason"`
}

// MessageReceived is an inbound customer message.
type MessageReceived struct {
	Content           string    `json:"content"`
	ChannelType       string    `json:"channelType"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	ReceivedTimestamp time.Time `json:"receivedTimestamp"`
}
