package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

const (
	defaultAPIVersion = "2023-11-01-preview"
	requestIDHeader   = "x-ms-client-request-id"
	maxErrorBody      = 4096
)

var ErrNotConfigured = errors.New("delivery: messaging endpoint or conversation not configured")

// StatusError is returned when the messaging platform rejects a delivery.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("delivery: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config controls where function results are delivered.
type Config struct {
	Endpoint       string
	APIVersion     string
	ConversationID string
	Recipient      string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *logging.Logger
}

// Client delivers function call envelopes back to the AI conversation.
type Client struct {
	endpoint       string
	apiVersion     string
	conversationID string
	recipient      string
	httpClient     *http.Client
	logger         *logging.Logger
}

func New(cfg Config) *Client {
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiVersion:     apiVersion,
		conversationID: strings.TrimSpace(cfg.ConversationID),
		recipient:      cfg.Recipient,
		httpClient:     httpClient,
		logger:         logger,
	}
}

// Configured reports whether Deliver can reach the messaging platform.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != "" && c.conversationID != ""
}

type deliverRequest struct {
	To             string `json:"to"`
	FunctionName   string `json:"functionName"`
	FunctionResult string `json:"functionResult"`
}

// Deliver posts the envelope of functionName to the conversation. An empty
// to falls back to the configured recipient.
func (c *Client) Deliver(ctx context.Context, to, functionName string, envelope appointment.Response) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if to == "" {
		to = c.recipient
	}

	result, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("delivery: marshal envelope: %w", err)
	}
	body, err := json.Marshal(deliverRequest{
		To:             to,
		FunctionName:   functionName,
		FunctionResult: string(result),
	})
	if err != nil {
		return fmt.Errorf("delivery: marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deliverURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("function result delivered", "function", functionName, "request_id", requestID, "status", resp.StatusCode)
	return nil
}

func (c *Client) deliverURL() string {
	path := fmt.Sprintf("/messages/conversations/%s:deliverFunctionResults", url.PathEscape(c.conversationID))
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	return c.endpoint + path + "?" + q.Encode()
}
