package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// serviceEnvelope is the wire envelope every model-service endpoint returns.
type serviceEnvelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Success bool            `json:"success"`
}

// ModelServiceClient is the shared HTTP transport for the in-house model
// service (embedding, NER, intent, sentiment endpoints). Each call carries
// its own deadline; the underlying http.Client timeout is a backstop.
type ModelServiceClient struct {
	baseURL    string
	httpClient *http.Client
	deadline   time.Duration
}

// NewModelServiceClient creates a transport for the model service.
func NewModelServiceClient(baseURL string, deadline time.Duration) *ModelServiceClient {
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return &ModelServiceClient{
		baseURL:  baseURL,
		deadline: deadline,
		httpClient: &http.Client{
			Timeout: deadline + time.Second,
		},
	}
}

// postJSON posts the request body to path and decodes the envelope's data
// into out. It returns a short reason string on any failure.
func (c *ModelServiceClient) postJSON(ctx context.Context, path string, request, out any) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Sprintf("encode request: %v", err), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("build request: %v", err), false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("request failed: %v", err), false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		return fmt.Sprintf("unexpected status %d", resp.StatusCode), false
	}

	var envelope serviceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Sprintf("decode envelope: %v", err), false
	}
	if !envelope.Success {
		reason := envelope.Error
		if reason == "" {
			reason = "service reported failure"
		}
		return reason, false
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Sprintf("decode payload: %v", err), false
	}
	return "", true
}
