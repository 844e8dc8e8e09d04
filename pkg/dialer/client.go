// Package dialer wraps the async voice-call provider API. Calls are initiated
// here; outcomes arrive later on the provider's webhook.
package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.vapi.ai"

// Client initiates outbound AI calls.
type Client interface {
	StartCall(ctx context.Context, req CallRequest) (*CallResponse, error)
}

// CallRequest describes one outbound call. Metadata is echoed back verbatim in
// the end-of-call webhook and carries the correlation keys.
type CallRequest struct {
	AssistantID string            `json:"assistantId"`
	Customer    Customer          `json:"customer"`
	Overrides   *Overrides        `json:"assistantOverrides,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Customer identifies the called party.
type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// Overrides carries per-call assistant variable values.
type Overrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// CallResponse is the provider acknowledgement of an initiated call.
type CallResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a dialer client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) StartCall(ctx context.Context, callReq CallRequest) (*CallResponse, error) {
	body, err := json.Marshal(callReq)
	if err != nil {
		return nil, eris.Wrap(err, "dialer: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "dialer: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dialer: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dialer: read response")
	}

	if resp.StatusCode >= 300 {
		return nil, eris.Errorf("dialer: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result CallResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "dialer: unmarshal response")
	}
	return &result, nil
}
