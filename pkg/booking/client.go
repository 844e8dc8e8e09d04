// Package booking wraps a Calendly-style scheduling-link API.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.calendly.com"

// Client creates one-off scheduling links.
type Client interface {
	CreateLink(ctx context.Context) (string, error)
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
	token    string
	userUUID string
	baseURL  string
	http     *http.Client
}

// NewClient creates a booking client for the given user.
func NewClient(token, userUUID string, opts ...Option) Client {
	c := &httpClient{
		token:    token,
		userUUID: userUUID,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type linkRequest struct {
	MaxEventCount int    `json:"max_event_count"`
	Owner         string `json:"owner"`
}

type linkResponse struct {
	Resource struct {
		BookingURL string `json:"booking_url"`
	} `json:"resource"`
}

// CreateLink returns a single-use booking URL.
func (c *httpClient) CreateLink(ctx context.Context) (string, error) {
	body, err := json.Marshal(linkRequest{
		MaxEventCount: 1,
		Owner:         c.baseURL + "/users/" + c.userUUID,
	})
	if err != nil {
		return "", eris.Wrap(err, "booking: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scheduling_links", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "booking: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "booking: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "booking: read response")
	}

	if resp.StatusCode >= 300 {
		return "", eris.Errorf("booking: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result linkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "booking: unmarshal response")
	}
	if result.Resource.BookingURL == "" {
		return "", eris.New("booking: response missing booking_url")
	}
	return result.Resource.BookingURL, nil
}
