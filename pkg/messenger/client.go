// Package messenger wraps the Facebook Graph Send API.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Client sends Messenger messages to page-scoped recipient IDs.
type Client interface {
	SendMessage(ctx context.Context, recipientID, text string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default Graph API base URL.
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
	pageToken string
	baseURL   string
	http      *http.Client
}

// NewClient creates a Messenger client authenticated by a page access token.
func NewClient(pageToken string, opts ...Option) Client {
	c := &httpClient{
		pageToken: pageToken,
		baseURL:   defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sendRequest struct {
	Recipient   recipient `json:"recipient"`
	Message     message   `json:"message"`
	AccessToken string    `json:"access_token"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendMessage delivers text to the recipient and returns the provider message id.
func (c *httpClient) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	body, err := json.Marshal(sendRequest{
		Recipient:   recipient{ID: recipientID},
		Message:     message{Text: text},
		AccessToken: c.pageToken,
	})
	if err != nil {
		return "", eris.Wrap(err, "messenger: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "messenger: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "messenger: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "messenger: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("messenger: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result sendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "messenger: unmarshal response")
	}
	if result.MessageID == "" {
		return "", eris.New("messenger: response missing message_id")
	}
	return result.MessageID, nil
}
