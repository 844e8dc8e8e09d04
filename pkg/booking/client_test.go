package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLink(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/scheduling_links", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req linkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.MaxEventCount)
		assert.Equal(t, serverURL+"/users/user-uuid", req.Owner)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resource": {"booking_url": "https://calendly.com/d/abc"}}`))
	}))
	defer server.Close()
	serverURL = server.URL

	c := NewClient("test-token", "user-uuid", WithBaseURL(server.URL))
	url, err := c.CreateLink(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "https://calendly.com/d/abc", url)
}

func TestCreateLink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"title": "Permission Denied"}`))
	}))
	defer server.Close()

	c := NewClient("bad-token", "user-uuid", WithBaseURL(server.URL))
	_, err := c.CreateLink(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCreateLink_MissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"resource": {}}`))
	}))
	defer server.Close()

	c := NewClient("test-token", "user-uuid", WithBaseURL(server.URL))
	_, err := c.CreateLink(context.Background())
	assert.Error(t, err)
}
