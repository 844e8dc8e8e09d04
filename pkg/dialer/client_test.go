package dialer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/call", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "asst-1", req.AssistantID)
		assert.Equal(t, "+12175550123", req.Customer.Number)
		assert.Equal(t, "Jane Doe", req.Customer.Name)
		assert.Equal(t, "l1", req.Metadata["lead_id"])
		require.NotNil(t, req.Overrides)
		assert.Equal(t, "Jane", req.Overrides.VariableValues["name"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "call-1", "status": "queued"}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))
	resp, err := c.StartCall(context.Background(), CallRequest{
		AssistantID: "asst-1",
		Customer:    Customer{Number: "+12175550123", Name: "Jane Doe"},
		Overrides: &Overrides{
			VariableValues: map[string]string{"name": "Jane"},
		},
		Metadata: map[string]string{"lead_id": "l1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, "queued", resp.Status)
}

func TestStartCall_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "invalid api key"}`))
	}))
	defer server.Close()

	c := NewClient("bad-key", WithBaseURL(server.URL))
	_, err := c.StartCall(context.Background(), CallRequest{AssistantID: "asst-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
