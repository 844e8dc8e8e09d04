// Package places wraps the Google Places REST API (text search + details).
package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// statusZeroResults is the API status for a successful search with no matches.
const statusZeroResults = "ZERO_RESULTS"

// detailFields is the field mask requested from the details endpoint.
const detailFields = "name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,business_status,types,url"

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query, location string, maxResults int) (*TextSearchResponse, error)
	Details(ctx context.Context, placeID string) (*DetailsResponse, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Status  string  `json:"status"`
	Results []Place `json:"results"`
}

// Place is a summary result from text search.
type Place struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
}

// DetailsResponse is the response from the place details endpoint.
type DetailsResponse struct {
	Status string `json:"status"`
	Result Detail `json:"result"`
}

// Detail holds the detailed fields for one place.
type Detail struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	FormattedPhone   string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	BusinessStatus   string   `json:"business_status"`
	Types            []string `json:"types"`
	MapsURL          string   `json:"url"`
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

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, query, location string, maxResults int) (*TextSearchResponse, error) {
	searchText := query
	if location != "" {
		searchText = query + " in " + location
	}

	params := url.Values{}
	params.Set("query", searchText)
	params.Set("key", c.apiKey)

	var result TextSearchResponse
	if err := c.get(ctx, "/textsearch/json", params, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" && result.Status != statusZeroResults {
		return nil, eris.Errorf("places: text search status %s", result.Status)
	}

	if maxResults > 0 && len(result.Results) > maxResults {
		result.Results = result.Results[:maxResults]
	}
	return &result, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*DetailsResponse, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("key", c.apiKey)

	var result DetailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" {
		return nil, eris.Errorf("places: details status %s", result.Status)
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
