package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/pkg/places"
)

func newPlacesServer(t *testing.T, details map[string]places.Detail, hits []places.Place) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/textsearch/json":
			_ = json.NewEncoder(w).Encode(places.TextSearchResponse{Status: "OK", Results: hits})
		case "/details/json":
			id := r.URL.Query().Get("place_id")
			detail, ok := details[id]
			if !ok {
				_ = json.NewEncoder(w).Encode(places.DetailsResponse{Status: "NOT_FOUND"})
				return
			}
			_ = json.NewEncoder(w).Encode(places.DetailsResponse{Status: "OK", Result: detail})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestPlacesSearch_NormalizesCandidates(t *testing.T) {
	srv := newPlacesServer(t,
		map[string]places.Detail{
			"p1": {
				Name:             "Acme Plumbing",
				FormattedAddress: "123 Main St, Springfield, IL 62701, USA",
				FormattedPhone:   "(217) 555-0123",
				Website:          "https://acmeplumbing.example",
				Rating:           4.6,
				UserRatingsTotal: 120,
				BusinessStatus:   "OPERATIONAL",
				Types:            []string{"point_of_interest", "plumber", "establishment"},
			},
		},
		[]places.Place{{PlaceID: "p1", Name: "Acme Plumbing"}},
	)
	defer srv.Close()

	adapter := NewPlacesAdapter(places.NewClient("key", places.WithBaseURL(srv.URL)), "US")
	got, err := adapter.Search(context.Background(), "plumber", "Springfield", 20)

	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "places", c.Provider)
	assert.Equal(t, "p1", c.PlaceID)
	assert.Equal(t, "Acme Plumbing", c.Name)
	assert.Equal(t, "+12175550123", c.Phone)
	assert.Equal(t, "plumber", c.Industry)
	assert.Equal(t, "USA", c.Country)
	assert.Equal(t, "https://acmeplumbing.example", c.Website)
	assert.Empty(t, c.FacebookURL)
	assert.Equal(t, "OPERATIONAL", c.BusinessStatus)
}

func TestPlacesSearch_FacebookWebsiteDetected(t *testing.T) {
	srv := newPlacesServer(t,
		map[string]places.Detail{
			"p1": {
				Name:    "Bolt Pipes",
				Website: "https://www.facebook.com/boltpipes",
			},
		},
		[]places.Place{{PlaceID: "p1", Name: "Bolt Pipes"}},
	)
	defer srv.Close()

	adapter := NewPlacesAdapter(places.NewClient("key", places.WithBaseURL(srv.URL)), "US")
	got, err := adapter.Search(context.Background(), "pipes", "", 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.facebook.com/boltpipes", got[0].FacebookURL)
}

func TestPlacesSearch_FailedDetailsSkipsPlace(t *testing.T) {
	srv := newPlacesServer(t,
		map[string]places.Detail{
			"p2": {Name: "Bolt Pipes"},
		},
		[]places.Place{{PlaceID: "p1", Name: "Acme"}, {PlaceID: "p2", Name: "Bolt Pipes"}},
	)
	defer srv.Close()

	adapter := NewPlacesAdapter(places.NewClient("key", places.WithBaseURL(srv.URL)), "US")
	got, err := adapter.Search(context.Background(), "plumber", "", 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].PlaceID)
}

func TestNormalizePhone_FallsBackToDigits(t *testing.T) {
	adapter := &PlacesAdapter{region: "US"}

	// Not a dialable number, keeps digits rather than dropping the value.
	assert.Equal(t, "12345", adapter.normalizePhone("ext. 1-23-45"))
	assert.Equal(t, "", adapter.normalizePhone(""))
}

func TestPrimaryIndustry_SkipsGenericTypes(t *testing.T) {
	assert.Equal(t, "hardware store", primaryIndustry([]string{"establishment", "point_of_interest", "hardware_store"}))
	assert.Equal(t, "", primaryIndustry([]string{"establishment", "food"}))
	assert.Equal(t, "", primaryIndustry(nil))
}
