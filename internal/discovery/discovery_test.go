package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

type searchCall struct {
	query    string
	location string
	pageSize int
}

type mockAdapter struct {
	calls   []searchCall
	results map[string][]model.Candidate
	err     error
}

func (m *mockAdapter) Name() string { return "mock" }

func (m *mockAdapter) Search(_ context.Context, query, location string, pageSize int) ([]model.Candidate, error) {
	m.calls = append(m.calls, searchCall{query, location, pageSize})
	if m.err != nil {
		return nil, m.err
	}
	return m.results[query+"|"+location], nil
}

type mockStore struct {
	campaign *model.Campaign
	existing map[string]bool
	saved    []model.Lead
}

func (m *mockStore) GetCampaign(_ context.Context, _ string) (*model.Campaign, error) {
	if m.campaign == nil {
		return nil, eris.New("not found")
	}
	return m.campaign, nil
}

func (m *mockStore) LeadPlaceIDs(_ context.Context, _ string) (map[string]bool, error) {
	if m.existing == nil {
		return map[string]bool{}, nil
	}
	return m.existing, nil
}

func (m *mockStore) SaveLeads(_ context.Context, leads []model.Lead) error {
	m.saved = append(m.saved, leads...)
	return nil
}

func candidate(placeID, name string, rating float64) model.Candidate {
	return model.Candidate{
		Provider: "mock",
		PlaceID:  placeID,
		Name:     name,
		Company:  name,
		Rating:   rating,
		Phone:    "+15550001111",
	}
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		CampaignID:      "camp-1",
		OwnerID:         "owner-1",
		Name:            "Plumbers Q3",
		SearchQueries:   []string{"plumber"},
		SearchLocations: []string{"Springfield"},
	}
}

func newTestEngine(a *mockAdapter, st *mockStore) *Engine {
	return NewEngine(a, st, time.Millisecond, 20)
}

func TestDiscover_SavesScoredLeads(t *testing.T) {
	adapter := &mockAdapter{results: map[string][]model.Candidate{
		"plumber|Springfield": {
			candidate("p1", "Acme Plumbing", 4.6),
			candidate("p2", "Bolt Pipes", 4.1),
		},
	}}
	st := &mockStore{campaign: testCampaign()}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Saved)
	require.Len(t, st.saved, 2)

	lead := st.saved[0]
	assert.NotEmpty(t, lead.LeadID)
	assert.Equal(t, "camp-1", lead.CampaignID)
	assert.Equal(t, "owner-1", lead.OwnerID)
	assert.Equal(t, model.SourcePlaces, lead.Source)
	assert.Equal(t, model.LeadStatusPending, lead.Status)
	assert.Greater(t, lead.QualificationScore, 0)
}

func TestDiscover_DeduplicatesByPlaceID(t *testing.T) {
	campaign := testCampaign()
	campaign.SearchQueries = []string{"plumber", "plumbing"}
	adapter := &mockAdapter{results: map[string][]model.Candidate{
		"plumber|Springfield":  {candidate("p1", "Acme Plumbing", 4.6)},
		"plumbing|Springfield": {candidate("p1", "Acme Plumbing", 4.6), candidate("p2", "Bolt Pipes", 4.1)},
	}}
	st := &mockStore{campaign: campaign}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 2, result.Saved)
}

func TestDiscover_SkipsAlreadyKnownPlaceIDs(t *testing.T) {
	adapter := &mockAdapter{results: map[string][]model.Candidate{
		"plumber|Springfield": {candidate("p1", "Acme Plumbing", 4.6)},
	}}
	st := &mockStore{campaign: testCampaign(), existing: map[string]bool{"p1": true}}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Zero(t, result.Saved)
	assert.Empty(t, st.saved)
}

func TestDiscover_CrossProductCappedAtThreeByThree(t *testing.T) {
	campaign := testCampaign()
	campaign.SearchQueries = []string{"q1", "q2", "q3", "q4"}
	campaign.SearchLocations = []string{"l1", "l2", "l3", "l4"}
	adapter := &mockAdapter{}
	st := &mockStore{campaign: campaign}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 9, result.Searches)
	assert.Len(t, adapter.calls, 9)
}

func TestDiscover_StopsAtMaxResults(t *testing.T) {
	campaign := testCampaign()
	campaign.SearchQueries = []string{"q1", "q2", "q3"}
	campaign.MaxResults = 5
	many := make([]model.Candidate, 10)
	for i := range many {
		many[i] = candidate(string(rune('a'+i)), "Biz", 4.5)
	}
	adapter := &mockAdapter{results: map[string][]model.Candidate{
		"q1|Springfield": many,
	}}
	st := &mockStore{campaign: campaign}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 5, result.Saved)
	// First search requests only the remaining budget and later searches
	// are skipped once the budget is met.
	require.NotEmpty(t, adapter.calls)
	assert.Equal(t, 5, adapter.calls[0].pageSize)
	assert.Len(t, adapter.calls, 1)
}

func TestDiscover_FiltersBelowMinRating(t *testing.T) {
	campaign := testCampaign()
	campaign.MinRating = 4.0
	adapter := &mockAdapter{results: map[string][]model.Candidate{
		"plumber|Springfield": {
			candidate("p1", "Good", 4.5),
			candidate("p2", "Meh", 3.2),
		},
	}}
	st := &mockStore{campaign: campaign}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Filtered)
	assert.Equal(t, 1, result.Saved)
}

func TestDiscover_NoAdapterIsEmptySuccess(t *testing.T) {
	st := &mockStore{campaign: testCampaign()}
	eng := NewEngine(nil, st, time.Millisecond, 20)

	result, err := eng.Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Zero(t, result.Saved)
	assert.Zero(t, result.Searches)
}

func TestDiscover_SearchErrorContinues(t *testing.T) {
	adapter := &mockAdapter{err: eris.New("quota exceeded")}
	st := &mockStore{campaign: testCampaign()}

	result, err := newTestEngine(adapter, st).Discover(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Searches)
	assert.Zero(t, result.Saved)
}
