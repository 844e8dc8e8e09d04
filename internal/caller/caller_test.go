package caller

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/notify"
)

type settingsStore struct {
	settings *model.NotificationSettings
}

func (s *settingsStore) GetNotificationSettings(_ context.Context, ownerID string) (*model.NotificationSettings, error) {
	if s.settings != nil {
		return s.settings, nil
	}
	return &model.NotificationSettings{OwnerID: ownerID}, nil
}

type mockTexter struct {
	mu    sync.Mutex
	sends []string
}

func (m *mockTexter) SendMessage(_ context.Context, _, _, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, body)
	return "sid-1", nil
}

func testNotifier(texter *mockTexter) *notify.Notifier {
	return notify.NewNotifier(&settingsStore{}, nil, "ops@example.com", "Outreach",
		texter, "+15550009999", "+15550009999", nil)
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		CampaignID: "camp-1",
		OwnerID:    "owner-1",
		Name:       "Plumbers Q3",
		CallScript: "Ask [Name] about [Company]",
	}
}

func testLead(id string) *model.Lead {
	return &model.Lead{
		LeadID:     id,
		CampaignID: "camp-1",
		OwnerID:    "owner-1",
		Name:       "Jane Doe",
		Company:    "Acme Plumbing",
		Phone:      "+12175550123",
		Status:     model.LeadStatusPending,
	}
}

func testConfig() Config {
	return Config{
		AssistantID:    "asst-1",
		BatchSize:      3,
		InterCallDelay: time.Millisecond,
		StuckTimeout:   time.Hour,
	}
}

func TestQueueCalls_MarksPendingPhoneLeads(t *testing.T) {
	withPhone := testLead("l1")
	noPhone := testLead("l2")
	noPhone.Phone = ""
	alreadyQueued := testLead("l3")
	alreadyQueued.CallStatus = model.CallStatusCalling

	st := newMockStore(testCampaign(), withPhone, noPhone, alreadyQueued)
	c := New(st, &mockDialer{}, nil, nil, testConfig())

	queued, err := c.QueueCalls(context.Background(), "camp-1", 10)

	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	assert.Equal(t, model.CallStatusPending, st.lead("l1").CallStatus)
	assert.Empty(t, st.lead("l2").CallStatus)
	assert.Equal(t, model.CallStatusCalling, st.lead("l3").CallStatus)
}

func TestPollOnce_StartsCallWithCorrelationMetadata(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusPending
	st := newMockStore(testCampaign(), lead)
	d := &mockDialer{}
	c := New(st, d, nil, nil, testConfig())

	require.NoError(t, c.PollOnce(context.Background()))

	got := st.lead("l1")
	assert.Equal(t, model.CallStatusCalling, got.CallStatus)
	assert.Equal(t, "call-1", got.ProviderCallID)
	assert.NotNil(t, got.CalledAt)

	require.Len(t, d.calls, 1)
	req := d.calls[0]
	assert.Equal(t, "asst-1", req.AssistantID)
	assert.Equal(t, "+12175550123", req.Customer.Number)
	assert.Equal(t, "l1", req.Metadata["lead_id"])
	assert.Equal(t, "owner-1", req.Metadata["owner_id"])
	assert.Equal(t, "Ask Jane about Acme Plumbing", req.Overrides.VariableValues["script"])
}

func TestPollOnce_DialFailureRevertsToPending(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusPending
	st := newMockStore(testCampaign(), lead)
	c := New(st, &mockDialer{err: errDialDown}, nil, nil, testConfig())

	require.NoError(t, c.PollOnce(context.Background()))

	got := st.lead("l1")
	assert.Equal(t, model.CallStatusPending, got.CallStatus)
	assert.Nil(t, got.CalledAt)
	assert.Empty(t, got.ProviderCallID)
}

func TestPollOnce_NoDialerIsNoop(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusPending
	st := newMockStore(testCampaign(), lead)
	c := New(st, nil, nil, nil, testConfig())

	require.NoError(t, c.PollOnce(context.Background()))
	assert.Equal(t, model.CallStatusPending, st.lead("l1").CallStatus)
}

func TestRecoverStuck_ResetsOldCallsOnce(t *testing.T) {
	old := time.Now().UTC().Add(-2 * time.Hour)
	stuck := testLead("l1")
	stuck.CallStatus = model.CallStatusCalling
	stuck.CalledAt = &old
	stuck.ProviderCallID = "call-9"

	recent := time.Now().UTC().Add(-time.Minute)
	active := testLead("l2")
	active.CallStatus = model.CallStatusCalling
	active.CalledAt = &recent

	st := newMockStore(testCampaign(), stuck, active)
	c := New(st, &mockDialer{}, nil, nil, testConfig())

	n, err := c.RecoverStuck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := st.lead("l1")
	assert.Equal(t, model.CallStatusPending, got.CallStatus)
	assert.Nil(t, got.CalledAt)
	assert.Empty(t, got.ProviderCallID)
	assert.Contains(t, got.Notes, "reset after call timeout")

	// The recent call is untouched.
	assert.Equal(t, model.CallStatusCalling, st.lead("l2").CallStatus)

	// A second sweep finds nothing and never doubles the annotation.
	n, err = c.RecoverStuck(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, strings.Count(st.lead("l1").Notes, "reset after call timeout"))
}

func TestHandleCallEnd_HotOutcomeSendsBooking(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusCalling
	lead.ProviderCallID = "call-1"
	st := newMockStore(testCampaign(), lead)
	bk := &mockBooking{}
	texter := &mockTexter{}
	c := New(st, &mockDialer{}, bk, testNotifier(texter), testConfig())

	err := c.HandleCallEnd(context.Background(), CallEvent{
		CallID:     "call-1",
		Outcome:    "hot",
		Transcript: "great call",
		Metadata:   map[string]string{"lead_id": "l1"},
	})

	require.NoError(t, err)
	got := st.lead("l1")
	assert.Equal(t, model.LeadStatusHot, got.Status)
	assert.Equal(t, model.CallStatusBookingSent, got.CallStatus)
	assert.Equal(t, "great call", got.Transcript)
	assert.Equal(t, 1, bk.links)

	// The lead received the scheduling link.
	require.Len(t, texter.sends, 1)
	assert.Contains(t, texter.sends[0], "https://book.example/one-off")

	// The call itself is recorded.
	require.Len(t, st.messages, 1)
	assert.Equal(t, model.ChannelCall, st.messages[0].Channel)
}

func TestHandleCallEnd_NonHotOutcomeStoredVerbatim(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusCalling
	st := newMockStore(testCampaign(), lead)
	bk := &mockBooking{}
	c := New(st, &mockDialer{}, bk, nil, testConfig())

	err := c.HandleCallEnd(context.Background(), CallEvent{
		Outcome:  "No-Answer",
		Metadata: map[string]string{"lead_id": "l1"},
	})

	require.NoError(t, err)
	got := st.lead("l1")
	assert.Equal(t, model.CallStatus("no-answer"), got.CallStatus)
	assert.Equal(t, model.LeadStatusPending, got.Status)
	assert.Zero(t, bk.links)
}

func TestHandleCallEnd_ResolvesByProviderCallID(t *testing.T) {
	lead := testLead("l1")
	lead.CallStatus = model.CallStatusCalling
	lead.ProviderCallID = "call-77"
	st := newMockStore(testCampaign(), lead)
	c := New(st, &mockDialer{}, nil, nil, testConfig())

	err := c.HandleCallEnd(context.Background(), CallEvent{
		CallID:  "call-77",
		Outcome: "cold",
	})

	require.NoError(t, err)
	assert.Equal(t, model.CallStatus("cold"), st.lead("l1").CallStatus)
}

func TestHandleCallEnd_NoCorrelationFails(t *testing.T) {
	st := newMockStore(testCampaign())
	c := New(st, &mockDialer{}, nil, nil, testConfig())

	err := c.HandleCallEnd(context.Background(), CallEvent{Outcome: "hot"})
	assert.Error(t, err)
}
