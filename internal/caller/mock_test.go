package caller

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/dialer"
)

type mockStore struct {
	mu       sync.Mutex
	campaign *model.Campaign
	leads    map[string]*model.Lead
	messages []model.MessageRecord
}

func newMockStore(campaign *model.Campaign, leads ...*model.Lead) *mockStore {
	m := &mockStore{campaign: campaign, leads: map[string]*model.Lead{}}
	for _, l := range leads {
		m.leads[l.LeadID] = l
	}
	return m
}

func (m *mockStore) GetCampaign(_ context.Context, _ string) (*model.Campaign, error) {
	return m.campaign, nil
}

func (m *mockStore) GetLead(_ context.Context, leadID string) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[leadID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *lead
	return &cp, nil
}

func (m *mockStore) ListLeads(_ context.Context, f store.LeadFilter) ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Lead
	for _, lead := range m.leads {
		if f.CampaignID != "" && lead.CampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && lead.Status != f.Status {
			continue
		}
		if f.CallStatus != "" && lead.CallStatus != f.CallStatus {
			continue
		}
		if f.HasContactFor != "" {
			if _, ok := lead.ContactFor(f.HasContactFor); !ok {
				continue
			}
		}
		out = append(out, *lead)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) UpdateLead(_ context.Context, lead *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[lead.LeadID]; !ok {
		return store.ErrNotFound
	}
	cp := *lead
	m.leads[lead.LeadID] = &cp
	return nil
}

func (m *mockStore) FindLeadByProviderCallID(_ context.Context, providerCallID string) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ProviderCallID == providerCallID {
			cp := *lead
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) SaveMessage(_ context.Context, rec *model.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *rec)
	return nil
}

func (m *mockStore) lead(id string) *model.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leads[id]
}

type mockDialer struct {
	mu    sync.Mutex
	calls []dialer.CallRequest
	err   error
}

func (m *mockDialer) StartCall(_ context.Context, req dialer.CallRequest) (*dialer.CallResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, req)
	return &dialer.CallResponse{ID: "call-1", Status: "queued"}, nil
}

type mockBooking struct {
	mu    sync.Mutex
	links int
	err   error
}

func (m *mockBooking) CreateLink(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.links++
	return "https://book.example/one-off", nil
}

var errDialDown = eris.New("dial provider down")
