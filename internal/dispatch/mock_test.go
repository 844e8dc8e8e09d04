package dispatch

import (
	"context"
	"sync"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

type mockStore struct {
	mu       sync.Mutex
	campaign *model.Campaign
	leads    []model.Lead
	messages []model.MessageRecord
	updated  []model.Lead

	updateErr error
	saveErr   error
}

func (m *mockStore) GetCampaign(_ context.Context, _ string) (*model.Campaign, error) {
	return m.campaign, nil
}

func (m *mockStore) ListLeads(_ context.Context, _ store.LeadFilter) ([]model.Lead, error) {
	return m.leads, nil
}

func (m *mockStore) UpdateLead(_ context.Context, lead *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, *lead)
	return nil
}

func (m *mockStore) SaveMessage(_ context.Context, rec *model.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.messages = append(m.messages, *rec)
	return nil
}

type mockChannel struct {
	name          model.Channel
	template      func(c *model.Campaign) string
	maxLen        int
	firstNameOnly bool
	unconfigured  bool

	mu      sync.Mutex
	sends   []string
	sendErr error
}

func (m *mockChannel) Name() model.Channel { return m.name }

func (m *mockChannel) Template(c *model.Campaign) string {
	if m.template != nil {
		return m.template(c)
	}
	return c.WhatsAppTemplate
}

func (m *mockChannel) MaxContentLength() int { return m.maxLen }
func (m *mockChannel) FirstNameOnly() bool   { return m.firstNameOnly }
func (m *mockChannel) Configured() bool      { return !m.unconfigured }

func (m *mockChannel) Send(_ context.Context, _ *model.Campaign, _ *model.Lead, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sends = append(m.sends, content)
	return "provider-id-1", nil
}
