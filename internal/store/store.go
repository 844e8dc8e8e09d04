// Package store provides persistence for campaigns, leads, and message
// records, with sqlite and postgres backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// LeadFilter narrows ListLeads. Zero-valued fields are ignored.
type LeadFilter struct {
	CampaignID string
	Status     model.LeadStatus
	CallStatus model.CallStatus
	// HasContactFor keeps only leads that carry the contact field the given
	// channel sends to.
	HasContactFor model.Channel
	Limit         int
}

// MessageFilter narrows ListMessages. Zero-valued fields are ignored.
type MessageFilter struct {
	CampaignID string
	LeadID     string
	Channel    model.Channel
	Limit      int
}

// Store is the full persistence surface. Consumers declare narrower
// interfaces with just the methods they use.
type Store interface {
	SaveCampaign(ctx context.Context, c *model.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	// DeleteCampaign removes the campaign and all of its leads and messages.
	DeleteCampaign(ctx context.Context, campaignID string) error

	// SaveLeads upserts by lead id.
	SaveLeads(ctx context.Context, leads []model.Lead) error
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, f LeadFilter) ([]model.Lead, error)
	// UpdateLead overwrites the stored row with the given lead.
	UpdateLead(ctx context.Context, lead *model.Lead) error
	// LeadPlaceIDs returns the set of directory ids already saved for a campaign.
	LeadPlaceIDs(ctx context.Context, campaignID string) (map[string]bool, error)
	FindLeadByProviderCallID(ctx context.Context, providerCallID string) (*model.Lead, error)

	SaveMessage(ctx context.Context, m *model.MessageRecord) error
	ListMessages(ctx context.Context, f MessageFilter) ([]model.MessageRecord, error)
	UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error

	GetNotificationSettings(ctx context.Context, ownerID string) (*model.NotificationSettings, error)
	UpsertNotificationSettings(ctx context.Context, s *model.NotificationSettings) error

	Migrate(ctx context.Context) error
	Close() error
}
