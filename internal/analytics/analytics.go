// Package analytics aggregates campaign performance from stored leads and
// message records.
package analytics

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Store is the persistence surface analytics reads from.
type Store interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	ListLeads(ctx context.Context, f store.LeadFilter) ([]model.Lead, error)
	ListMessages(ctx context.Context, f store.MessageFilter) ([]model.MessageRecord, error)
}

// CampaignStats summarizes one campaign.
type CampaignStats struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`

	TotalLeads    int            `json:"total_leads"`
	LeadsByStatus map[string]int `json:"leads_by_status"`
	AverageScore  float64        `json:"average_score"`
	Contacted     int            `json:"contacted"`

	MessagesSent      int            `json:"messages_sent"`
	MessagesFailed    int            `json:"messages_failed"`
	MessagesByChannel map[string]int `json:"messages_by_channel"`
	Replies           int            `json:"replies"`
	ResponseRate      float64        `json:"response_rate"`

	CallsCompleted int `json:"calls_completed"`
	BookingsSent   int `json:"bookings_sent"`
}

// Engine computes campaign statistics.
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine creates an analytics engine.
func NewEngine(st Store) *Engine {
	return &Engine{
		store:  st,
		logger: zap.L().With(zap.String("component", "analytics")),
	}
}

// CampaignStats aggregates one campaign's leads and messages.
func (e *Engine) CampaignStats(ctx context.Context, campaign *model.Campaign) (*CampaignStats, error) {
	stats := &CampaignStats{
		CampaignID:        campaign.CampaignID,
		CampaignName:      campaign.Name,
		LeadsByStatus:     map[string]int{},
		MessagesByChannel: map[string]int{},
	}

	leads, err := e.store.ListLeads(ctx, store.LeadFilter{CampaignID: campaign.CampaignID})
	if err != nil {
		return nil, eris.Wrap(err, "analytics: list leads")
	}

	scoreSum := 0
	for i := range leads {
		lead := &leads[i]
		stats.TotalLeads++
		stats.LeadsByStatus[string(lead.Status)]++
		scoreSum += lead.QualificationScore
		if lead.ContactAttempts > 0 {
			stats.Contacted++
		}
		if lead.CallStatus == model.CallStatusBookingSent {
			stats.BookingsSent++
		}
	}
	if stats.TotalLeads > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.TotalLeads)
	}

	messages, err := e.store.ListMessages(ctx, store.MessageFilter{CampaignID: campaign.CampaignID})
	if err != nil {
		return nil, eris.Wrap(err, "analytics: list messages")
	}

	for i := range messages {
		m := &messages[i]
		switch m.Status {
		case model.MessageStatusFailed:
			stats.MessagesFailed++
		case model.MessageStatusReplied:
			stats.Replies++
			stats.MessagesSent++
		default:
			stats.MessagesSent++
		}
		stats.MessagesByChannel[string(m.Channel)]++
		if m.Channel == model.ChannelCall {
			stats.CallsCompleted++
		}
	}
	if stats.MessagesSent > 0 {
		stats.ResponseRate = float64(stats.Replies) / float64(stats.MessagesSent)
	}

	return stats, nil
}

// AllCampaignStats aggregates every campaign. A campaign whose aggregation
// fails contributes empty stats instead of failing the report.
func (e *Engine) AllCampaignStats(ctx context.Context) ([]CampaignStats, error) {
	campaigns, err := e.store.ListCampaigns(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: list campaigns")
	}

	all := make([]CampaignStats, 0, len(campaigns))
	for i := range campaigns {
		stats, err := e.CampaignStats(ctx, &campaigns[i])
		if err != nil {
			e.logger.Warn("campaign stats failed",
				zap.String("campaign_id", campaigns[i].CampaignID),
				zap.Error(err))
			all = append(all, CampaignStats{
				CampaignID:        campaigns[i].CampaignID,
				CampaignName:      campaigns[i].Name,
				LeadsByStatus:     map[string]int{},
				MessagesByChannel: map[string]int{},
			})
			continue
		}
		all = append(all, *stats)
	}
	return all, nil
}
