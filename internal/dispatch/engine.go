// Package dispatch sends campaign messages to leads over the enabled
// channels and records every attempt.
package dispatch

import (
	"context"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Sentinel errors for pre-send invariant failures. No provider call has been
// made when one of these is returned and no message record is written.
var (
	ErrChannelDisabled = eris.New("dispatch: channel not enabled for campaign")
	ErrNoContact       = eris.New("dispatch: lead missing contact for channel")
	ErrNoTemplate      = eris.New("dispatch: campaign has no template for channel")
)

// Store is the persistence surface dispatch needs.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListLeads(ctx context.Context, f store.LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, lead *model.Lead) error
	SaveMessage(ctx context.Context, m *model.MessageRecord) error
}

// BatchResult summarizes one batch send.
type BatchResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Engine routes rendered messages to channel transports.
type Engine struct {
	store    Store
	channels map[model.Channel]Channel

	// simulate short-circuits transports: content is rendered and recorded
	// but nothing leaves the process.
	simulate bool

	minDelay time.Duration
	maxDelay time.Duration
	logger   *zap.Logger
}

// NewEngine creates a dispatch engine over the given channels. When simulate
// is set, sends are recorded as delivered without any provider call.
// minDelay and maxDelay bound the randomized pause between sequential sends
// in a batch.
func NewEngine(st Store, channels []Channel, simulate bool, minDelay, maxDelay time.Duration) *Engine {
	byName := make(map[model.Channel]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Engine{
		store:    st,
		channels: byName,
		simulate: simulate,
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   zap.L().With(zap.String("component", "dispatch")),
	}
}

// Send delivers one campaign message to one lead over the named channel.
// Invariant failures (disabled channel, missing contact, missing template)
// are rejected before any provider call and leave no message record.
// Provider failures are recorded as failed messages and returned.
func (e *Engine) Send(ctx context.Context, campaign *model.Campaign, lead *model.Lead, channel model.Channel) (*model.MessageRecord, error) {
	ch, ok := e.channels[channel]
	if !ok {
		return nil, eris.Errorf("dispatch: no transport configured for channel %q", channel)
	}
	if !campaign.ChannelEnabled(channel) {
		return nil, ErrChannelDisabled
	}
	if _, ok := lead.ContactFor(channel); !ok {
		return nil, ErrNoContact
	}
	template := ch.Template(campaign)
	if template == "" {
		return nil, ErrNoTemplate
	}

	content := Render(template, fieldsFor(lead, ch.FirstNameOnly()))
	if max := ch.MaxContentLength(); max > 0 {
		content = truncate(content, max)
	}

	record := &model.MessageRecord{
		MessageID:  uuid.New().String(),
		LeadID:     lead.LeadID,
		CampaignID: campaign.CampaignID,
		OwnerID:    campaign.OwnerID,
		Channel:    channel,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}

	simulate := e.simulate
	if !ch.Configured() {
		// No credentials for this transport: degrade to simulation so the
		// batch still produces a full record of what would have gone out.
		simulate = true
		e.logger.Warn("transport not configured, simulating",
			zap.String("channel", string(channel)))
	}

	if simulate {
		record.Status = model.MessageStatusSent
		record.Simulated = true
		e.logger.Info("simulated send",
			zap.String("lead_id", lead.LeadID),
			zap.String("channel", string(channel)))
	} else {
		if _, err := ch.Send(ctx, campaign, lead, content); err != nil {
			record.Status = model.MessageStatusFailed
			record.ErrorMessage = err.Error()
			if saveErr := e.store.SaveMessage(ctx, record); saveErr != nil {
				e.logger.Error("save failed message record", zap.Error(saveErr))
			}
			return record, err
		}
		record.Status = model.MessageStatusSent
	}

	if err := e.store.SaveMessage(ctx, record); err != nil {
		e.logger.Error("save message record", zap.Error(err))
	}
	e.markContacted(ctx, lead, channel, record.SentAt)
	return record, nil
}

// markContacted updates outreach bookkeeping on the lead. A failure here is
// logged but never turns a delivered message into an error.
func (e *Engine) markContacted(ctx context.Context, lead *model.Lead, channel model.Channel, at time.Time) {
	lead.LastContacted = &at
	lead.ContactAttempts++
	if lead.PreferredChannel == "" {
		lead.PreferredChannel = channel
	}
	lead.UpdatedAt = at
	if err := e.store.UpdateLead(ctx, lead); err != nil {
		e.logger.Error("update lead after send",
			zap.String("lead_id", lead.LeadID),
			zap.Error(err))
	}
}

// SendBatch sends to every pending lead in the campaign that can be reached
// on the channel, pausing a randomized interval between sends. Per-lead
// failures are counted, not fatal.
func (e *Engine) SendBatch(ctx context.Context, campaignID string, channel model.Channel, limit int) (*BatchResult, error) {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: load campaign")
	}

	leads, err := e.store.ListLeads(ctx, store.LeadFilter{
		CampaignID:    campaignID,
		Status:        model.LeadStatusPending,
		HasContactFor: channel,
		Limit:         limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: list leads")
	}

	result := &BatchResult{}
	for i := range leads {
		if i > 0 {
			select {
			case <-ctx.Done():
				return result, eris.Wrap(ctx.Err(), "dispatch: batch interrupted")
			case <-time.After(e.sendDelay()):
			}
		}

		result.Attempted++
		_, err := e.Send(ctx, campaign, &leads[i], channel)
		switch {
		case err == nil:
			result.Sent++
		case eris.Is(err, ErrChannelDisabled), eris.Is(err, ErrNoContact), eris.Is(err, ErrNoTemplate):
			result.Skipped++
		default:
			result.Failed++
			e.logger.Warn("batch send failed for lead",
				zap.String("lead_id", leads[i].LeadID),
				zap.Error(err))
		}
	}

	e.logger.Info("batch send complete",
		zap.String("campaign_id", campaignID),
		zap.String("channel", string(channel)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (e *Engine) sendDelay() time.Duration {
	if e.maxDelay == e.minDelay {
		return e.minDelay
	}
	return e.minDelay + rand.N(e.maxDelay-e.minDelay)
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
