// Package caller drives the long-running outbound call flow: queueing leads,
// initiating provider calls, recovering stuck calls, and applying outcomes
// delivered on the provider webhook.
package caller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/dispatch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/notify"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/booking"
	"github.com/sells-group/outreach-cli/pkg/dialer"
)

// hotOutcomes are provider outcomes that mean the lead wants to book.
var hotOutcomes = map[string]bool{
	"hot":        true,
	"interested": true,
	"qualified":  true,
}

// timeoutNote is appended to a lead when a stuck call is reset.
const timeoutNote = "reset after call timeout"

// Store is the persistence surface the caller needs.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, f store.LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, lead *model.Lead) error
	FindLeadByProviderCallID(ctx context.Context, providerCallID string) (*model.Lead, error)
	SaveMessage(ctx context.Context, m *model.MessageRecord) error
}

// CallEvent is a normalized end-of-call report from the voice provider.
type CallEvent struct {
	CallID       string
	Outcome      string
	Transcript   string
	RecordingURL string
	Metadata     map[string]string
}

// Caller owns the call state machine.
type Caller struct {
	store       Store
	dialer      dialer.Client
	booking     booking.Client
	notifier    *notify.Notifier
	assistantID string

	batchSize      int
	interCallDelay time.Duration
	stuckTimeout   time.Duration
	logger         *zap.Logger
}

// Config carries the caller's pacing parameters.
type Config struct {
	AssistantID    string
	BatchSize      int
	InterCallDelay time.Duration
	StuckTimeout   time.Duration
}

// New creates a caller. dialer may be nil; polling then does nothing.
func New(st Store, d dialer.Client, b booking.Client, n *notify.Notifier, cfg Config) *Caller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.InterCallDelay <= 0 {
		cfg.InterCallDelay = 10 * time.Second
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = time.Hour
	}
	return &Caller{
		store:          st,
		dialer:         d,
		booking:        b,
		notifier:       n,
		assistantID:    cfg.AssistantID,
		batchSize:      cfg.BatchSize,
		interCallDelay: cfg.InterCallDelay,
		stuckTimeout:   cfg.StuckTimeout,
		logger:         zap.L().With(zap.String("component", "caller")),
	}
}

// QueueCalls marks up to limit phone-reachable pending leads of a campaign as
// waiting for a call. Returns the number queued.
func (c *Caller) QueueCalls(ctx context.Context, campaignID string, limit int) (int, error) {
	leads, err := c.store.ListLeads(ctx, store.LeadFilter{
		CampaignID:    campaignID,
		Status:        model.LeadStatusPending,
		HasContactFor: model.ChannelCall,
		Limit:         limit,
	})
	if err != nil {
		return 0, eris.Wrap(err, "caller: list leads")
	}

	queued := 0
	now := time.Now().UTC()
	for i := range leads {
		lead := &leads[i]
		if lead.CallStatus != "" {
			continue
		}
		lead.CallStatus = model.CallStatusPending
		lead.UpdatedAt = now
		if err := c.store.UpdateLead(ctx, lead); err != nil {
			return queued, eris.Wrap(err, "caller: queue lead")
		}
		queued++
	}
	return queued, nil
}

// PollOnce initiates calls for one batch of queued leads, pausing the
// configured interval between dials. A failed dial puts the lead back in the
// queue for the next poll.
func (c *Caller) PollOnce(ctx context.Context) error {
	if c.dialer == nil {
		return nil
	}

	leads, err := c.store.ListLeads(ctx, store.LeadFilter{
		CallStatus: model.CallStatusPending,
		Limit:      c.batchSize,
	})
	if err != nil {
		return eris.Wrap(err, "caller: list queued leads")
	}

	for i := range leads {
		if i > 0 {
			select {
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "caller: poll interrupted")
			case <-time.After(c.interCallDelay):
			}
		}
		if err := c.startCall(ctx, &leads[i]); err != nil {
			c.logger.Warn("call initiation failed",
				zap.String("lead_id", leads[i].LeadID),
				zap.Error(err))
		}
	}
	return nil
}

func (c *Caller) startCall(ctx context.Context, lead *model.Lead) error {
	campaign, err := c.store.GetCampaign(ctx, lead.CampaignID)
	if err != nil {
		return eris.Wrap(err, "caller: load campaign")
	}

	now := time.Now().UTC()
	lead.CallStatus = model.CallStatusCalling
	lead.CalledAt = &now
	lead.UpdatedAt = now
	if err := c.store.UpdateLead(ctx, lead); err != nil {
		return eris.Wrap(err, "caller: mark calling")
	}

	script := dispatch.Render(campaign.CallScript, dispatch.Fields{
		Name:     lead.FirstName(),
		Company:  lead.Company,
		Industry: lead.Industry,
		Location: lead.Location,
		Rating:   lead.Rating,
	})

	resp, err := c.dialer.StartCall(ctx, dialer.CallRequest{
		AssistantID: c.assistantID,
		Customer: dialer.Customer{
			Number: lead.Phone,
			Name:   lead.Name,
		},
		Overrides: &dialer.Overrides{
			VariableValues: map[string]string{
				"name":    lead.FirstName(),
				"company": lead.Company,
				"script":  script,
			},
		},
		Metadata: map[string]string{
			"lead_id":  lead.LeadID,
			"owner_id": lead.OwnerID,
		},
	})
	if err != nil {
		lead.CallStatus = model.CallStatusPending
		lead.CalledAt = nil
		lead.UpdatedAt = time.Now().UTC()
		if revertErr := c.store.UpdateLead(ctx, lead); revertErr != nil {
			c.logger.Error("revert lead after dial failure",
				zap.String("lead_id", lead.LeadID),
				zap.Error(revertErr))
		}
		return eris.Wrap(err, "caller: start call")
	}

	lead.ProviderCallID = resp.ID
	lead.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateLead(ctx, lead); err != nil {
		return eris.Wrap(err, "caller: record provider call id")
	}

	c.logger.Info("call started",
		zap.String("lead_id", lead.LeadID),
		zap.String("provider_call_id", resp.ID))
	return nil
}

// RecoverStuck requeues leads that have been in the calling state longer than
// the stuck timeout, annotating each once. Returns the number recovered.
func (c *Caller) RecoverStuck(ctx context.Context) (int, error) {
	leads, err := c.store.ListLeads(ctx, store.LeadFilter{
		CallStatus: model.CallStatusCalling,
	})
	if err != nil {
		return 0, eris.Wrap(err, "caller: list calling leads")
	}

	cutoff := time.Now().UTC().Add(-c.stuckTimeout)
	recovered := 0
	for i := range leads {
		lead := &leads[i]
		if lead.CalledAt == nil || lead.CalledAt.After(cutoff) {
			continue
		}

		lead.CallStatus = model.CallStatusPending
		lead.CalledAt = nil
		lead.ProviderCallID = ""
		if !strings.Contains(lead.Notes, timeoutNote) {
			if lead.Notes != "" {
				lead.Notes += "\n"
			}
			lead.Notes += timeoutNote
		}
		lead.UpdatedAt = time.Now().UTC()
		if err := c.store.UpdateLead(ctx, lead); err != nil {
			return recovered, eris.Wrap(err, "caller: reset stuck lead")
		}
		recovered++
		c.logger.Warn("stuck call reset", zap.String("lead_id", lead.LeadID))
	}
	return recovered, nil
}

// HandleCallEnd applies a provider end-of-call report. The lead is resolved
// from the metadata correlation key, falling back to the provider call id.
// A hot outcome books the lead: a single-use scheduling link is created, sent
// to the lead, and the owner is alerted exactly once.
func (c *Caller) HandleCallEnd(ctx context.Context, event CallEvent) error {
	lead, err := c.resolveLead(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	outcome := strings.ToLower(strings.TrimSpace(event.Outcome))
	if outcome == "" {
		outcome = "unknown"
	}

	lead.CallStatus = model.CallStatus(outcome)
	lead.Transcript = event.Transcript
	lead.RecordingURL = event.RecordingURL
	lead.LastContacted = &now
	lead.ContactAttempts++
	lead.UpdatedAt = now

	record := &model.MessageRecord{
		MessageID:  uuid.New().String(),
		LeadID:     lead.LeadID,
		CampaignID: lead.CampaignID,
		OwnerID:    lead.OwnerID,
		Channel:    model.ChannelCall,
		Content:    fmt.Sprintf("call finished with outcome %q", outcome),
		Status:     model.MessageStatusSent,
		SentAt:     now,
	}
	if err := c.store.SaveMessage(ctx, record); err != nil {
		c.logger.Error("save call record", zap.Error(err))
	}

	if hotOutcomes[outcome] {
		lead.Status = model.LeadStatusHot
		c.bookLead(ctx, lead, outcome)
	} else if c.notifier != nil {
		if err := c.notifier.CallSummary(ctx, lead, outcome); err != nil {
			c.logger.Warn("call summary alert failed", zap.Error(err))
		}
	}

	if err := c.store.UpdateLead(ctx, lead); err != nil {
		return eris.Wrap(err, "caller: update lead after call")
	}

	c.logger.Info("call outcome applied",
		zap.String("lead_id", lead.LeadID),
		zap.String("outcome", outcome))
	return nil
}

func (c *Caller) resolveLead(ctx context.Context, event CallEvent) (*model.Lead, error) {
	if id := event.Metadata["lead_id"]; id != "" {
		lead, err := c.store.GetLead(ctx, id)
		if err == nil {
			return lead, nil
		}
		c.logger.Warn("metadata lead lookup failed, trying call id",
			zap.String("lead_id", id),
			zap.Error(err))
	}
	if event.CallID == "" {
		return nil, eris.New("caller: event carries no lead correlation")
	}
	lead, err := c.store.FindLeadByProviderCallID(ctx, event.CallID)
	if err != nil {
		return nil, eris.Wrap(err, "caller: resolve lead by call id")
	}
	return lead, nil
}

// bookLead creates the scheduling link, texts it to the lead, and fans out
// the owner alert. Booking failures leave the outcome status untouched so the
// lead surfaces in hot-lead lists for manual follow-up.
func (c *Caller) bookLead(ctx context.Context, lead *model.Lead, outcome string) {
	if c.booking == nil || c.notifier == nil {
		c.logger.Warn("booking not configured, hot lead left for manual follow-up",
			zap.String("lead_id", lead.LeadID))
		return
	}

	url, err := c.booking.CreateLink(ctx)
	if err != nil {
		c.logger.Error("create booking link", zap.String("lead_id", lead.LeadID), zap.Error(err))
		return
	}

	if err := c.notifier.SendBookingLink(ctx, lead, url); err != nil {
		c.logger.Error("send booking link to lead",
			zap.String("lead_id", lead.LeadID),
			zap.Error(err))
		return
	}
	if _, err := c.notifier.HotLead(ctx, lead, outcome, url); err != nil {
		c.logger.Warn("hot lead alert failed", zap.Error(err))
	}

	lead.CallStatus = model.CallStatusBookingSent
}
