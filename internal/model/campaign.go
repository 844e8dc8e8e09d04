package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Channel identifies an outreach medium.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelFacebook Channel = "facebook"
	ChannelSMS      Channel = "sms"
	ChannelCall     Channel = "call"
)

// SupportedChannels is the full set of channels the engine can dispatch or
// notify on. Campaign.ChannelsEnabled must be a subset of this.
var SupportedChannels = []Channel{ChannelEmail, ChannelWhatsApp, ChannelFacebook, ChannelSMS, ChannelCall}

// Campaign holds the search parameters, qualification criteria, and per-channel
// message templates for one acquisition campaign.
type Campaign struct {
	CampaignID string `json:"campaign_id" yaml:"campaign_id"`
	OwnerID    string `json:"owner_id" yaml:"owner_id"`
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`

	SearchQueries       []string `json:"search_queries" yaml:"search_queries"`
	SearchLocations     []string `json:"search_locations" yaml:"search_locations"`
	MaxResultsPerSearch int      `json:"max_results_per_search" yaml:"max_results_per_search"`
	MaxResults          int      `json:"max_results" yaml:"max_results"`

	IdealIndustries []string `json:"ideal_industries" yaml:"ideal_industries"`
	MinRating       float64  `json:"min_rating" yaml:"min_rating"`

	ChannelsEnabled []Channel `json:"channels_enabled" yaml:"channels_enabled"`

	EmailSubject     string `json:"email_subject" yaml:"email_subject"`
	EmailBody        string `json:"email_body" yaml:"email_body"`
	WhatsAppTemplate string `json:"whatsapp_template" yaml:"whatsapp_template"`
	FacebookTemplate string `json:"facebook_template" yaml:"facebook_template"`
	CallScript       string `json:"call_script" yaml:"call_script"`

	NotifyEmail string `json:"notify_email" yaml:"notify_email"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks campaign invariants before persistence.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return eris.New("campaign: name is required")
	}
	for _, ch := range c.ChannelsEnabled {
		if !IsSupportedChannel(ch) {
			return eris.Errorf("campaign: unsupported channel %q", ch)
		}
	}
	return nil
}

// IsSupportedChannel reports whether ch is part of the supported enumeration.
func IsSupportedChannel(ch Channel) bool {
	for _, s := range SupportedChannels {
		if s == ch {
			return true
		}
	}
	return false
}

// ChannelEnabled reports whether the campaign has the channel switched on.
func (c *Campaign) ChannelEnabled(ch Channel) bool {
	for _, e := range c.ChannelsEnabled {
		if e == ch {
			return true
		}
	}
	return false
}
