// Package model defines the core domain types shared across the outreach engine.
package model

import (
	"strings"
	"time"
)

// LeadStatus represents the qualification lifecycle of a lead.
type LeadStatus string

const (
	LeadStatusPending LeadStatus = "pending"
	LeadStatusHot     LeadStatus = "hot"
	LeadStatusMaybe   LeadStatus = "maybe"
	LeadStatusCold    LeadStatus = "cold"
	LeadStatusDead    LeadStatus = "dead"
)

// LeadSource records where a lead came from.
type LeadSource string

const (
	SourceManual LeadSource = "manual"
	SourceCSV    LeadSource = "csv"
	SourcePlaces LeadSource = "places"
)

// CallStatus tracks a lead through the long-running call flow.
// Empty means the lead has never been queued for calling. Terminal outcomes
// (hot, cold, no-answer, ...) are written verbatim from the provider callback.
type CallStatus string

const (
	CallStatusPending     CallStatus = "pending"
	CallStatusCalling     CallStatus = "calling"
	CallStatusBookingSent CallStatus = "booking_sent"
)

// Lead represents a persisted, scored prospect eligible for outreach.
type Lead struct {
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
	OwnerID    string `json:"owner_id"`

	Name        string `json:"name"`
	Company     string `json:"company"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	FacebookURL string `json:"facebook_url,omitempty"`
	FacebookID  string `json:"facebook_id,omitempty"`
	Website     string `json:"website,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Location    string `json:"location,omitempty"`
	Country     string `json:"country,omitempty"`
	Notes       string `json:"notes,omitempty"`

	Source  LeadSource `json:"source"`
	PlaceID string     `json:"place_id,omitempty"`

	Rating         float64 `json:"rating,omitempty"`
	TotalRatings   int     `json:"total_ratings,omitempty"`
	BusinessStatus string  `json:"business_status,omitempty"`
	Categories     string  `json:"categories,omitempty"`

	Status             LeadStatus `json:"status"`
	QualificationScore int        `json:"qualification_score"`

	PreferredChannel Channel    `json:"preferred_channel,omitempty"`
	LastContacted    *time.Time `json:"last_contacted,omitempty"`
	ContactAttempts  int        `json:"contact_attempts"`

	CallStatus     CallStatus `json:"call_status,omitempty"`
	CalledAt       *time.Time `json:"called_at,omitempty"`
	ProviderCallID string     `json:"provider_call_id,omitempty"`
	Transcript     string     `json:"transcript,omitempty"`
	RecordingURL   string     `json:"recording_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactFor returns the recipient identity the given channel would use and
// whether the lead has it. A lead without the channel's contact field is never
// eligible for dispatch on that channel.
func (l *Lead) ContactFor(ch Channel) (string, bool) {
	switch ch {
	case ChannelEmail:
		return l.Email, l.Email != ""
	case ChannelWhatsApp, ChannelSMS, ChannelCall:
		return l.Phone, l.Phone != ""
	case ChannelFacebook:
		if l.FacebookID != "" {
			return l.FacebookID, true
		}
		if l.FacebookURL != "" {
			// Page username is the last path segment of the profile URL.
			trimmed := strings.TrimRight(l.FacebookURL, "/")
			if i := strings.LastIndex(trimmed, "/"); i >= 0 && i < len(trimmed)-1 {
				return trimmed[i+1:], true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// FirstName returns the first whitespace-separated token of the lead's name.
// Chat-style channels address leads by first name only.
func (l *Lead) FirstName() string {
	fields := strings.Fields(l.Name)
	if len(fields) == 0 {
		return l.Name
	}
	return fields[0]
}

// AsCandidate projects the lead back into candidate form for rescoring.
func (l *Lead) AsCandidate() *Candidate {
	return &Candidate{
		Provider:       string(l.Source),
		PlaceID:        l.PlaceID,
		Name:           l.Name,
		Company:        l.Company,
		Email:          l.Email,
		Phone:          l.Phone,
		FacebookURL:    l.FacebookURL,
		Website:        l.Website,
		Industry:       l.Industry,
		Location:       l.Location,
		Country:        l.Country,
		Rating:         l.Rating,
		TotalRatings:   l.TotalRatings,
		BusinessStatus: l.BusinessStatus,
		Categories:     l.Categories,
	}
}

// Candidate is a normalized external directory result that has not yet been
// persisted as a lead. It exists only for the duration of a discovery run and
// is deduplicated by (provider, external id).
type Candidate struct {
	Provider string `json:"provider"`
	PlaceID  string `json:"place_id"`

	Name           string  `json:"name"`
	Company        string  `json:"company"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	FacebookURL    string  `json:"facebook_url,omitempty"`
	Website        string  `json:"website,omitempty"`
	Industry       string  `json:"industry,omitempty"`
	Location       string  `json:"location,omitempty"`
	Country        string  `json:"country,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	TotalRatings   int     `json:"total_ratings,omitempty"`
	BusinessStatus string  `json:"business_status,omitempty"`
	Categories     string  `json:"categories,omitempty"`
}
