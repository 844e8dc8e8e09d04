package model

import "time"

// MessageStatus represents the delivery state of one dispatch attempt.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSending MessageStatus = "sending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
	MessageStatusRead    MessageStatus = "read"
	MessageStatusReplied MessageStatus = "replied"
)

// MessageRecord is the append-only record of one dispatch attempt. It is never
// mutated after creation except for asynchronous read/replied upgrades pushed
// by provider callbacks.
type MessageRecord struct {
	MessageID  string        `json:"message_id"`
	LeadID     string        `json:"lead_id"`
	CampaignID string        `json:"campaign_id"`
	OwnerID    string        `json:"owner_id"`
	Channel    Channel       `json:"channel"`
	Content    string        `json:"content"`
	Status     MessageStatus `json:"status"`
	SentAt     time.Time     `json:"sent_at"`

	// Simulated marks records produced without a network call.
	Simulated bool `json:"simulated,omitempty"`

	ErrorMessage string     `json:"error_message,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
}

// NotificationSettings holds an operator's enabled alert channels and the
// addresses to reach them on.
type NotificationSettings struct {
	OwnerID string `json:"owner_id"`

	EmailEnabled    bool `json:"email_enabled"`
	SMSEnabled      bool `json:"sms_enabled"`
	WhatsAppEnabled bool `json:"whatsapp_enabled"`
	FacebookEnabled bool `json:"facebook_enabled"`

	EmailAddress   string `json:"email_address,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	WhatsAppNumber string `json:"whatsapp_number,omitempty"`
	FacebookPSID   string `json:"facebook_psid,omitempty"`
}
