// Package notify fans out operator alerts when a call produces a hot lead.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/messenger"
	"github.com/sells-group/outreach-cli/pkg/twilio"
)

// Alert content ceilings per channel.
const (
	smsMaxLen      = 160
	facebookMaxLen = 320
)

// Store fetches per-operator alert preferences.
type Store interface {
	GetNotificationSettings(ctx context.Context, ownerID string) (*model.NotificationSettings, error)
}

// Notifier delivers operator alerts over every enabled channel. Channels are
// independent: one failing transport never blocks the others, and failed
// alerts are not retried.
type Notifier struct {
	store     Store
	email     *sendgrid.Client
	fromEmail string
	fromName  string
	sms       twilio.Client
	smsFrom   string
	whatsFrom string
	fb        messenger.Client
	logger    *zap.Logger
}

// NewNotifier creates a notifier. Any transport may be nil; its channel is
// then treated as unavailable regardless of settings.
func NewNotifier(store Store, email *sendgrid.Client, fromEmail, fromName string, sms twilio.Client, smsFrom, whatsFrom string, fb messenger.Client) *Notifier {
	return &Notifier{
		store:     store,
		email:     email,
		fromEmail: fromEmail,
		fromName:  fromName,
		sms:       sms,
		smsFrom:   smsFrom,
		whatsFrom: whatsFrom,
		fb:        fb,
		logger:    zap.L().With(zap.String("component", "notify")),
	}
}

// HotLead alerts the lead's owner that a call produced a hot outcome,
// including the booking link already sent to the lead. It returns the number
// of channels that delivered.
func (n *Notifier) HotLead(ctx context.Context, lead *model.Lead, outcome, bookingURL string) (int, error) {
	settings, err := n.store.GetNotificationSettings(ctx, lead.OwnerID)
	if err != nil {
		return 0, eris.Wrap(err, "notify: load settings")
	}

	short := fmt.Sprintf("Hot lead: %s (%s) marked %s. Booking link sent: %s",
		lead.Name, lead.Company, outcome, bookingURL)

	var delivered atomic.Int32
	g, gctx := errgroup.WithContext(ctx)

	if settings.EmailEnabled && settings.EmailAddress != "" && n.email != nil {
		g.Go(func() error {
			if err := n.sendEmail(gctx, settings.EmailAddress, lead, outcome, bookingURL); err != nil {
				n.logger.Warn("email alert failed", zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	if settings.SMSEnabled && settings.PhoneNumber != "" && n.sms != nil {
		g.Go(func() error {
			if _, err := n.sms.SendMessage(gctx, n.smsFrom, settings.PhoneNumber, truncate(short, smsMaxLen)); err != nil {
				n.logger.Warn("sms alert failed", zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	if settings.WhatsAppEnabled && settings.WhatsAppNumber != "" && n.sms != nil {
		g.Go(func() error {
			if _, err := n.sms.SendMessage(gctx, "whatsapp:"+n.whatsFrom, "whatsapp:"+settings.WhatsAppNumber, short); err != nil {
				n.logger.Warn("whatsapp alert failed", zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	if settings.FacebookEnabled && settings.FacebookPSID != "" && n.fb != nil {
		g.Go(func() error {
			if _, err := n.fb.SendMessage(gctx, settings.FacebookPSID, truncate(short, facebookMaxLen)); err != nil {
				n.logger.Warn("facebook alert failed", zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	count := int(delivered.Load())
	n.logger.Info("hot lead alert fan-out done",
		zap.String("lead_id", lead.LeadID),
		zap.Int("delivered", count))
	return count, nil
}

// CallSummary emails the owner a plain summary of a finished call that did
// not produce a hot outcome.
func (n *Notifier) CallSummary(ctx context.Context, lead *model.Lead, outcome string) error {
	settings, err := n.store.GetNotificationSettings(ctx, lead.OwnerID)
	if err != nil {
		return eris.Wrap(err, "notify: load settings")
	}
	if !settings.EmailEnabled || settings.EmailAddress == "" || n.email == nil {
		return nil
	}

	subject := fmt.Sprintf("Call finished: %s (%s)", lead.Name, outcome)
	body := fmt.Sprintf("Call with %s of %s finished with outcome %q.\n\nTranscript:\n%s",
		lead.Name, lead.Company, outcome, lead.Transcript)

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", settings.EmailAddress)
	msg := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := n.email.SendWithContext(ctx, msg)
	if err != nil {
		return eris.Wrap(err, "notify: send summary email")
	}
	if resp.StatusCode >= 300 {
		return eris.Errorf("notify: summary email status %d", resp.StatusCode)
	}
	return nil
}

// SendBookingLink texts the scheduling link to the lead over WhatsApp.
func (n *Notifier) SendBookingLink(ctx context.Context, lead *model.Lead, url string) error {
	if n.sms == nil {
		return eris.New("notify: no messaging transport configured")
	}
	if lead.Phone == "" {
		return eris.New("notify: lead has no phone number")
	}
	body := fmt.Sprintf("Hi %s, great talking with you! Grab a time that works here: %s", lead.FirstName(), url)
	if _, err := n.sms.SendMessage(ctx, "whatsapp:"+n.whatsFrom, "whatsapp:"+lead.Phone, body); err != nil {
		return eris.Wrap(err, "notify: send booking link")
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, address string, lead *model.Lead, outcome, bookingURL string) error {
	subject := fmt.Sprintf("Hot lead: %s", lead.Name)
	body := fmt.Sprintf("%s of %s was marked %s after a call.\n\nBooking link sent to the lead: %s\nPhone: %s\nScore: %d",
		lead.Name, lead.Company, outcome, bookingURL, lead.Phone, lead.QualificationScore)

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", address)
	msg := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := n.email.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return eris.Errorf("status %d", resp.StatusCode)
	}
	return nil
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
