package dispatch

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/messenger"
	"github.com/sells-group/outreach-cli/pkg/twilio"
)

// Provider content limits enforced before a send leaves the process.
const (
	whatsAppMaxLen = 1600
	facebookMaxLen = 2000
)

// Channel is one outreach medium the dispatch engine can send through.
type Channel interface {
	// Name identifies the channel in campaigns and message records.
	Name() model.Channel
	// Template returns the campaign's message template for this channel.
	Template(c *model.Campaign) string
	// MaxContentLength is the provider's content ceiling. Zero means none.
	MaxContentLength() int
	// FirstNameOnly reports whether the channel addresses leads informally.
	FirstNameOnly() bool
	// Configured reports whether the channel has a live transport. Sends on
	// an unconfigured channel are simulated, never failed.
	Configured() bool
	// Send delivers rendered content to the lead and returns a provider id.
	Send(ctx context.Context, c *model.Campaign, lead *model.Lead, content string) (string, error)
}

// EmailChannel sends through the transactional email relay.
type EmailChannel struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
}

// NewEmailChannel creates the email channel.
func NewEmailChannel(client *sendgrid.Client, fromAddress, fromName string) *EmailChannel {
	return &EmailChannel{client: client, fromAddress: fromAddress, fromName: fromName}
}

func (e *EmailChannel) Name() model.Channel               { return model.ChannelEmail }
func (e *EmailChannel) Template(c *model.Campaign) string { return c.EmailBody }
func (e *EmailChannel) MaxContentLength() int             { return 0 }
func (e *EmailChannel) FirstNameOnly() bool               { return false }
func (e *EmailChannel) Configured() bool                  { return e.client != nil }

func (e *EmailChannel) Send(ctx context.Context, c *model.Campaign, lead *model.Lead, content string) (string, error) {
	subject := Render(c.EmailSubject, fieldsFor(lead, false))
	if subject == "" {
		subject = "Hello from " + e.fromName
	}

	from := mail.NewEmail(e.fromName, e.fromAddress)
	to := mail.NewEmail(lead.Name, lead.Email)
	msg := mail.NewSingleEmail(from, subject, to, content, content)

	resp, err := e.client.SendWithContext(ctx, msg)
	if err != nil {
		return "", eris.Wrap(err, "dispatch: send email")
	}
	if resp.StatusCode >= 300 {
		return "", eris.Errorf("dispatch: email relay status %d: %s", resp.StatusCode, resp.Body)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// WhatsAppChannel sends through the Twilio WhatsApp transport.
type WhatsAppChannel struct {
	client twilio.Client
	from   string
}

// NewWhatsAppChannel creates the WhatsApp channel. from is the bare sender
// number; the transport prefix is added here.
func NewWhatsAppChannel(client twilio.Client, from string) *WhatsAppChannel {
	return &WhatsAppChannel{client: client, from: from}
}

func (w *WhatsAppChannel) Name() model.Channel               { return model.ChannelWhatsApp }
func (w *WhatsAppChannel) Template(c *model.Campaign) string { return c.WhatsAppTemplate }
func (w *WhatsAppChannel) MaxContentLength() int             { return whatsAppMaxLen }
func (w *WhatsAppChannel) FirstNameOnly() bool               { return true }
func (w *WhatsAppChannel) Configured() bool                  { return w.client != nil }

func (w *WhatsAppChannel) Send(ctx context.Context, _ *model.Campaign, lead *model.Lead, content string) (string, error) {
	sid, err := w.client.SendMessage(ctx, "whatsapp:"+w.from, "whatsapp:"+lead.Phone, content)
	if err != nil {
		return "", eris.Wrap(err, "dispatch: send whatsapp")
	}
	return sid, nil
}

// FacebookChannel sends through the Messenger transport.
type FacebookChannel struct {
	client messenger.Client
}

// NewFacebookChannel creates the Facebook channel.
func NewFacebookChannel(client messenger.Client) *FacebookChannel {
	return &FacebookChannel{client: client}
}

func (f *FacebookChannel) Name() model.Channel               { return model.ChannelFacebook }
func (f *FacebookChannel) Template(c *model.Campaign) string { return c.FacebookTemplate }
func (f *FacebookChannel) MaxContentLength() int             { return facebookMaxLen }
func (f *FacebookChannel) FirstNameOnly() bool               { return true }
func (f *FacebookChannel) Configured() bool                  { return f.client != nil }

func (f *FacebookChannel) Send(ctx context.Context, _ *model.Campaign, lead *model.Lead, content string) (string, error) {
	recipient, ok := lead.ContactFor(model.ChannelFacebook)
	if !ok {
		return "", eris.New("dispatch: lead has no facebook identity")
	}
	id, err := f.client.SendMessage(ctx, recipient, content)
	if err != nil {
		return "", eris.Wrap(err, "dispatch: send facebook")
	}
	return id, nil
}
