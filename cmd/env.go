package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/sendgrid-go"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/analytics"
	"github.com/sells-group/outreach-cli/internal/caller"
	"github.com/sells-group/outreach-cli/internal/directory"
	"github.com/sells-group/outreach-cli/internal/discovery"
	"github.com/sells-group/outreach-cli/internal/dispatch"
	"github.com/sells-group/outreach-cli/internal/leadio"
	"github.com/sells-group/outreach-cli/internal/notify"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/booking"
	"github.com/sells-group/outreach-cli/pkg/dialer"
	"github.com/sells-group/outreach-cli/pkg/messenger"
	"github.com/sells-group/outreach-cli/pkg/places"
	"github.com/sells-group/outreach-cli/pkg/twilio"
)

// appEnv holds the initialized store, clients, and engines shared by the
// discover/send/serve commands.
type appEnv struct {
	Store      store.Store
	Discovery  *discovery.Engine
	Dispatcher *dispatch.Engine
	Caller     *caller.Caller
	Notifier   *notify.Notifier
	Analytics  *analytics.Engine
	Importer   *leadio.Importer
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store and every configured provider client, then builds
// the engines. Providers without credentials are left nil and their features
// degrade gracefully. Callers should defer env.Close().
func initEnv(ctx context.Context, simulate bool) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Directory provider (optional).
	var adapter directory.Adapter
	if cfg.Places.APIKey != "" {
		var opts []places.Option
		if cfg.Places.BaseURL != "" {
			opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
		}
		adapter = directory.NewPlacesAdapter(places.NewClient(cfg.Places.APIKey, opts...), cfg.Discovery.DefaultRegion)
		zap.L().Info("places directory enabled")
	} else {
		zap.L().Warn("OUTREACH_PLACES_API_KEY not set, discovery disabled")
	}

	disc := discovery.NewEngine(adapter, st, cfg.Discovery.InterCallDelay, cfg.Discovery.ProviderPageCap)

	// Message transports.
	var emailClient *sendgrid.Client
	if cfg.Email.SendGridKey != "" {
		emailClient = sendgrid.NewSendClient(cfg.Email.SendGridKey)
	}

	var twilioClient twilio.Client
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		var opts []twilio.Option
		if cfg.Twilio.BaseURL != "" {
			opts = append(opts, twilio.WithBaseURL(cfg.Twilio.BaseURL))
		}
		twilioClient = twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, opts...)
	}

	var messengerClient messenger.Client
	if cfg.Messenger.PageToken != "" {
		var opts []messenger.Option
		if cfg.Messenger.BaseURL != "" {
			opts = append(opts, messenger.WithBaseURL(cfg.Messenger.BaseURL))
		}
		messengerClient = messenger.NewClient(cfg.Messenger.PageToken, opts...)
	}

	// Every channel is always registered; the engine simulates sends on any
	// channel whose transport client is nil.
	channels := []dispatch.Channel{
		dispatch.NewEmailChannel(emailClient, cfg.Email.FromAddress, cfg.Email.FromName),
		dispatch.NewWhatsAppChannel(twilioClient, cfg.Twilio.WhatsAppNumber),
		dispatch.NewFacebookChannel(messengerClient),
	}
	if simulate {
		zap.L().Info("simulation mode: no messages will leave the process")
	}

	dispatcher := dispatch.NewEngine(st, channels, simulate, cfg.Dispatch.MinSendDelay, cfg.Dispatch.MaxSendDelay)

	notifier := notify.NewNotifier(st, emailClient, cfg.Email.FromAddress, cfg.Email.FromName,
		twilioClient, cfg.Twilio.SMSNumber, cfg.Twilio.WhatsAppNumber, messengerClient)

	// Voice call provider (optional).
	var dialerClient dialer.Client
	if cfg.Dialer.APIKey != "" {
		var opts []dialer.Option
		if cfg.Dialer.BaseURL != "" {
			opts = append(opts, dialer.WithBaseURL(cfg.Dialer.BaseURL))
		}
		dialerClient = dialer.NewClient(cfg.Dialer.APIKey, opts...)
	} else {
		zap.L().Warn("OUTREACH_DIALER_API_KEY not set, calling disabled")
	}

	var bookingClient booking.Client
	if cfg.Booking.Token != "" {
		var opts []booking.Option
		if cfg.Booking.BaseURL != "" {
			opts = append(opts, booking.WithBaseURL(cfg.Booking.BaseURL))
		}
		bookingClient = booking.NewClient(cfg.Booking.Token, cfg.Booking.UserUUID, opts...)
	}

	callerEngine := caller.New(st, dialerClient, bookingClient, notifier, caller.Config{
		AssistantID:    cfg.Dialer.AssistantID,
		BatchSize:      cfg.Caller.BatchSize,
		InterCallDelay: cfg.Caller.InterCallDelay,
		StuckTimeout:   cfg.Caller.StuckTimeout,
	})

	return &appEnv{
		Store:      st,
		Discovery:  disc,
		Dispatcher: dispatcher,
		Caller:     callerEngine,
		Notifier:   notifier,
		Analytics:  analytics.NewEngine(st),
		Importer:   leadio.NewImporter(st),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		return st, nil
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
