// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Twilio    TwilioConfig    `yaml:"twilio" mapstructure:"twilio"`
	Messenger MessengerConfig `yaml:"messenger" mapstructure:"messenger"`
	Dialer    DialerConfig    `yaml:"dialer" mapstructure:"dialer"`
	Booking   BookingConfig   `yaml:"booking" mapstructure:"booking"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Caller    CallerConfig    `yaml:"caller" mapstructure:"caller"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DiscoveryConfig configures the discovery engine.
type DiscoveryConfig struct {
	// InterCallDelay is the mandatory pause between directory API calls.
	InterCallDelay time.Duration `yaml:"inter_call_delay" mapstructure:"inter_call_delay"`
	// ProviderPageCap is the hard per-search result ceiling the provider allows.
	ProviderPageCap int `yaml:"provider_page_cap" mapstructure:"provider_page_cap"`
	// DefaultRegion is the ISO region used when normalizing phone numbers
	// that carry no country prefix.
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
}

// EmailConfig holds transactional email relay settings.
type EmailConfig struct {
	SendGridKey string `yaml:"sendgrid_key" mapstructure:"sendgrid_key"`
	FromAddress string `yaml:"from_address" mapstructure:"from_address"`
	FromName    string `yaml:"from_name" mapstructure:"from_name"`
}

// TwilioConfig holds the chat-messaging (WhatsApp/SMS) API settings.
type TwilioConfig struct {
	AccountSID     string `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken      string `yaml:"auth_token" mapstructure:"auth_token"`
	WhatsAppNumber string `yaml:"whatsapp_number" mapstructure:"whatsapp_number"`
	SMSNumber      string `yaml:"sms_number" mapstructure:"sms_number"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
}

// MessengerConfig holds Facebook Messenger settings.
type MessengerConfig struct {
	PageToken string `yaml:"page_token" mapstructure:"page_token"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// DialerConfig holds the async voice-call provider settings.
type DialerConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	AssistantID string `yaml:"assistant_id" mapstructure:"assistant_id"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
}

// BookingConfig holds the scheduling-link provider settings.
type BookingConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	UserUUID string `yaml:"user_uuid" mapstructure:"user_uuid"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// DispatchConfig configures the channel dispatch engine.
type DispatchConfig struct {
	// MinSendDelay and MaxSendDelay bound the randomized pause between
	// sequential sends within one batch.
	MinSendDelay time.Duration `yaml:"min_send_delay" mapstructure:"min_send_delay"`
	MaxSendDelay time.Duration `yaml:"max_send_delay" mapstructure:"max_send_delay"`
	// BatchLimit caps how many leads one dispatch job processes.
	BatchLimit int `yaml:"batch_limit" mapstructure:"batch_limit"`
}

// SchedulerConfig configures the background worker pool.
type SchedulerConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// CallerConfig configures the long-running call state machine.
type CallerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`
	InterCallDelay time.Duration `yaml:"inter_call_delay" mapstructure:"inter_call_delay"`
	StuckTimeout   time.Duration `yaml:"stuck_timeout" mapstructure:"stuck_timeout"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("discovery.inter_call_delay", "1s")
	v.SetDefault("discovery.provider_page_cap", 20)
	v.SetDefault("discovery.default_region", "US")
	v.SetDefault("email.from_name", "Outreach")
	v.SetDefault("twilio.base_url", "https://api.twilio.com/2010-04-01")
	v.SetDefault("messenger.base_url", "https://graph.facebook.com/v18.0")
	v.SetDefault("dialer.base_url", "https://api.vapi.ai")
	v.SetDefault("booking.base_url", "https://api.calendly.com")
	v.SetDefault("dispatch.min_send_delay", "1s")
	v.SetDefault("dispatch.max_send_delay", "3s")
	v.SetDefault("dispatch.batch_limit", 50)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.queue_size", 64)
	v.SetDefault("caller.poll_interval", "30s")
	v.SetDefault("caller.batch_size", 3)
	v.SetDefault("caller.inter_call_delay", "10s")
	v.SetDefault("caller.stuck_timeout", "1h")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
