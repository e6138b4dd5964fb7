package sms

import (
	"context"
	"fmt"

	"smallcrm/cmd/internal/config"
)

type Sender interface {
	Send(ctx context.Context, to string, body string) error
	Enabled() bool
}

// New picks the provider named in cfg. An empty provider disables SMS.
func New(ctx context.Context, cfg config.SMSConfig) (Sender, error) {
	switch cfg.Provider {
	case "":
		return NewNoopSender(), nil
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFrom == "" {
			return nil, fmt.Errorf("twilio: account sid, auth token and phone number are required")
		}
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom), nil
	case "sns":
		return NewSNSSender(ctx, cfg.AWSRegion, cfg.SNSSenderID)
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) Enabled() bool {
	return false
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
