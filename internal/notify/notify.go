// Package notify delivers reminder text to the single configured recipient.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/lazypower/nudge/internal/config"
	"github.com/lazypower/nudge/internal/observe"
)

// Sender delivers one message body. An error means the message was not
// accepted and nothing should be recorded as sent.
type Sender interface {
	Send(ctx context.Context, body string) error
}

// NewSender builds the configured Sender.
func NewSender(cfg config.NotifyConfig, obs *observe.Observer) (Sender, error) {
	switch cfg.Provider {
	case "twilio":
		if cfg.TwilioSID == "" || cfg.TwilioAuth == "" {
			return nil, fmt.Errorf("twilio sender requires TWILIO_SID and TWILIO_TOKEN")
		}
		if cfg.From == "" || cfg.Recipient == "" {
			return nil, fmt.Errorf("twilio sender requires TWILIO_WHATSAPP_NUMBER and MY_WHATSAPP_NUMBER")
		}
		return NewTwilio(cfg.TwilioSID, cfg.TwilioAuth, cfg.From, cfg.Recipient), nil
	case "log", "":
		return &LogSender{obs: obs}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %q", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	obs *observe.Observer
}

// Send logs the body.
func (l *LogSender) Send(ctx context.Context, body string) error {
	l.obs.Log().Info().Str("body", body).Msg("reminder (dry run)")
	return nil
}

// MockSender records bodies for tests. Err, when set, fails every send.
type MockSender struct {
	Err error

	mu     sync.Mutex
	Bodies []string
}

// Send records the body, or returns Err.
func (m *MockSender) Send(ctx context.Context, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Bodies = append(m.Bodies, body)
	return nil
}

// Sent returns a copy of the bodies sent so far.
func (m *MockSender) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Bodies...)
}
