// Package notify delivers budget alerts over email, Slack and signed webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"

	"budgetwatch/internal/config"
	"budgetwatch/internal/logger"
	"budgetwatch/internal/models"
)

// Notifier sends one alert message. Implementations must be safe for
// concurrent use.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string
	// Send delivers subject and body to a recipient. Transports without a
	// per-recipient address only report who the alert concerns.
	Send(ctx context.Context, to models.Recipient, subject, body string) error
}

// Multi fans an alert out to every configured transport.
type Multi struct {
	notifiers []Notifier
}

// NewMulti combines notifiers into one.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Name() string { return "multi" }

// Names lists the wrapped transports.
func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Send tries every transport and fails if any of them failed.
func (m *Multi) Send(ctx context.Context, to models.Recipient, subject, body string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, to, subject, body); err != nil {
			logger.Get().Warnw("notifier failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the application log instead of delivering them.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Send(_ context.Context, to models.Recipient, subject, body string) error {
	logger.Get().Infow("budget alert", "destination", to.Address, "subject", subject, "body", body)
	return nil
}

// FromConfig builds the transports enabled in cfg. With nothing configured
// alerts are only logged.
func FromConfig(cfg config.NotifyConfig) (*Multi, error) {
	var notifiers []Notifier

	if cfg.EmailEnabled() {
		email, err := NewEmailNotifier(cfg)
		if err != nil {
			return nil, fmt.Errorf("create email notifier: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackChannel))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, LogNotifier{})
	}

	return NewMulti(notifiers...), nil
}
