package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/KeisukeFD/backup-script/internal/config"
	"github.com/KeisukeFD/backup-script/internal/logging"
)

// SendFunc is the mail collaborator contract: deliver one message through
// the given SMTP endpoint.
type SendFunc func(ctx context.Context, host string, port int, from, recipient, subject, body string) error

// EmailNotifier delivers the run report by email with a bounded retry loop.
// Delivery failures are logged, never propagated.
type EmailNotifier struct {
	config config.EmailConfig
	logger *logging.Logger

	send  SendFunc
	sleep func(time.Duration)
}

// NewEmailNotifier creates a notifier bound to the resolved email settings.
func NewEmailNotifier(cfg config.EmailConfig, logger *logging.Logger) *EmailNotifier {
	return &EmailNotifier{
		config: cfg,
		logger: logger,
		send:   sendViaSMTP,
		sleep:  time.Sleep,
	}
}

// Name returns the notifier name.
func (e *EmailNotifier) Name() string {
	return "Email"
}

// IsEnabled returns whether email notifications are enabled.
func (e *EmailNotifier) IsEnabled() bool {
	return e.config.Enabled
}

// Notify attempts delivery up to max_try times, sleeping the configured
// delay between attempts. It reports whether the message was handed off;
// exhaustion is visible in the log but never raises.
func (e *EmailNotifier) Notify(ctx context.Context, report Report) bool {
	if !e.config.Enabled {
		e.logger.Skip("Email notifications disabled")
		return false
	}
	if e.config.Recipient == "" {
		e.logger.Warning("Email recipient not configured, skipping report delivery")
		return false
	}

	maxTry := e.config.MaxTry
	if maxTry < 1 {
		maxTry = 1
	}
	delay := time.Duration(e.config.Timeout) * time.Second

	for attempt := 1; attempt <= maxTry; attempt++ {
		err := e.send(ctx, e.config.Host, e.config.Port, e.config.From, e.config.Recipient, report.Subject, report.Body)
		if err == nil {
			e.logger.Info("Report emailed to %s", e.config.Recipient)
			return true
		}
		e.logger.Warning("Email delivery attempt %d/%d failed: %v", attempt, maxTry, err)
		if attempt < maxTry {
			e.sleep(delay)
		}
	}

	e.logger.Error("Giving up on email delivery after %d attempts", maxTry)
	return false
}

// sendViaSMTP delivers one plain-text message through the configured relay.
func sendViaSMTP(ctx context.Context, host string, port int, from, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return fmt.Errorf("invalid sender address %s: %w", from, err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient address %s: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("cannot create SMTP client for %s:%d: %w", host, port, err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
