// Package email delivers transactional emails to salespeople.
package email

import (
	"context"
	"time"

	"leadcrm_backend/platform/config"
)

// Sender delivers lead lifecycle emails.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail, userName, leadName, mobile, city string) error
	SendFollowUpScheduledEmail(ctx context.Context, toEmail, userName, leadName string, scheduledAt time.Time) error
}

// NoopSender drops every email. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendFollowUpScheduledEmail(context.Context, string, string, string, time.Time) error {
	return nil
}

// NewSender returns an SMTP sender, or NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
