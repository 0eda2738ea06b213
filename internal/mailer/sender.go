package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"candlux/internal/config"
)

// Message is a rendered transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender selected by MAIL_PROVIDER.
func New(cfg *config.Config, log *zap.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case config.MailProviderSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}), nil
	case config.MailProviderBrevo:
		return NewBrevoSender(cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailFromName), nil
	case config.MailProviderLog:
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}
