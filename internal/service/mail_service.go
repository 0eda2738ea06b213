package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "candlux/internal/errors"
	"candlux/internal/mailer"
)

// MailService sends operator mail.
type MailService interface {
	// SendTest mails a test message to to, or to the default recipient when
	// to is empty, and returns the address used.
	SendTest(ctx context.Context, to string) (string, error)
}

type mailService struct {
	sender    mailer.Sender
	defaultTo string
	log       *zap.Logger
}

// NewMailService creates a mail service.
func NewMailService(sender mailer.Sender, defaultTo string, log *zap.Logger) MailService {
	return &mailService{sender: sender, defaultTo: defaultTo, log: log}
}

func (s *mailService) SendTest(ctx context.Context, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		to = s.defaultTo
	}
	msg, err := mailer.TestMessage(to, time.Now())
	if err == nil {
		err = s.sender.Send(ctx, msg)
	}
	if err != nil {
		s.log.Error("test mail failed", zap.String("to", to), zap.Error(err))
		return to, &apperrors.DeliveryError{Err: err}
	}
	return to, nil
}
