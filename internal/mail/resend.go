// Package mail delivers digest email through the Resend API.
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/openonco/scout/internal/digest"
)

// ResendMailer sends digest messages via Resend.
type ResendMailer struct {
	client *resend.Client
	logger *zap.Logger
}

// NewResendMailer creates a mailer with the given API key.
func NewResendMailer(apiKey string, logger *zap.Logger) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		logger: logger.Named("mail"),
	}, nil
}

// Send delivers the message and returns the provider message ID.
func (m *ResendMailer) Send(ctx context.Context, msg digest.Message) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("sending via resend: %w", err)
	}

	m.logger.Debug("email delivered",
		zap.String("messageId", sent.Id),
		zap.Int("recipients", len(msg.To)))
	return sent.Id, nil
}
