package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// emailSender is the part of the Resend client we use.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend delivers email through the Resend HTTP API.
type Resend struct {
	emails emailSender
	from   string
}

// NewResend builds a Resend mailer. from is the sender, e.g.
// "DuoTrak <onboarding@resend.dev>".
func NewResend(apiKey, from string) (*Resend, error) {
	if apiKey == "" {
		return nil, errors.New("mailer: resend API key is required")
	}
	if from == "" {
		return nil, errors.New("mailer: sender address is required")
	}
	return &Resend{emails: resend.NewClient(apiKey).Emails, from: from}, nil
}

func (m *Resend) SendPartnershipInvite(ctx context.Context, inv Invite) (string, error) {
	subject, html, err := renderInvite(inv)
	if err != nil {
		return "", err
	}

	sent, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{inv.To},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: sending invite to %s: %w", inv.To, err)
	}
	return sent.Id, nil
}
