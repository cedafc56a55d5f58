package email

import (
	"context"
	"strings"
	"time"
)

type Transport interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// AuthMailer renders the account mails and hands them to a Transport.
type AuthMailer struct {
	Transport       Transport
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func (m *AuthMailer) SendVerification(ctx context.Context, to, name, link string) error {
	c := VerificationEmail(greeting(name), link, int(m.VerificationTTL.Hours()))
	return m.Transport.Send(ctx, to, c.Subject, c.Text, c.HTML)
}

func (m *AuthMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	c := PasswordResetEmail(greeting(name), link, int(m.ResetTTL.Minutes()))
	return m.Transport.Send(ctx, to, c.Subject, c.Text, c.HTML)
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "there"
}
