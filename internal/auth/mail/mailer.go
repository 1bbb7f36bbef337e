// Package mail defines the outbound-mail boundary for the signup flow.
// Actual delivery (SMTP, templates) lives outside this service; handlers only
// depend on the Mailer interface.
package mail

import (
	"context"
	"log/slog"
)

// Mailer sends the address-confirmation mail containing a verification token.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, token string) error
}

// LogMailer is the development implementation: it logs the verification token
// instead of delivering it.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerification(ctx context.Context, to, username, token string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("verification mail",
		"to", to,
		"username", username,
		"token", token,
	)
	return nil
}
