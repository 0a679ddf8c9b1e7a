package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers verification and reset tokens to account holders. Sends
// are best-effort: the auth flows log failures but never surface them, so a
// broken mail relay cannot become an account-enumeration oracle.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// SMTPMailer sends plain-text mail over SMTP.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a mailer for the given relay. Auth is skipped when
// user is empty (local relays).
func NewSMTPMailer(host, port, user, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%s", host, port),
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	return m.send(to, "Verify your email address",
		fmt.Sprintf("Your email verification token is:\r\n\r\n%s\r\n", token))
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.send(to, "Password reset requested",
		fmt.Sprintf("Your password reset token is:\r\n\r\n%s\r\n\r\nIt expires in one hour.\r\n", token))
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs instead of sending. Used in development and tests, where
// the token ends up in the log stream rather than an inbox.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, token string) error {
	m.logger.Info("verification mail (not sent)",
		zap.String("to", to),
		zap.String("token", token),
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.logger.Info("password reset mail (not sent)",
		zap.String("to", to),
		zap.String("token", token),
	)
	return nil
}
