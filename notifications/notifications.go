// Package notifications sends the account status e-mails through SendGrid.
package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/models"
	templates "github.com/linesmerrill/forensic-case-api/templates/html"
)

const senderName = "Sistema de Ocorrências Periciais"

// Sender delivers a prepared message. *sendgrid.Client satisfies it.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer e-mails users about their account status
type Mailer struct {
	sender   Sender
	from     *mail.Email
	loginURL string
}

// New returns a Mailer backed by SendGrid. Without an API key the mailer only
// logs, so local setups work without credentials.
func New(apiKey, from, baseURL string) *Mailer {
	m := &Mailer{from: mail.NewEmail(senderName, from)}
	if baseURL != "" {
		m.loginURL = baseURL + "/login"
	}
	if apiKey != "" {
		m.sender = sendgrid.NewSendClient(apiKey)
	}
	return m
}

// NewWithSender is used by tests to capture outgoing messages
func NewWithSender(s Sender, from, baseURL string) *Mailer {
	m := New("", from, baseURL)
	m.sender = s
	return m
}

// UserApproved tells u their account is active
func (m *Mailer) UserApproved(ctx context.Context, u models.User) error {
	d := templates.AccountEmailData{Name: u.Name, Role: u.Role, LoginURL: m.loginURL, Approved: true}
	return m.send(ctx, u, "Seu cadastro foi aprovado", d)
}

// UserRejected tells u their registration was refused
func (m *Mailer) UserRejected(ctx context.Context, u models.User) error {
	d := templates.AccountEmailData{Name: u.Name}
	return m.send(ctx, u, "Seu cadastro foi analisado", d)
}

func (m *Mailer) send(ctx context.Context, u models.User, subject string, d templates.AccountEmailData) error {
	if m.sender == nil {
		zap.S().Debugw("mail delivery disabled, skipping", "to", u.Email, "subject", subject)
		return nil
	}
	to := mail.NewEmail(u.Name, u.Email)
	message := mail.NewSingleEmail(m.from, subject, to, templates.AccountStatusPlainText(d), templates.RenderAccountStatusEmail(d))
	response, err := m.sender.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", u.Email)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", u.Email)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", u.Email, "subject", subject)
	return nil
}
