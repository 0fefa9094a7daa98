package platform

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/jordan-wright/email"
)

// OperatorMailer sends plain-text notifications to the operator address.
// With no operator address configured it is a no-op.
type OperatorMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	to       string
}

func NewOperatorMailerFromEnv() *OperatorMailer {
	return &OperatorMailer{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
		to:       os.Getenv("OPERATOR_EMAIL"),
	}
}

func (m *OperatorMailer) Notify(subject, body string) error {
	if m.to == "" {
		Logger.Debugf("operator email not configured, dropping notification: %s", subject)
		return nil
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{m.to}
	e.Subject = subject
	e.Text = []byte(body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	return e.Send(addr, smtp.PlainAuth("", m.username, m.password, m.host))
}
