package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"github.com/Daskott/lifealert/shared"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

const (
	DEFAULT_SMTP_HOST = "smtp.gmail.com"
	DEFAULT_SMTP_PORT = 587
)

var ErrNoSender = errors.New("not sending email, no 'from' address configured")

// Mailer sends html email through an SMTP relay. A connection is dialed per
// message so one bad recipient can't poison a shared connection.
type Mailer struct {
	config shared.SmtpConfig
}

func NewMailer(config shared.SmtpConfig) *Mailer {
	if config.Host == "" {
		config.Host = DEFAULT_SMTP_HOST
	}
	if config.Port == 0 {
		config.Port = DEFAULT_SMTP_PORT
	}
	if config.From == "" {
		config.From = config.Username
	}

	return &Mailer{config: config}
}

func (m *Mailer) dialer() *gomail.Dialer {
	var d *gomail.Dialer
	if m.config.Username == "" {
		d = &gomail.Dialer{Host: m.config.Host, Port: m.config.Port}
	} else {
		d = gomail.NewDialer(m.config.Host, m.config.Port, m.config.Username, m.config.Password)
	}

	if m.config.NoVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return d
}

// SendEmail sends one html email to a single address
func (m *Mailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.prepareMessage(to, subject, html)
	if err != nil {
		return err
	}

	if err := m.dialer().DialAndSend(msg); err != nil {
		return pkgerrors.Wrapf(err, "smtp: send email to %v", to)
	}

	return nil
}

func (m *Mailer) prepareMessage(to, subject, html string) (*gomail.Message, error) {
	if m.config.From == "" {
		return nil, ErrNoSender
	}

	// Poor mans email validation; the relay rejects anything else
	if !strings.ContainsRune(to, '@') {
		return nil, pkgerrors.Errorf("invalid email address: %q", to)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	return msg, nil
}
