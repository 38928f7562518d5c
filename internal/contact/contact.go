// Package contact delivers portfolio contact form submissions by email.
package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("SMTP credentials not configured")
	ErrInvalid       = errors.New("invalid contact message")
)

// Message is a contact form submission.
type Message struct {
	Name  string
	Email string
	Body  string
}

// Validate requires a name, a parseable email address and a body.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("%w: name and message are required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: bad email address", ErrInvalid)
	}
	if strings.ContainsAny(m.Name+m.Email, "\r\n") {
		return fmt.Errorf("%w: header injection", ErrInvalid)
	}
	return nil
}

type Mailer interface {
	Send(m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	To       string
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger.Named("contact"), send: smtp.SendMail}
}

func (s *SMTPMailer) Send(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if s.cfg.User == "" || s.cfg.Password == "" {
		return ErrNotConfigured
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	err := s.send(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.User, []string{s.cfg.To}, Compose(s.cfg.User, s.cfg.To, m))
	if err != nil {
		s.logger.Error("Error sending email", zap.Error(err))
		return err
	}
	s.logger.Info("Contact email sent", zap.String("from", m.Name))
	return nil
}

// Compose renders the RFC 822 message delivered to the site owner.
func Compose(from, to string, m Message) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", m.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Body)

	return []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + m.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
