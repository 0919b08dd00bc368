package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SenderConfig configuration for SMTP submission
type SenderConfig struct {
	Server      string // host:port, implicit TLS
	Username    string
	Password    string
	FromEmail   string
	FromName    string
	DialTimeout time.Duration
}

// Sender submits plain-text mail over SMTPS
type Sender struct {
	config SenderConfig
	logger *slog.Logger
}

// NewSender creates a new SMTP sender
func NewSender(cfg SenderConfig, logger *slog.Logger) *Sender {
	return &Sender{
		config: cfg,
		logger: logger.With("component", "smtp"),
	}
}

// From returns the envelope sender address
func (s *Sender) From() string {
	return s.config.FromEmail
}

// Send delivers one message. messageID is used as the Message-ID header
// (angle brackets included) so the CRM transcript refers to the same mail.
func (s *Sender) Send(ctx context.Context, to, subject, body, messageID string) error {
	msg, err := BuildMessage(s.config.FromName, s.config.FromEmail, to, subject, body, messageID, time.Now())
	if err != nil {
		return err
	}

	host, _, err := net.SplitHostPort(s.config.Server)
	if err != nil {
		return fmt.Errorf("invalid SMTP server %q: %w", s.config.Server, err)
	}

	c, err := smtp.DialTLS(s.config.Server, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer c.Close()

	timeout := s.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	// bound the whole session; go-smtp has no context support
	timer := time.AfterFunc(timeout, func() { c.Close() })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if err := c.Auth(sasl.NewPlainClient("", s.config.Username, s.config.Password)); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := c.SendMail(s.config.FromEmail, []string{to}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	if err := c.Quit(); err != nil {
		s.logger.Debug("quit failed", "error", err)
	}

	s.logger.Info("mail sent", "to", to, "subject", subject)
	return nil
}

// BuildMessage renders a UTF-8 text/plain RFC 5322 message
func BuildMessage(fromName, fromEmail, to, subject, body, messageID string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: fromEmail}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetMessageID(trimAngles(messageID))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return buf.Bytes(), nil
}

func trimAngles(id string) string {
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		return id[1 : len(id)-1]
	}
	return id
}
