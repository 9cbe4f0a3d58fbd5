// Package smtp delivers mail through an SMTP relay.
package smtp

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/utafrali/storefront/internal/mail"
)

// Config holds relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// client is the part of *gomail.Client the sender needs.
type client interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*gomail.Msg) error
}

// Sender implements mail.Sender over SMTP.
type Sender struct {
	from   string
	client client
}

// NewSender creates an SMTP sender. PLAIN auth is used when a username is set
// and STARTTLS is negotiated when the relay offers it.
func NewSender(cfg Config) (*Sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	c, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", cfg.Host, err)
	}
	return NewSenderWithClient(cfg, c), nil
}

// NewSenderWithClient creates a sender that delivers through c.
func NewSenderWithClient(cfg Config, c client) *Sender {
	return &Sender{from: cfg.From, client: c}
}

// Name returns the name of this sender.
func (s *Sender) Name() string {
	return "smtp"
}

// Send delivers msg as a base64 encoded UTF-8 text/html message.
func (s *Sender) Send(ctx context.Context, msg *mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *Sender) build(msg *mail.Message) (*gomail.Msg, error) {
	m := gomail.NewMsg(
		gomail.WithEncoding(gomail.EncodingB64),
		gomail.WithCharset(gomail.CharsetUTF8),
	)
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("smtp sender address %q: %w", s.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}
