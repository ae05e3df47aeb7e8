// Package mail delivers push notification emails.
package mail

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/refgate/refgate/pkg/config"
)

// Message is one notification email before encoding.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string

	// Headers carries extra message headers, such as the reference
	// the notification is about.
	Headers map[string]string
}

// build encodes the message.
func (m *Message) build() (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", m.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient addresses %q: %w", m.To, err)
	}
	if err := msg.Cc(m.Cc...); err != nil {
		return nil, fmt.Errorf("invalid cc addresses %q: %w", m.Cc, err)
	}
	if err := msg.Bcc(m.Bcc...); err != nil {
		return nil, fmt.Errorf("invalid bcc addresses %q: %w", m.Bcc, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	for k, v := range m.Headers {
		msg.SetGenHeader(mail.Header(k), v)
	}
	return msg, nil
}

// Sender delivers notification emails.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// NewSender selects the delivery mechanism from the configuration.
func NewSender(cfg *config.MailConfig) (Sender, error) {
	switch cfg.Protocol {
	case "smtp":
		return newSMTPSender(cfg)
	case "", "sendmail":
		return &SendmailSender{Path: cfg.SendmailPath}, nil
	case "dummy":
		return &DummySender{}, nil
	}
	return nil, fmt.Errorf("unknown mail protocol %q", cfg.Protocol)
}

// SMTPSender delivers through an SMTP server.
type SMTPSender struct {
	client *mail.Client
}

func newSMTPSender(cfg *config.MailConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client}, nil
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	msg, err := m.build()
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// DummySender drops messages. Useful in testing setups where pushes
// must not generate email.
type DummySender struct {
	// Sent records the dropped messages for inspection.
	Sent []*Message
}

// Send implements Sender.
func (s *DummySender) Send(_ context.Context, m *Message) error {
	if _, err := m.build(); err != nil {
		return err
	}
	s.Sent = append(s.Sent, m)
	return nil
}
