package email

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// DefaultSMTPTimeout bounds dialing and each SMTP command.
const DefaultSMTPTimeout = 30 * time.Second

type smtpTransporter struct {
	client *mail.Client
	config SMTPConfig
	mu     sync.Mutex // go-mail clients hold one connection at a time
}

// NewSMTPFactory returns a factory for SMTP transporters.
// Secure configs use implicit TLS; others attempt STARTTLS and fall back to
// plain text. PLAIN auth is used whenever a user is configured.
func NewSMTPFactory() TransportFactory {
	return FactoryFunc(newSMTPTransporter)
}

func newSMTPTransporter(cfg SMTPConfig) (Transporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithTimeout(DefaultSMTPTimeout)}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	// port last: the TLS policy option may reset it to a default
	opts = append(opts, mail.WithPort(cfg.Port))

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &smtpTransporter{client: client, config: cfg}, nil
}

// Send builds a MIME message with an HTML body and an optional plain-text
// alternative, then dials, sends and disconnects.
func (t *smtpTransporter) Send(ctx context.Context, msg Message) (string, error) {
	msg = withDefaults(msg, t.config)
	if err := msg.Validate(); err != nil {
		return "", err
	}

	m := mail.NewMsg()
	if err := m.FromFormat(msg.FromName, msg.FromEmail); err != nil {
		return "", fmt.Errorf("%w: invalid sender: %v", ErrInvalidMessage, err)
	}
	if err := m.To(msg.To); err != nil {
		return "", fmt.Errorf("%w: invalid recipient: %v", ErrInvalidMessage, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		m.AddAlternativeString(mail.TypeTextPlain, msg.Text)
	}

	id := uuid.NewString() + "@" + t.config.senderDomain()
	m.SetMessageIDWithValue(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}

	return "<" + id + ">", nil
}

func (t *smtpTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
