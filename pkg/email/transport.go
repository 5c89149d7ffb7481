package email

import "context"

// Transporter delivers messages for a single tenant configuration.
type Transporter interface {
	// Send delivers msg and returns the id assigned to it.
	Send(ctx context.Context, msg Message) (messageID string, err error)
	// Close releases any resources held by the transporter.
	Close() error
}

// TransportFactory builds transporters from tenant SMTP configuration.
type TransportFactory interface {
	New(cfg SMTPConfig) (Transporter, error)
}

// FactoryFunc adapts a function to TransportFactory.
type FactoryFunc func(cfg SMTPConfig) (Transporter, error)

// New calls f(cfg).
func (f FactoryFunc) New(cfg SMTPConfig) (Transporter, error) {
	return f(cfg)
}

// withDefaults fills sender fields missing from msg with the tenant identity.
func withDefaults(msg Message, cfg SMTPConfig) Message {
	if msg.FromEmail == "" {
		msg.FromEmail = cfg.SenderEmail
	}
	if msg.FromName == "" {
		msg.FromName = cfg.SenderName
	}
	return msg
}
