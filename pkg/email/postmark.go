package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkTransporter struct {
	client *postmark.Client
	config SMTPConfig
}

// NewPostmarkFactory returns a factory that delivers through the Postmark API.
// Postmark SMTP credentials are the server token, so the SMTP password is
// used as the token and the host and port are ignored.
func NewPostmarkFactory() TransportFactory {
	return FactoryFunc(newPostmarkTransporter)
}

func newPostmarkTransporter(cfg SMTPConfig) (Transporter, error) {
	if cfg.Password == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}

	return &postmarkTransporter{
		client: postmark.NewClient(cfg.Password, ""),
		config: cfg,
	}, nil
}

// Send implements Transporter using Postmark's transactional API.
// Opens and HTML link clicks are tracked.
func (t *postmarkTransporter) Send(ctx context.Context, msg Message) (string, error) {
	msg = withDefaults(msg, t.config)
	if err := msg.Validate(); err != nil {
		return "", err
	}

	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%q <%s>", msg.FromName, msg.FromEmail)
	}

	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:       from,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTML,
		TextBody:   msg.Text,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return resp.MessageID, nil
}

func (t *postmarkTransporter) Close() error { return nil }
