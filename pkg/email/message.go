package email

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Message is a fully rendered email ready for delivery.
type Message struct {
	To        string `json:"to"`
	FromName  string `json:"from_name,omitempty"`
	FromEmail string `json:"from_email"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	Text      string `json:"text,omitempty"`
	Tag       string `json:"tag,omitempty"` // event type, used for provider analytics
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidMessage)
	}
	if m.FromEmail == "" {
		return fmt.Errorf("%w: sender email is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("%w: html body is required", ErrInvalidMessage)
	}
	return nil
}

// SMTPConfig is the per-tenant connection and sender identity.
type SMTPConfig struct {
	Host        string
	Port        int
	Secure      bool // implicit TLS; STARTTLS is attempted otherwise
	User        string
	Password    string
	SenderName  string
	SenderEmail string
}

// Validate checks that a transporter can be built from the config.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidConfig)
	}
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	return nil
}

// Fingerprint identifies the connection settings and credentials.
// Two configs with the same fingerprint can share a transporter.
func (c SMTPConfig) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		c.Host, strconv.Itoa(c.Port), strconv.FormatBool(c.Secure),
		c.User, c.Password, c.SenderName, c.SenderEmail,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// senderDomain returns the domain part of the sender address, used to build message ids.
func (c SMTPConfig) senderDomain() string {
	if i := strings.LastIndexByte(c.SenderEmail, '@'); i >= 0 && i < len(c.SenderEmail)-1 {
		return c.SenderEmail[i+1:]
	}
	return c.Host
}
