package tenant

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrymomot/mailhub/pkg/email"
)

const (
	// MaxServiceKeyLength keeps keys usable as URL path segments and cache keys.
	MaxServiceKeyLength = 63
)

// serviceKeyPattern: alphanumeric start, then letters, digits, hyphens or underscores
var serviceKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateServiceKey checks that key is usable as a tenant identifier.
func ValidateServiceKey(key string) error {
	if key == "" || len(key) > MaxServiceKeyLength || !serviceKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidServiceKey, key)
	}
	return nil
}

// Tenant is a registered mail service: its SMTP credentials, sender identity
// and branding.
type Tenant struct {
	ID                 string    `json:"id"`
	ServiceKey         string    `json:"serviceKey"`
	ServiceName        string    `json:"serviceName"`
	ServiceDescription string    `json:"serviceDescription,omitempty"`
	FrontendURL        string    `json:"frontendUrl"`
	LogoURL            string    `json:"logoUrl,omitempty"`
	SMTPHost           string    `json:"smtpHost"`
	SMTPPort           int       `json:"smtpPort"`
	SMTPSecure         bool      `json:"smtpSecure"`
	SMTPUser           string    `json:"smtpUser"`
	SMTPPassword       string    `json:"smtpPassword"`
	SenderName         string    `json:"senderName,omitempty"`
	SenderEmail        string    `json:"senderEmail,omitempty"`
	PrimaryColor       string    `json:"primaryColor,omitempty"`
	SecondaryColor     string    `json:"secondaryColor,omitempty"`
	BackgroundColor    string    `json:"backgroundColor,omitempty"`
	CardColor          string    `json:"cardColor,omitempty"`
	TextColor          string    `json:"textColor,omitempty"`
	MutedTextColor     string    `json:"mutedTextColor,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Sender returns the from identity, defaulting to the service name and the SMTP user.
func (t Tenant) Sender() (name, address string) {
	name, address = t.SenderName, t.SenderEmail
	if name == "" {
		name = t.ServiceName
	}
	if address == "" {
		address = t.SMTPUser
	}
	return name, address
}

// SMTPConfig returns the transport configuration for the tenant.
func (t Tenant) SMTPConfig() email.SMTPConfig {
	name, address := t.Sender()
	return email.SMTPConfig{
		Host:        t.SMTPHost,
		Port:        t.SMTPPort,
		Secure:      t.SMTPSecure,
		User:        t.SMTPUser,
		Password:    t.SMTPPassword,
		SenderName:  name,
		SenderEmail: address,
	}
}

// Input holds the fields of a new tenant.
type Input struct {
	ServiceKey         string
	ServiceName        string
	ServiceDescription string
	FrontendURL        string
	LogoURL            string
	SMTPHost           string
	SMTPPort           int
	SMTPSecure         bool
	SMTPUser           string
	SMTPPassword       string
	SenderName         string
	SenderEmail        string
	PrimaryColor       string
	SecondaryColor     string
	BackgroundColor    string
	CardColor          string
	TextColor          string
	MutedTextColor     string
}

func (in Input) toTenant(id string, now time.Time) Tenant {
	return Tenant{
		ID:                 id,
		ServiceKey:         in.ServiceKey,
		ServiceName:        in.ServiceName,
		ServiceDescription: in.ServiceDescription,
		FrontendURL:        in.FrontendURL,
		LogoURL:            in.LogoURL,
		SMTPHost:           in.SMTPHost,
		SMTPPort:           in.SMTPPort,
		SMTPSecure:         in.SMTPSecure,
		SMTPUser:           in.SMTPUser,
		SMTPPassword:       in.SMTPPassword,
		SenderName:         in.SenderName,
		SenderEmail:        in.SenderEmail,
		PrimaryColor:       in.PrimaryColor,
		SecondaryColor:     in.SecondaryColor,
		BackgroundColor:    in.BackgroundColor,
		CardColor:          in.CardColor,
		TextColor:          in.TextColor,
		MutedTextColor:     in.MutedTextColor,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
// The service key is immutable and has no patch field.
type Patch struct {
	ServiceName        *string
	ServiceDescription *string
	FrontendURL        *string
	LogoURL            *string
	SMTPHost           *string
	SMTPPort           *int
	SMTPSecure         *bool
	SMTPUser           *string
	SMTPPassword       *string
	SenderName         *string
	SenderEmail        *string
	PrimaryColor       *string
	SecondaryColor     *string
	BackgroundColor    *string
	CardColor          *string
	TextColor          *string
	MutedTextColor     *string
	IsActive           *bool
}

// TouchesSMTP reports whether the patch changes connection settings or credentials.
func (p Patch) TouchesSMTP() bool {
	return p.SMTPHost != nil || p.SMTPPort != nil || p.SMTPSecure != nil ||
		p.SMTPUser != nil || p.SMTPPassword != nil
}

// Apply returns a copy of t with the supplied patch fields merged in and
// UpdatedAt set to now.
func (t Tenant) Apply(p Patch, now time.Time) Tenant {
	set(&t.ServiceName, p.ServiceName)
	set(&t.ServiceDescription, p.ServiceDescription)
	set(&t.FrontendURL, p.FrontendURL)
	set(&t.LogoURL, p.LogoURL)
	set(&t.SMTPHost, p.SMTPHost)
	set(&t.SMTPPort, p.SMTPPort)
	set(&t.SMTPSecure, p.SMTPSecure)
	set(&t.SMTPUser, p.SMTPUser)
	set(&t.SMTPPassword, p.SMTPPassword)
	set(&t.SenderName, p.SenderName)
	set(&t.SenderEmail, p.SenderEmail)
	set(&t.PrimaryColor, p.PrimaryColor)
	set(&t.SecondaryColor, p.SecondaryColor)
	set(&t.BackgroundColor, p.BackgroundColor)
	set(&t.CardColor, p.CardColor)
	set(&t.TextColor, p.TextColor)
	set(&t.MutedTextColor, p.MutedTextColor)
	set(&t.IsActive, p.IsActive)
	t.UpdatedAt = now
	return t
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
