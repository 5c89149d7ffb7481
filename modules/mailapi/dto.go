package mailapi

import (
	"github.com/dmitrymomot/mailhub/svc/render"
	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

const redactedPassword = "***"

type recipient struct {
	ServiceKey string `json:"serviceKey" validate:"required,notblank"`
	To         string `json:"to" validate:"required,email"`
	Name       string `json:"name" validate:"required,notblank"`
}

type welcomeRequest struct {
	recipient
}

type verificationRequest struct {
	recipient
	VerificationToken string `json:"verificationToken" validate:"required,notblank"`
	VerificationURL   string `json:"verificationUrl" validate:"required,url"`
}

type passwordResetRequest struct {
	recipient
	ResetToken string `json:"resetToken" validate:"required,notblank"`
	ResetURL   string `json:"resetUrl" validate:"required,url"`
}

type passwordChangedRequest struct {
	recipient
}

type friendRequestRequest struct {
	recipient
	SenderName string `json:"senderName" validate:"required,notblank"`
}

type friendAcceptedRequest struct {
	recipient
	FriendName string `json:"friendName" validate:"required,notblank"`
}

type customRequest struct {
	ServiceKey string `json:"serviceKey" validate:"required,notblank"`
	To         string `json:"to" validate:"required,email"`
	Subject    string `json:"subject" validate:"required,notblank"`
	HTML       string `json:"html" validate:"required,notblank"`
	Text       string `json:"text"`
}

type templateSendRequest struct {
	ServiceKey   string            `json:"serviceKey" validate:"required,notblank"`
	To           string            `json:"to" validate:"required,email"`
	TemplateType string            `json:"templateType" validate:"required"`
	Variables    map[string]string `json:"variables"`
}

type createServiceRequest struct {
	ServiceKey         string `json:"serviceKey" validate:"required,max=63"`
	ServiceName        string `json:"serviceName" validate:"required,notblank"`
	ServiceDescription string `json:"serviceDescription"`
	FrontendURL        string `json:"frontendUrl" validate:"required,notblank"`
	LogoURL            string `json:"logoUrl"`
	SMTPHost           string `json:"smtpHost" validate:"required,notblank"`
	SMTPPort           int    `json:"smtpPort" validate:"min=1,max=65535"`
	SMTPSecure         bool   `json:"smtpSecure"`
	SMTPUser           string `json:"smtpUser" validate:"required,notblank"`
	SMTPPassword       string `json:"smtpPassword" validate:"required"`
	SenderName         string `json:"senderName"`
	SenderEmail        string `json:"senderEmail" validate:"omitempty,email"`
	PrimaryColor       string `json:"primaryColor"`
	SecondaryColor     string `json:"secondaryColor"`
	BackgroundColor    string `json:"backgroundColor"`
	CardColor          string `json:"cardColor"`
	TextColor          string `json:"textColor"`
	MutedTextColor     string `json:"mutedTextColor"`
}

func (r createServiceRequest) input() tenant.Input {
	return tenant.Input{
		ServiceKey:         r.ServiceKey,
		ServiceName:        r.ServiceName,
		ServiceDescription: r.ServiceDescription,
		FrontendURL:        r.FrontendURL,
		LogoURL:            r.LogoURL,
		SMTPHost:           r.SMTPHost,
		SMTPPort:           r.SMTPPort,
		SMTPSecure:         r.SMTPSecure,
		SMTPUser:           r.SMTPUser,
		SMTPPassword:       r.SMTPPassword,
		SenderName:         r.SenderName,
		SenderEmail:        r.SenderEmail,
		PrimaryColor:       r.PrimaryColor,
		SecondaryColor:     r.SecondaryColor,
		BackgroundColor:    r.BackgroundColor,
		CardColor:          r.CardColor,
		TextColor:          r.TextColor,
		MutedTextColor:     r.MutedTextColor,
	}
}

type updateServiceRequest struct {
	ServiceName        *string `json:"serviceName" validate:"omitempty,notblank"`
	ServiceDescription *string `json:"serviceDescription"`
	FrontendURL        *string `json:"frontendUrl"`
	LogoURL            *string `json:"logoUrl"`
	SMTPHost           *string `json:"smtpHost" validate:"omitempty,notblank"`
	SMTPPort           *int    `json:"smtpPort" validate:"omitempty,min=1,max=65535"`
	SMTPSecure         *bool   `json:"smtpSecure"`
	SMTPUser           *string `json:"smtpUser"`
	SMTPPassword       *string `json:"smtpPassword"`
	SenderName         *string `json:"senderName"`
	SenderEmail        *string `json:"senderEmail" validate:"omitempty,email"`
	PrimaryColor       *string `json:"primaryColor"`
	SecondaryColor     *string `json:"secondaryColor"`
	BackgroundColor    *string `json:"backgroundColor"`
	CardColor          *string `json:"cardColor"`
	TextColor          *string `json:"textColor"`
	MutedTextColor     *string `json:"mutedTextColor"`
	IsActive           *bool   `json:"isActive"`
}

func (r updateServiceRequest) patch() tenant.Patch {
	return tenant.Patch{
		ServiceName:        r.ServiceName,
		ServiceDescription: r.ServiceDescription,
		FrontendURL:        r.FrontendURL,
		LogoURL:            r.LogoURL,
		SMTPHost:           r.SMTPHost,
		SMTPPort:           r.SMTPPort,
		SMTPSecure:         r.SMTPSecure,
		SMTPUser:           r.SMTPUser,
		SMTPPassword:       r.SMTPPassword,
		SenderName:         r.SenderName,
		SenderEmail:        r.SenderEmail,
		PrimaryColor:       r.PrimaryColor,
		SecondaryColor:     r.SecondaryColor,
		BackgroundColor:    r.BackgroundColor,
		CardColor:          r.CardColor,
		TextColor:          r.TextColor,
		MutedTextColor:     r.MutedTextColor,
		IsActive:           r.IsActive,
	}
}

type createTemplateRequest struct {
	TemplateType       string   `json:"templateType" validate:"required"`
	Subject            string   `json:"subject" validate:"required,notblank"`
	HTMLTemplate       string   `json:"htmlTemplate" validate:"required,notblank"`
	TextTemplate       string   `json:"textTemplate"`
	AvailableVariables []string `json:"availableVariables"`
}

func (r createTemplateRequest) input(serviceID string) template.Input {
	return template.Input{
		ServiceID:          serviceID,
		TemplateType:       render.EventType(r.TemplateType),
		Subject:            r.Subject,
		HTMLTemplate:       r.HTMLTemplate,
		TextTemplate:       r.TextTemplate,
		AvailableVariables: r.AvailableVariables,
	}
}

type updateTemplateRequest struct {
	Subject            *string   `json:"subject" validate:"omitempty,notblank"`
	HTMLTemplate       *string   `json:"htmlTemplate" validate:"omitempty,notblank"`
	TextTemplate       *string   `json:"textTemplate"`
	AvailableVariables *[]string `json:"availableVariables"`
	IsActive           *bool     `json:"isActive"`
}

func (r updateTemplateRequest) patch() template.Patch {
	return template.Patch{
		Subject:            r.Subject,
		HTMLTemplate:       r.HTMLTemplate,
		TextTemplate:       r.TextTemplate,
		AvailableVariables: r.AvailableVariables,
		IsActive:           r.IsActive,
	}
}

// redact hides the SMTP password from every admin response.
func redact(t tenant.Tenant) tenant.Tenant {
	t.SMTPPassword = redactedPassword
	return t
}

func redactAll(ts []tenant.Tenant) []tenant.Tenant {
	out := make([]tenant.Tenant, len(ts))
	for i, t := range ts {
		out[i] = redact(t)
	}
	return out
}
