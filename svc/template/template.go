// Package template manages per-tenant message templates and the cached set
// of active templates used at dispatch time.
//
// A tenant has at most one template per event type. The registry caches the
// active templates of a tenant as one set and drops the whole set whenever
// any template of that tenant changes.
package template

import (
	"slices"
	"time"

	"github.com/dmitrymomot/mailhub/svc/render"
)

// Template is tenant- and event-scoped content with {{variable}} placeholders.
type Template struct {
	ID                 string           `json:"id"`
	ServiceID          string           `json:"serviceId"`
	TemplateType       render.EventType `json:"templateType"`
	Subject            string           `json:"subject"`
	HTMLTemplate       string           `json:"htmlTemplate"`
	TextTemplate       string           `json:"textTemplate,omitempty"`
	AvailableVariables []string         `json:"availableVariables"`
	IsActive           bool             `json:"isActive"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Content returns the template bodies in the form the render engine takes.
func (t Template) Content() render.Content {
	return render.Content{Subject: t.Subject, HTML: t.HTMLTemplate, Text: t.TextTemplate}
}

// Set maps event types to the active templates of one tenant.
type Set map[render.EventType]Template

// Input holds the fields of a new template. A nil AvailableVariables is
// filled from DefaultVariables.
type Input struct {
	ServiceID          string
	TemplateType       render.EventType
	Subject            string
	HTMLTemplate       string
	TextTemplate       string
	AvailableVariables []string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Subject            *string
	HTMLTemplate       *string
	TextTemplate       *string
	AvailableVariables *[]string
	IsActive           *bool
}

// Apply returns a copy of t with the supplied fields merged in and
// UpdatedAt set to now.
func (t Template) Apply(p Patch, now time.Time) Template {
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.HTMLTemplate != nil {
		t.HTMLTemplate = *p.HTMLTemplate
	}
	if p.TextTemplate != nil {
		t.TextTemplate = *p.TextTemplate
	}
	if p.AvailableVariables != nil {
		t.AvailableVariables = slices.Clone(*p.AvailableVariables)
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	t.UpdatedAt = now
	return t
}

var defaultVariables = map[render.EventType][]string{
	render.EventWelcome:         {"name"},
	render.EventVerification:    {"name", "verificationToken", "verificationUrl"},
	render.EventPasswordReset:   {"name", "resetToken", "resetUrl"},
	render.EventPasswordChanged: {"name"},
	render.EventFriendRequest:   {"name", "senderName"},
	render.EventFriendAccepted:  {"name", "friendName"},
	render.EventCustom:          {},
}

// DefaultVariables returns the variables a caller supplies for t.
// Custom messages carry no template and get an empty list.
func DefaultVariables(t render.EventType) []string {
	v, ok := defaultVariables[t]
	if !ok {
		return []string{}
	}
	return slices.Clone(v)
}
