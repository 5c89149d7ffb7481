package render

import (
	"maps"
	"strconv"
	"time"
)

// Styling defaults applied when a tenant leaves a color unset.
const (
	DefaultPrimaryColor    = "#e94560"
	DefaultSecondaryColor  = "#0f3460"
	DefaultBackgroundColor = "#0f0f23"
	DefaultCardColor       = "#1a1a2e"
	DefaultTextColor       = "#f1f1f1"
	DefaultMutedTextColor  = "#a0a0a0"
)

// Content is a subject with HTML and optional plain-text bodies,
// either as a template or rendered.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Branding is the tenant identity and styling merged into every render.
// Empty colors fall back to the package defaults.
type Branding struct {
	ServiceName     string
	FrontendURL     string
	LogoURL         string
	PrimaryColor    string
	SecondaryColor  string
	BackgroundColor string
	CardColor       string
	TextColor       string
	MutedTextColor  string
}

// Engine renders templates. It is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for the {{year}} variable.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variables builds the bag used for substitution: styling tokens, service
// identity and the current year, overlaid by vars. Caller variables win.
func (e *Engine) Variables(b Branding, vars map[string]string) map[string]string {
	primary := orDefault(b.PrimaryColor, DefaultPrimaryColor)
	background := orDefault(b.BackgroundColor, DefaultBackgroundColor)

	bag := map[string]string{
		"primaryColor":      primary,
		"secondaryColor":    orDefault(b.SecondaryColor, DefaultSecondaryColor),
		"backgroundColor":   background,
		"cardColor":         orDefault(b.CardColor, DefaultCardColor),
		"textColor":         orDefault(b.TextColor, DefaultTextColor),
		"mutedTextColor":    orDefault(b.MutedTextColor, DefaultMutedTextColor),
		"primaryColorLight": primary,
		"footerColor":       background,
		"serviceName":       b.ServiceName,
		"frontendUrl":       b.FrontendURL,
		"logoUrl":           b.LogoURL,
		"year":              strconv.Itoa(e.now().Year()),
	}
	maps.Copy(bag, vars)
	return bag
}

// Render resolves the logo conditional and then substitutes variables in
// the subject and both bodies. Placeholders without a value are kept as-is.
func (e *Engine) Render(c Content, b Branding, vars map[string]string) Content {
	bag := e.Variables(b, vars)
	hasLogo := bag["logoUrl"] != ""

	return Content{
		Subject: apply(c.Subject, bag, hasLogo),
		HTML:    apply(c.HTML, bag, hasLogo),
		Text:    apply(c.Text, bag, hasLogo),
	}
}

// Default returns the built-in content for t. See the package-level Default.
func (e *Engine) Default(t EventType) (Content, bool) { return Default(t) }

// RequiredVariables returns the declared variables of the built-in template for t.
func (e *Engine) RequiredVariables(t EventType) []string { return RequiredVariables(t) }

// Catalog returns every built-in template.
func (e *Engine) Catalog() []Entry { return Catalog() }

func apply(s string, bag map[string]string, hasLogo bool) string {
	if s == "" {
		return ""
	}
	return substitute(resolveLogoBlocks(s, hasLogo), bag)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
