package render

import (
	"embed"
	"slices"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const contentSlot = "<!-- content -->"

// Entry is one built-in template.
type Entry struct {
	Type      EventType
	Subject   string
	HTML      string
	Variables []string // declared variables, in display order
}

var catalog = []Entry{
	{
		Type:      EventWelcome,
		Subject:   "🎉 Benvenuto su {{serviceName}}!",
		Variables: []string{"name", "serviceName", "frontendUrl"},
	},
	{
		Type:      EventVerification,
		Subject:   "✉️ Verifica il tuo indirizzo email - {{serviceName}}",
		Variables: []string{"name", "serviceName", "verificationUrl", "frontendUrl"},
	},
	{
		Type:      EventPasswordReset,
		Subject:   "🔐 Reset Password - {{serviceName}}",
		Variables: []string{"name", "serviceName", "resetUrl", "frontendUrl"},
	},
	{
		Type:      EventPasswordChanged,
		Subject:   "✅ Password modificata - {{serviceName}}",
		Variables: []string{"name", "serviceName"},
	},
	{
		Type:      EventFriendRequest,
		Subject:   "👋 {{senderName}} ti ha inviato una richiesta di amicizia!",
		Variables: []string{"name", "senderName", "serviceName", "frontendUrl"},
	},
	{
		Type:      EventFriendAccepted,
		Subject:   "🎉 {{friendName}} ha accettato la tua richiesta di amicizia!",
		Variables: []string{"name", "friendName", "serviceName", "frontendUrl"},
	},
}

func init() {
	layout := mustReadTemplate("layout")
	for i := range catalog {
		body := mustReadTemplate(string(catalog[i].Type))
		catalog[i].HTML = strings.Replace(layout, contentSlot, strings.TrimRight(body, "\n"), 1)
	}
}

func mustReadTemplate(name string) string {
	b, err := templateFS.ReadFile("templates/" + name + ".html")
	if err != nil {
		panic("render: missing built-in template " + name + ": " + err.Error())
	}
	return string(b)
}

func lookup(t EventType) (Entry, bool) {
	i := slices.IndexFunc(catalog, func(e Entry) bool { return e.Type == t })
	if i < 0 {
		return Entry{}, false
	}
	return catalog[i], true
}

// Default returns the built-in content for t.
// There is no built-in content for EventCustom.
func Default(t EventType) (Content, bool) {
	e, ok := lookup(t)
	if !ok {
		return Content{}, false
	}
	return Content{Subject: e.Subject, HTML: e.HTML}, true
}

// RequiredVariables returns the variables declared by the built-in template for t.
func RequiredVariables(t EventType) []string {
	e, ok := lookup(t)
	if !ok {
		return []string{}
	}
	return slices.Clone(e.Variables)
}

// Catalog returns a copy of every built-in template, one per event type
// except EventCustom.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	for i, e := range catalog {
		e.Variables = slices.Clone(e.Variables)
		out[i] = e
	}
	return out
}
