package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailhub/pkg/email"
)

func validMessage() email.Message {
	return email.Message{
		To:        "user@example.com",
		FromName:  "Acme",
		FromEmail: "noreply@acme.test",
		Subject:   "Welcome",
		HTML:      "<p>Ciao</p>",
		Tag:       "welcome",
	}
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.Message)
		errMsg string
	}{
		{name: "valid", mutate: func(*email.Message) {}},
		{name: "empty recipient", mutate: func(m *email.Message) { m.To = "" }, errMsg: "recipient is required"},
		{name: "invalid recipient", mutate: func(m *email.Message) { m.To = "not-an-email" }, errMsg: "valid email address"},
		{name: "missing sender", mutate: func(m *email.Message) { m.FromEmail = "" }, errMsg: "sender email is required"},
		{name: "blank subject", mutate: func(m *email.Message) { m.Subject = "   " }, errMsg: "subject is required"},
		{name: "empty html", mutate: func(m *email.Message) { m.HTML = "" }, errMsg: "html body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := validMessage()
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, email.ErrInvalidMessage)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSMTPConfig_Fingerprint(t *testing.T) {
	t.Parallel()

	base := email.SMTPConfig{Host: "smtp.acme.test", Port: 587, User: "u", Password: "p", SenderEmail: "a@acme.test"}
	same := base
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())

	changed := base
	changed.Password = "rotated"
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())

	secure := base
	secure.Secure = true
	assert.NotEqual(t, base.Fingerprint(), secure.Fingerprint())
}

func TestDevFactory_Send(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outbox")
	tr, err := email.NewDevFactory(dir).New(email.SMTPConfig{
		Host:        "smtp.acme.test",
		SenderName:  "Acme",
		SenderEmail: "noreply@acme.test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	msg := validMessage()
	msg.FromName, msg.FromEmail = "", ""
	msg.Text = "Ciao"

	id, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	assert.Contains(t, htmlFile, "_welcome_")
	assert.Equal(t, strings.TrimSuffix(htmlFile, ".html"), strings.TrimSuffix(jsonFile, ".json"))

	html, err := os.ReadFile(filepath.Join(dir, htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>Ciao</p>", string(html))

	raw, err := os.ReadFile(filepath.Join(dir, jsonFile))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, id, meta["message_id"])
	assert.Equal(t, "Acme <noreply@acme.test>", meta["from"])
	assert.Equal(t, "user@example.com", meta["to"])
	assert.Equal(t, "Ciao", meta["text"])
}

func TestDevFactory_InvalidMessage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr, err := email.NewDevFactory(dir).New(email.SMTPConfig{SenderEmail: "noreply@acme.test"})
	require.NoError(t, err)

	msg := validMessage()
	msg.To = ""
	_, err = tr.Send(context.Background(), msg)
	assert.ErrorIs(t, err, email.ErrInvalidMessage)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDevFactory_RequiresDir(t *testing.T) {
	t.Parallel()
	_, err := email.NewDevFactory("").New(email.SMTPConfig{})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

type stubTransporter struct{ name string }

func (s stubTransporter) Send(context.Context, email.Message) (string, error) { return s.name, nil }
func (s stubTransporter) Close() error                                       { return nil }

func stubFactory(name string) email.TransportFactory {
	return email.FactoryFunc(func(email.SMTPConfig) (email.Transporter, error) {
		return stubTransporter{name: name}, nil
	})
}

func TestRouterFactory(t *testing.T) {
	t.Parallel()

	router := email.NewRouterFactory(
		stubFactory("smtp"),
		email.Route{HostSuffix: "postmarkapp.com", Factory: stubFactory("postmark")},
		email.Route{HostSuffix: ".local", Factory: stubFactory("dev")},
	)

	tests := []struct {
		host string
		want string
	}{
		{host: "smtp.postmarkapp.com", want: "postmark"},
		{host: "SMTP.PostmarkApp.com", want: "postmark"},
		{host: "mail.local", want: "dev"},
		{host: "smtp.acme.test", want: "smtp"},
		{host: "", want: "smtp"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			tr, err := router.New(email.SMTPConfig{Host: tt.host})
			require.NoError(t, err)
			got, err := tr.Send(context.Background(), email.Message{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSMTPFactory_InvalidConfig(t *testing.T) {
	t.Parallel()

	factory := email.NewSMTPFactory()

	_, err := factory.New(email.SMTPConfig{Port: 587, SenderEmail: "a@acme.test"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = factory.New(email.SMTPConfig{Host: "smtp.acme.test", Port: 0, SenderEmail: "a@acme.test"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	tr, err := factory.New(email.SMTPConfig{Host: "smtp.acme.test", Port: 465, Secure: true, User: "u", Password: "p", SenderEmail: "a@acme.test"})
	require.NoError(t, err)
	assert.NoError(t, tr.Close())
}

func TestSMTPFactory_SendRejectsInvalidMessage(t *testing.T) {
	t.Parallel()

	tr, err := email.NewSMTPFactory().New(email.SMTPConfig{Host: "smtp.acme.test", Port: 587, SenderEmail: "a@acme.test"})
	require.NoError(t, err)

	msg := validMessage()
	msg.HTML = ""
	_, err = tr.Send(context.Background(), msg)
	assert.ErrorIs(t, err, email.ErrInvalidMessage)
}

func TestPostmarkFactory_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmarkFactory().New(email.SMTPConfig{SenderEmail: "a@acme.test"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	tr, err := email.NewPostmarkFactory().New(email.SMTPConfig{Password: "server-token", SenderEmail: "a@acme.test"})
	require.NoError(t, err)
	assert.NoError(t, tr.Close())
}
