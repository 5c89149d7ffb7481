// Package email delivers rendered messages through a per-tenant transport.
//
// The package is built around two small interfaces. A Transporter sends one
// fully rendered Message and reports the message id assigned to it. A
// TransportFactory builds a Transporter from a tenant's SMTPConfig, which lets
// callers cache transporters per tenant and rebuild them when credentials
// change.
//
// # Implementations
//
//   - NewSMTPFactory delivers over SMTP with github.com/wneessen/go-mail
//   - NewPostmarkFactory delivers through the Postmark HTTP API
//   - NewDevFactory writes HTML and JSON files to disk for local development
//   - NewRouterFactory picks one of the above by SMTP host suffix
//
// # Usage
//
//	factory := email.NewRouterFactory(
//	    email.NewSMTPFactory(),
//	    email.Route{HostSuffix: "postmarkapp.com", Factory: email.NewPostmarkFactory()},
//	)
//
//	tr, err := factory.New(email.SMTPConfig{
//	    Host:        "smtp.acme.test",
//	    Port:        587,
//	    User:        "mailer@acme.test",
//	    Password:    "secret",
//	    SenderName:  "Acme",
//	    SenderEmail: "noreply@acme.test",
//	})
//	if err != nil {
//	    return err
//	}
//	defer tr.Close()
//
//	id, err := tr.Send(ctx, email.Message{
//	    To:      "user@example.com",
//	    Subject: "Welcome!",
//	    HTML:    html,
//	    Tag:     "welcome",
//	})
//
// # Error Handling
//
// Sentinel errors are checked with errors.Is:
//   - ErrInvalidConfig: the SMTP configuration cannot build a transporter
//   - ErrInvalidMessage: the message fails validation before sending
//   - ErrFailedToSendEmail: delivery failed
package email
