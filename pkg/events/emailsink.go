package events

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the mail server settings for the email sink.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// EmailSink mails an operator a summary when a batch run completes with
// failures. All other events are ignored.
type EmailSink struct {
	config SMTPConfig
	client *mail.Client
	to     string
}

// NewEmailSink creates a sink that delivers failure summaries to the given
// address.
func NewEmailSink(config SMTPConfig, to string) (*EmailSink, error) {
	if to == "" {
		return nil, fmt.Errorf("email sink requires a recipient address")
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &EmailSink{config: config, client: client, to: to}, nil
}

// Notify implements Sink.
func (e *EmailSink) Notify(event Event) {
	if event.Kind != BulkImportCompleted || event.Summary == nil || event.Summary.Failed == 0 {
		return
	}

	summary := event.Summary

	var body strings.Builder
	fmt.Fprintf(&body, "Directory import completed with %d failure(s).\n\n", summary.Failed)
	fmt.Fprintf(&body, "Candidates: %d\n", summary.Candidates)
	fmt.Fprintf(&body, "Created: %d\nUpdated: %d\nRestored: %d\n", summary.Created, summary.Updated, summary.Restored)
	fmt.Fprintf(&body, "Soft-deleted: %d\nDeleted missing: %d\n", summary.SoftDeleted, summary.DeletedMissing)

	msg := mail.NewMsg()
	if err := msg.From(e.config.From); err != nil {
		slog.Error("failed to set mail sender", "from", e.config.From, "err", err)
		return
	}
	if err := msg.To(e.to); err != nil {
		slog.Error("failed to set mail recipient", "to", e.to, "err", err)
		return
	}
	msg.Subject(fmt.Sprintf("Directory import: %d failed", summary.Failed))
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("failed to send import summary email", "to", e.to, "err", err)
	}
}
