package mailer

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or an explicit Subject with Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // welcome, login_notification, profile_updated
	Data     map[string]any `json:"data,omitempty"`
}

// Message is a fully rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

var (
	ErrNoRecipient     = errors.New("email job has no valid recipient")
	ErrUnknownTemplate = errors.New("email job references an unknown template")
	ErrEmptyBody       = errors.New("email job has no body")
)

// Compose renders the job into a Message. opts are applied to template data,
// typically templates.WithBrand so the worker fills company details.
func (j EmailJob) Compose(opts ...templates.Option) (Message, error) {
	to := strings.TrimSpace(j.To)
	if _, err := mail.ParseAddress(to); err != nil {
		return Message{}, fmt.Errorf("%w: %q", ErrNoRecipient, j.To)
	}

	if j.Template == "" {
		if j.Text == "" && j.HTML == "" {
			return Message{}, ErrEmptyBody
		}
		return Message{To: to, Subject: j.Subject, Text: j.Text, HTML: j.HTML}, nil
	}

	if !templates.Known(j.Template) {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, j.Template)
	}
	data, err := templates.FromMap(j.Data)
	if err != nil {
		return Message{}, fmt.Errorf("decode template data: %w", err)
	}
	if data.RecipientEmail == "" {
		data.RecipientEmail = to
	}
	for _, o := range opts {
		o(&data)
	}
	subject, text, html, err := templates.Render(j.Template, data)
	if err != nil {
		return Message{}, err
	}
	if j.Subject != "" {
		subject = j.Subject
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html}, nil
}
