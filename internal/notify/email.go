package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/wneessen/go-mail"

	"budgetwatch/internal/config"
	"budgetwatch/internal/models"
)

var emailTemplate = template.Must(template.New("alert").Parse(`Hello{{with .Name}} {{.}}{{end}},

{{.Body}}

You are receiving this because a budget on your budgetwatch account crossed its alert threshold.
`))

// mailSender is the part of *mail.Client the notifier uses.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier delivers alerts over SMTP to the budget owner's address.
type EmailNotifier struct {
	from   string
	client mailSender
}

// NewEmailNotifier creates an SMTP notifier from cfg.
func NewEmailNotifier(cfg config.NotifyConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, err
	}
	return &EmailNotifier{from: cfg.SMTPFrom, client: client}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

// Send mails body to the recipient's address, greeting them by name.
func (e *EmailNotifier) Send(ctx context.Context, to models.Recipient, subject, body string) error {
	msg, err := e.buildMessage(to, subject, body)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email alert: %w", err)
	}
	return nil
}

func (e *EmailNotifier) buildMessage(to models.Recipient, subject, body string) (*mail.Msg, error) {
	if to.Address == "" {
		return nil, fmt.Errorf("email alert has no recipient")
	}

	name := to.Name
	if name == to.Address {
		name = ""
	}
	rendered, err := renderEmailBody(name, body)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.from, err)
	}
	var addErr error
	if name != "" {
		addErr = msg.AddToFormat(name, to.Address)
	} else {
		addErr = msg.To(to.Address)
	}
	if addErr != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to.Address, addErr)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, rendered)
	return msg, nil
}

func renderEmailBody(name, body string) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, struct{ Name, Body string }{name, body}); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
