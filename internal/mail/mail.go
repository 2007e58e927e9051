// Package mail renders customer emails. Delivery is pluggable; the default
// sender only logs, there is no SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender "sends" by writing the message to the log.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "Mock email sent", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

type Mailer struct {
	templates *TemplateCache
	sender    Sender
	storeName string
}

func New(sender Sender, storeName string) (*Mailer, error) {
	tc := NewTemplateCache()
	if err := tc.Load(templateFS, "templates"); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	if storeName == "" {
		storeName = models.DefaultSettings().StoreName
	}
	return &Mailer{templates: tc, sender: sender, storeName: storeName}, nil
}

func (m *Mailer) render(name string, data any) (subject, body string, err error) {
	tmpl := m.templates.Get(name)
	if tmpl == nil {
		return "", "", fmt.Errorf("template %s not found", name)
	}
	var sb, bb bytes.Buffer
	if err := tmpl.ExecuteTemplate(&sb, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.ExecuteTemplate(&bb, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}

func (m *Mailer) send(ctx context.Context, to, name string, data any) error {
	if to == "" {
		slog.Warn("Skipping email without recipient", "template", name)
		return nil
	}
	subject, body, err := m.render(name, data)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: to, Subject: subject, Body: body})
}

type orderData struct {
	Store string
	Order models.Order
}

func (m *Mailer) OrderConfirmation(ctx context.Context, o models.Order) error {
	return m.send(ctx, o.CustomerInfo.Email, "order_confirmation.tmpl", orderData{Store: m.storeName, Order: o})
}

func (m *Mailer) OrderStatusChanged(ctx context.Context, o models.Order) error {
	return m.send(ctx, o.CustomerInfo.Email, "order_status.tmpl", orderData{Store: m.storeName, Order: o})
}

func (m *Mailer) PasswordReset(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "password_reset.tmpl", struct {
		Store, Name, Link string
	}{m.storeName, name, link})
}
