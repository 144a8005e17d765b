package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Sender delivers account and order mail.
type Sender interface {
	SendVerificationEmail(ctx context.Context, email, code string) error
	SendOrderNotification(ctx context.Context, email, orderID string) error
}

// MailgunSender sends through the Mailgun messages API.
type MailgunSender struct {
	apiKey     string
	domainName string
	from       string
	client     *http.Client
	logger     *slog.Logger
}

func NewMailgunSender(apiKey, domainName, from string, client *http.Client, logger *slog.Logger) *MailgunSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &MailgunSender{
		apiKey:     apiKey,
		domainName: domainName,
		from:       from,
		client:     client,
		logger:     logger,
	}
}

func (m *MailgunSender) SendVerificationEmail(ctx context.Context, email, code string) error {
	return m.send(ctx, email, "Verify your email",
		fmt.Sprintf("Please verify your email with code %s", code))
}

func (m *MailgunSender) SendOrderNotification(ctx context.Context, email, orderID string) error {
	return m.send(ctx, email, "You have a new order",
		fmt.Sprintf("Order %s is waiting for you", orderID))
}

func (m *MailgunSender) send(ctx context.Context, to, subject, text string) error {
	form := url.Values{}
	form.Set("from", m.from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", text)

	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", m.domainName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.SetBasicAuth("api", m.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mailgun responded with status %d", resp.StatusCode)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

// NopSender drops all mail. Used when no mail credentials are configured.
type NopSender struct{}

func (NopSender) SendVerificationEmail(context.Context, string, string) error { return nil }
func (NopSender) SendOrderNotification(context.Context, string, string) error { return nil }
