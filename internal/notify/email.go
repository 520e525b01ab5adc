package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EmailSender delivers one HTML email. Implementations are swappable so the
// provider stays a configuration detail.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) error
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	http      *resty.Client
	fromEmail string
	logger    *zap.Logger
}

func NewSendGridSender(apiKey, fromEmail string, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		http: resty.New().
			SetBaseURL("https://api.sendgrid.com").
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(15 * time.Second),
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// WithBaseURL overrides the endpoint; tests point it at an httptest server.
func (s *SendGridSender) WithBaseURL(base string) *SendGridSender {
	s.http.SetBaseURL(base)
	return s
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridRequest struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress `json:"from"`
	Subject string          `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (s *SendGridSender) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	var req sendGridRequest
	req.Personalizations = make([]struct {
		To []sendGridAddress `json:"to"`
	}, 1)
	req.Personalizations[0].To = []sendGridAddress{{Email: toEmail}}
	req.From = sendGridAddress{Email: s.fromEmail}
	req.Subject = subject
	req.Content = []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{{Type: "text/html", Value: htmlBody}}

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(&req).
		Post("/v3/mail/send")
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode(), resp.String())
	}
	s.logger.Debug("email sent", zap.String("subject", subject))
	return nil
}

// NoopSender is used when no email provider is configured; sends are logged
// and dropped.
type NoopSender struct {
	logger *zap.Logger
}

func NewNoopSender(logger *zap.Logger) *NoopSender { return &NoopSender{logger: logger} }

func (s *NoopSender) Send(_ context.Context, toEmail, subject, _ string) error {
	s.logger.Info("email delivery disabled, dropping message",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return nil
}
