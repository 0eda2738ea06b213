package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoSender sends mail through the Brevo transactional email API.
type BrevoSender struct {
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
	httpClient *http.Client
}

// NewBrevoSender creates a Brevo sender.
func NewBrevoSender(apiKey, fromEmail, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		endpoint:   brevoAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (s *BrevoSender) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		return fmt.Errorf("brevo api key not configured")
	}

	body, err := json.Marshal(brevoRequest{
		Sender:      brevoAddress{Email: s.fromEmail, Name: s.fromName},
		To:          []brevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build brevo request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo api error: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
