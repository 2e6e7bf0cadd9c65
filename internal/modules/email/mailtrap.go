package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MailtrapSender delivers through the Mailtrap send API.
type MailtrapSender struct {
	apiURL   string
	apiKey   string
	from     PersonInfo
	client   *http.Client
	category string
}

type MailtrapPayload struct {
	From     PersonInfo   `json:"from"`
	To       []PersonInfo `json:"to"`
	Subject  string       `json:"subject"`
	Text     string       `json:"text,omitempty"`
	HTML     string       `json:"html,omitempty"`
	Category string       `json:"category,omitempty"`
}

type PersonInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func NewMailtrapSender(apiURL, apiKey, fromAddr, fromName string) *MailtrapSender {
	return &MailtrapSender{
		apiURL:   apiURL,
		apiKey:   apiKey,
		from:     PersonInfo{Email: fromAddr, Name: fromName},
		client:   &http.Client{Timeout: 10 * time.Second},
		category: "Transactional",
	}
}

func (m *MailtrapSender) Send(ctx context.Context, msg Message) error {
	if m.apiURL == "" || m.apiKey == "" {
		return fmt.Errorf("mailtrap credentials not configured")
	}

	body, err := json.Marshal(MailtrapPayload{
		From:     m.from,
		To:       []PersonInfo{{Email: msg.To, Name: msg.ToName}},
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
		Category: m.category,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 400 {
		return fmt.Errorf("mailtrap API error: %d", res.StatusCode)
	}
	return nil
}
