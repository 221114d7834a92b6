package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Slack posts to an incoming webhook. Optional secondary sink next to LINE.
type Slack struct {
	Webhook string
	Client  *http.Client
}

type SlackOption func(*Slack)

func WithSlackHTTPClient(client *http.Client) SlackOption {
	return func(s *Slack) { s.Client = client }
}

func NewSlack(webhook string, opts ...SlackOption) *Slack {
	if webhook == "" {
		return nil
	}
	s := &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	msg := "*" + title + "*"
	if text != "" {
		msg += "\n" + text
	}
	body, _ := json.Marshal(slackPayload{Text: msg})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("slack non-2xx")
	}
	return nil
}
