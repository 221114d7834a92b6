package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultLineEndpoint = "https://api.line.me"

// LINE pushes messages through the Messaging API. Returns nil when token or
// recipient is unset so callers can treat notifications as optional.
type LINE struct {
	Endpoint string
	Token    string
	To       string
	Client   *http.Client
}

type LINEOption func(*LINE)

// WithEndpoint overrides the API host; tests point this at httptest servers.
func WithEndpoint(endpoint string) LINEOption {
	return func(l *LINE) { l.Endpoint = endpoint }
}

func WithHTTPClient(client *http.Client) LINEOption {
	return func(l *LINE) { l.Client = client }
}

func NewLINE(token, to string, opts ...LINEOption) *LINE {
	if token == "" || to == "" {
		return nil
	}
	l := &LINE{
		Endpoint: defaultLineEndpoint,
		Token:    token,
		To:       to,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePushPayload struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

func (l *LINE) Send(ctx context.Context, title, text string) error {
	if l == nil || l.Token == "" {
		return errors.New("line disabled")
	}
	msg := title
	if text != "" {
		msg = title + "\n" + text
	}
	body, _ := json.Marshal(linePushPayload{
		To:       l.To,
		Messages: []lineMessage{{Type: "text", Text: msg}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.Endpoint+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.Token)

	resp, err := l.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		// the API explains rejections in a message field; surface it
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("line push: %s (http %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("line push: http %d", resp.StatusCode)
	}
	return nil
}
