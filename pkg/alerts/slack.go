package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	slackFooter    = "Slack Alert Processor"
)

// SlackNotifier sends notifications to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL  string
	attachments bool
	client      *http.Client
	now         func() time.Time
}

// SlackOption configures a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithTimeout bounds each webhook call.
func WithTimeout(d time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithAttachments adds a coloured attachment carrying the title, footer and
// timestamp below the message text.
func WithAttachments(enabled bool) SlackOption {
	return func(s *SlackNotifier) { s.attachments = enabled }
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook url not configured")
	}

	payload := slackPayload{
		Text:     n.Text,
		Channel:  n.Channel,
		Username: n.Username,
	}
	if s.attachments {
		color := n.Color
		if color == "" {
			color = ColorGreen
		}
		payload.Attachments = []slackAttachment{
			{
				Color:    color,
				Title:    n.Title,
				Fallback: n.Title,
				Footer:   slackFooter,
				Ts:       s.now().Unix(),
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(msg) > 0 {
			return fmt.Errorf("slack returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Text        string            `json:"text"`
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color    string `json:"color"`
	Title    string `json:"title"`
	Fallback string `json:"fallback"`
	Footer   string `json:"footer"`
	Ts       int64  `json:"ts"`
}
