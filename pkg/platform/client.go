package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client reads device state from the host platform's REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a REST client. token, when set, is sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

type agentResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type connectionResponse struct {
	OnlineAt      any    `json:"online_at"`
	Determination string `json:"determination"`
}

func (c *Client) get(ctx context.Context, path, agentID string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("agentID", agentID).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode())
	}
	return nil
}

func (c *Client) Connection(ctx context.Context, agentID string) (Connection, error) {
	var out connectionResponse
	if err := c.get(ctx, "/agents/{agentID}/connection", agentID, &out); err != nil {
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	lastSeen, err := ParseTimestamp(out.OnlineAt)
	if err != nil {
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return Connection{
		Online:   out.Determination == "online",
		LastSeen: lastSeen,
	}, nil
}

func (c *Client) AgentName(ctx context.Context, agentID string) (string, error) {
	var out agentResponse
	if err := c.get(ctx, "/agents/{agentID}", agentID, &out); err != nil {
		return "", fmt.Errorf("get agent: %w", err)
	}
	switch {
	case out.Name != "":
		return out.Name, nil
	case out.DisplayName != "":
		return out.DisplayName, nil
	default:
		return agentID, nil
	}
}

func (c *Client) TagValues(ctx context.Context, agentID string) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "/agents/{agentID}/channels/tag_values/aggregate", agentID, &out); err != nil {
		return nil, fmt.Errorf("get tag values: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
