package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/models"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Code, http.StatusText(e.Code), e.Body)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Client talks to the restaurant console REST API and opens live feeds.
type Client struct {
	baseURL    string
	wsURL      string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for baseURL. wsURL may be empty, in which case
// the live endpoint is derived from baseURL's host.
func NewClient(baseURL, wsURL, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	if wsURL == "" {
		ws := *base
		ws.Path = ""
		switch base.Scheme {
		case "https":
			ws.Scheme = "wss"
		default:
			ws.Scheme = "ws"
		}
		wsURL = ws.String()
	}

	c := &Client{
		baseURL:    base.String(),
		wsURL:      strings.TrimRight(wsURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListBots returns the bots visible to the token.
func (c *Client) ListBots(ctx context.Context) ([]models.Bot, error) {
	var bots []models.Bot
	if err := c.get(ctx, "/bots/", &bots); err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	return bots, nil
}

// ListClients returns the conversations of a bot, most recent first.
func (c *Client) ListClients(ctx context.Context, botID string) ([]models.Client, error) {
	var clients []models.Client
	if err := c.get(ctx, "/bots/"+url.PathEscape(botID)+"/clients/", &clients); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].LastMessageAt.After(clients[j].LastMessageAt)
	})
	return clients, nil
}

// GetMessages returns the message history of one conversation.
func (c *Client) GetMessages(ctx context.Context, clientID string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.get(ctx, "/clients/"+url.PathEscape(clientID)+"/messages/", &messages); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: http.MethodGet,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
