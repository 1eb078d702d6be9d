package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/deusflow/costanews/internal/retry"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	MaxCaptionRunes = 1024
	MaxTextRunes    = 4096
)

var (
	ErrCaptionTooLong = errors.New("caption exceeds 1024 characters")
	ErrTextTooLong    = errors.New("message exceeds 4096 characters")
)

// APIError is a Bot API rejection.
type APIError struct {
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.StatusCode, e.Description)
}

// Client talks to the Bot API. Messages are sent with parse_mode=HTML.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRetry(cfg retry.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func NewClient(token string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendText posts an HTML message with link preview enabled.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	if VisibleLength(text) > MaxTextRunes {
		return retry.Permanent(ErrTextTooLong)
	}
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	})
}

// SendPhoto posts photoURL with an HTML caption. Telegram downloads the
// photo itself; an unreachable or invalid image is rejected with a 400.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	if VisibleLength(caption) > MaxCaptionRunes {
		return retry.Permanent(ErrCaptionTooLong)
	}
	return c.call(ctx, "sendPhoto", map[string]interface{}{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	})
}

// VisibleLength counts the runes Telegram shows for HTML markup: tags and
// attributes are not counted and entities count as the character they
// stand for.
func VisibleLength(markup string) int {
	z := html.NewTokenizer(strings.NewReader(markup))
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.TextToken:
			n += utf8.RuneCount(z.Text())
		}
	}
}

func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	attempt := 0
	return retry.WithRetry(ctx, c.retry, func() error {
		attempt++
		err := c.callOnce(ctx, method, body)
		if err != nil && !retry.IsPermanent(err) {
			c.log.Warn("telegram request failed", "method", method, "attempt", attempt, "error", err)
		}
		return err
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (c *Client) callOnce(ctx context.Context, method string, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ar apiResponse
	_ = json.Unmarshal(raw, &ar)

	if resp.StatusCode == http.StatusOK && ar.OK {
		return nil
	}

	apiErr := &APIError{
		StatusCode:  resp.StatusCode,
		Description: ar.Description,
		RetryAfter:  time.Duration(ar.Parameters.RetryAfter) * time.Second,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.After(apiErr, apiErr.RetryAfter)
	case resp.StatusCode >= 500:
		return apiErr
	default:
		return retry.Permanent(apiErr)
	}
}
