package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleBaseURL = "https://translate.googleapis.com/translate_a/single"

// Google uses the free public Google Translate endpoint (client=gtx).
type Google struct {
	baseURL string
	client  *http.Client
}

type GoogleOption func(*Google)

func WithGoogleBaseURL(u string) GoogleOption {
	return func(g *Google) { g.baseURL = u }
}

func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

func NewGoogle(opts ...GoogleOption) *Google {
	g := &Google{
		baseURL: googleBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Google) Translate(ctx context.Context, text, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google translate: read response: %w", err)
	}

	translation, err := parseGoogleTranslateResponse(body)
	if err != nil {
		return "", fmt.Errorf("google translate: parse response: %w", err)
	}
	if strings.TrimSpace(translation) == "" {
		return "", ErrEmptyTranslation
	}
	return translation, nil
}

// parseGoogleTranslateResponse joins the translated segments of the gtx
// response, an array whose first element is [[translated, source, ...], ...].
func parseGoogleTranslateResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, s := range segments {
		if seg, ok := s.([]interface{}); ok && len(seg) > 0 {
			if translated, ok := seg[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}
	return result.String(), nil
}
