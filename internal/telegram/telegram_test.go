package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/costanews/internal/logger"
	"github.com/deusflow/costanews/internal/retry"
)

func newTestClient(url string) *Client {
	return NewClient("TOKEN", logger.Discard(),
		WithBaseURL(url),
		WithRetry(retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}),
	)
}

func TestSendText(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).SendText(context.Background(), "@ALCTODAY", "<b>Hola</b>"))
	assert.Equal(t, "@ALCTODAY", got["chat_id"])
	assert.Equal(t, "<b>Hola</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendPhoto(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendPhoto", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).SendPhoto(context.Background(), "@ALCTODAY", "https://x.es/a.jpg", "caption"))
	assert.Equal(t, "https://x.es/a.jpg", got["photo"])
	assert.Equal(t, "caption", got["caption"])
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).SendText(context.Background(), "@c", "hi"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSend_BadRequestIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier/HTTP URL specified"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendPhoto(context.Background(), "@c", "https://x.es/broken.jpg", "caption")
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Description, "wrong file identifier")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSend_TooManyRequestsHonoursRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	start := time.Now()
	require.NoError(t, newTestClient(srv.URL).SendText(context.Background(), "@c", "hi"))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSend_OversizePayloadsArePermanent(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")

	err := c.SendPhoto(context.Background(), "@c", "https://x/a.jpg", strings.Repeat("я", MaxCaptionRunes+1))
	assert.ErrorIs(t, err, ErrCaptionTooLong)
	assert.True(t, retry.IsPermanent(err))

	err = c.SendText(context.Background(), "@c", strings.Repeat("я", MaxTextRunes+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
}

func TestSendPhoto_MarkupDoesNotCountTowardsCaptionLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	link := "https://www.informacion.es/alicante/" + strings.Repeat("a", 300)
	caption := "<b>" + strings.Repeat("я", 900) + "</b>\n\n📰 <a href=\"" + link + "\">Читать</a>"
	require.Greater(t, len([]rune(caption)), MaxCaptionRunes)

	err := newTestClient(srv.URL).SendPhoto(context.Background(), "@c", "https://x/a.jpg", caption)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVisibleLength(t *testing.T) {
	assert.Equal(t, 0, VisibleLength(""))
	assert.Equal(t, 5, VisibleLength("<b>Hola</b>!"))
	assert.Equal(t, 5, VisibleLength("a &amp; b"))
	assert.Equal(t, 8, VisibleLength(`📰 <a href="https://x.es/very/long/path">Читать</a>`))
}
