package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/costanews/internal/logger"
	"github.com/deusflow/costanews/internal/news"
)

type call struct {
	method, chat, photo, body string
}

type fakeMessenger struct {
	calls    []call
	photoErr error
	textErr  error
}

func (f *fakeMessenger) SendText(_ context.Context, chat, text string) error {
	f.calls = append(f.calls, call{method: "text", chat: chat, body: text})
	return f.textErr
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chat, photo, caption string) error {
	f.calls = append(f.calls, call{method: "photo", chat: chat, photo: photo, body: caption})
	return f.photoErr
}

var post = news.ProcessedPost{
	Title:    "Праздник в Аликанте",
	Text:     "Большое событие. Будет музыка.",
	Link:     "https://x.es/1",
	ImageURL: "https://x.es/a.jpg",
	Hashtags: []string{"#КостаБланка", "#Аликанте"},
}

func TestRender(t *testing.T) {
	p := New(&fakeMessenger{}, "", logger.Discard())

	want := "<b>Праздник в Аликанте</b>\n\n" +
		"Большое событие. Будет музыка.\n\n" +
		"#КостаБланка #Аликанте\n\n" +
		`📰 <a href="https://x.es/1">Читать полностью</a>`
	assert.Equal(t, want, p.Render(post))
}

func TestRender_NoHashtagsAndEscaping(t *testing.T) {
	p := New(&fakeMessenger{}, "Read more", logger.Discard())

	got := p.Render(news.ProcessedPost{
		Title: "A <b>&</b> B",
		Text:  "x < y",
		Link:  `https://x.es/?a=1&b="2"`,
	})
	assert.Equal(t, "<b>A &lt;b&gt;&amp;&lt;/b&gt; B</b>\n\nx &lt; y\n\n"+
		`📰 <a href="https://x.es/?a=1&amp;b=&#34;2&#34;">Read more</a>`, got)
}

func TestPublish_Photo(t *testing.T) {
	m := &fakeMessenger{}
	ok, mode := New(m, "", logger.Discard()).Publish(context.Background(), "@ALCTODAY", post)

	assert.True(t, ok)
	assert.Equal(t, ModePhoto, mode)
	require.Len(t, m.calls, 1)
	assert.Equal(t, "https://x.es/a.jpg", m.calls[0].photo)
}

func TestPublish_PhotoFailureFallsBackToTextOnce(t *testing.T) {
	m := &fakeMessenger{photoErr: errors.New("wrong file identifier")}
	p := New(m, "", logger.Discard())

	ok, mode := p.Publish(context.Background(), "@ALCTODAY", post)
	assert.True(t, ok)
	assert.Equal(t, ModeFallback, mode)
	require.Len(t, m.calls, 2)
	assert.Equal(t, "photo", m.calls[0].method)
	assert.Equal(t, "text", m.calls[1].method)
	assert.Equal(t, m.calls[0].body, m.calls[1].body)
}

func TestPublish_BothFail(t *testing.T) {
	m := &fakeMessenger{photoErr: errors.New("x"), textErr: errors.New("y")}

	ok, mode := New(m, "", logger.Discard()).Publish(context.Background(), "@c", post)
	assert.False(t, ok)
	assert.Equal(t, ModeNone, mode)
	assert.Len(t, m.calls, 2)
}

func TestPublish_TextOnlyWithoutImage(t *testing.T) {
	m := &fakeMessenger{}
	noImage := post
	noImage.ImageURL = ""

	ok, mode := New(m, "", logger.Discard()).Publish(context.Background(), "@c", noImage)
	assert.True(t, ok)
	assert.Equal(t, ModeText, mode)
	require.Len(t, m.calls, 1)
	assert.Equal(t, "text", m.calls[0].method)
}

func TestPublish_TextFailure(t *testing.T) {
	m := &fakeMessenger{textErr: errors.New("chat not found")}
	noImage := post
	noImage.ImageURL = ""

	ok, _ := New(m, "", logger.Discard()).Publish(context.Background(), "@c", noImage)
	assert.False(t, ok)
	assert.Len(t, m.calls, 1)
}
