package publish

import (
	"context"
	"html"
	"log/slog"
	"strings"

	"github.com/deusflow/costanews/internal/news"
)

// Messenger delivers HTML-formatted messages to a channel.
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID, photoURL, caption string) error
}

// Mode is how a post ended up being delivered.
type Mode string

const (
	ModeNone     Mode = ""
	ModePhoto    Mode = "photo"
	ModeText     Mode = "text"
	ModeFallback Mode = "fallback" // photo rejected, sent as text
)

const DefaultReadMoreLabel = "Читать полностью"

type Publisher struct {
	messenger     Messenger
	readMoreLabel string
	log           *slog.Logger
}

func New(m Messenger, readMoreLabel string, log *slog.Logger) *Publisher {
	if readMoreLabel == "" {
		readMoreLabel = DefaultReadMoreLabel
	}
	return &Publisher{messenger: m, readMoreLabel: readMoreLabel, log: log}
}

// Render builds the HTML payload used both as photo caption and as message text.
func (p *Publisher) Render(post news.ProcessedPost) string {
	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(post.Title) + "</b>\n\n")
	b.WriteString(html.EscapeString(post.Text) + "\n\n")
	if len(post.Hashtags) > 0 {
		b.WriteString(html.EscapeString(strings.Join(post.Hashtags, " ")) + "\n\n")
	}
	b.WriteString(`📰 <a href="` + html.EscapeString(post.Link) + `">` + html.EscapeString(p.readMoreLabel) + "</a>")
	return b.String()
}

// Publish sends post to channel. A post with an image goes out as a photo;
// if that fails it is sent once as plain text, and the photo is never retried.
// It reports whether delivery succeeded and how.
func (p *Publisher) Publish(ctx context.Context, channel string, post news.ProcessedPost) (bool, Mode) {
	payload := p.Render(post)

	if post.ImageURL != "" {
		err := p.messenger.SendPhoto(ctx, channel, post.ImageURL, payload)
		if err == nil {
			p.log.Info("published with photo", "channel", channel, "title", post.Title)
			return true, ModePhoto
		}
		p.log.Warn("photo send failed, publishing as text", "channel", channel, "image", post.ImageURL, "error", err)

		if err := p.messenger.SendText(ctx, channel, payload); err != nil {
			p.log.Error("publish failed", "channel", channel, "title", post.Title, "error", err)
			return false, ModeNone
		}
		p.log.Info("published as text", "channel", channel, "title", post.Title)
		return true, ModeFallback
	}

	if err := p.messenger.SendText(ctx, channel, payload); err != nil {
		p.log.Error("publish failed", "channel", channel, "title", post.Title, "error", err)
		return false, ModeNone
	}
	p.log.Info("published", "channel", channel, "title", post.Title)
	return true, ModeText
}
