package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Translator turns text into targetLang (an ISO 639-1 code such as "ru").
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Result is the outcome of a best-effort translation. When Translated is
// false, Text holds the source text unchanged.
type Result struct {
	Text       string
	Translated bool
}

var ErrEmptyTranslation = errors.New("empty translation")

// OrOriginal translates text and falls back to the source on any failure.
// A nil translator always yields the source.
func OrOriginal(ctx context.Context, t Translator, text, targetLang string, log *slog.Logger) Result {
	if t == nil || strings.TrimSpace(text) == "" {
		return Result{Text: text}
	}
	out, err := t.Translate(ctx, text, targetLang)
	if err != nil {
		log.Warn("translation failed, keeping source text", "lang", targetLang, "error", err)
		return Result{Text: text}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Result{Text: text}
	}
	return Result{Text: out, Translated: true}
}

var languageNames = map[string]string{
	"ru": "Russian",
	"uk": "Ukrainian",
	"en": "English",
	"es": "Spanish",
	"de": "German",
	"fr": "French",
	"da": "Danish",
}

// LanguageName maps a language code to the English name used in LLM prompts.
func LanguageName(code string) string {
	if n, ok := languageNames[strings.ToLower(code)]; ok {
		return n
	}
	return code
}
