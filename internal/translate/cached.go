package translate

import (
	"context"

	"github.com/deusflow/costanews/internal/cache"
)

// Cached memoises successful translations by (language, text).
type Cached struct {
	next  Translator
	cache *cache.Cache[string]
}

func NewCached(next Translator, c *cache.Cache[string]) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Translate(ctx context.Context, text, targetLang string) (string, error) {
	key := cache.Key(targetLang, text)
	if out, ok := c.cache.Get(key); ok {
		return out, nil
	}
	out, err := c.next.Translate(ctx, text, targetLang)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, out)
	return out, nil
}
