package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/deusflow/costanews/internal/ratelimit"
)

var ErrAllProvidersFailed = errors.New("all translation providers failed")

// Provider is a named Translator. The name keys its daily budget.
type Provider struct {
	Name       string
	Translator Translator
}

// Chain tries providers in order and returns the first usable translation.
// Output that is empty or identical to the input counts as a failure.
type Chain struct {
	providers []Provider
	budget    *ratelimit.Budget
	log       *slog.Logger
}

// NewChain builds a chain. budget may be nil for unlimited use.
func NewChain(budget *ratelimit.Budget, log *slog.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, budget: budget, log: log}
}

func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name)
	}
	return names
}

func (c *Chain) Translate(ctx context.Context, text, targetLang string) (string, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if c.budget != nil {
			if !c.budget.Allow(p.Name) {
				continue
			}
			if err := c.budget.Use(p.Name); err != nil {
				continue
			}
		}

		out, err := p.Translator.Translate(ctx, text, targetLang)
		if err != nil {
			c.log.Debug("translation provider failed", "provider", p.Name, "error", err)
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" || out == strings.TrimSpace(text) {
			c.log.Debug("translation provider returned nothing new", "provider", p.Name)
			continue
		}
		c.log.Debug("translated", "provider", p.Name, "lang", targetLang)
		return out, nil
	}
	return "", ErrAllProvidersFailed
}
