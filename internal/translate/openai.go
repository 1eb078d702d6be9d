package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAI translates with a chat completion model.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey))
}

// NewOpenAIWithConfig allows a custom base URL (proxies, tests).
func NewOpenAIWithConfig(cfg openai.ClientConfig) *OpenAI {
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
	}
}

func (o *OpenAI) Translate(ctx context.Context, text, targetLang string) (string, error) {
	prompt := fmt.Sprintf(`Translate the following Spanish news text to %s.
Keep the meaning and the journalistic tone.
Do not translate proper names of brands or organisations.
Reply with the translation only, without comments.

Text:
%s`, LanguageName(targetLang), text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 2000,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyTranslation)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyTranslation)
	}
	return out, nil
}
