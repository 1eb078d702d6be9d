package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/costanews/internal/translate"
)

const defaultModel = "gemini-1.5-flash"

// Translator translates news text with a Gemini model.
type Translator struct {
	client *genai.Client
	model  string
}

func NewTranslator(ctx context.Context, apiKey string) (*Translator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Translator{client: client, model: defaultModel}, nil
}

func (t *Translator) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func (t *Translator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	model := t.client.GenerativeModel(t.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(text, targetLang)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	out := SanitizeAIText(responseText(resp))
	if out == "" {
		return "", fmt.Errorf("gemini: %w", translate.ErrEmptyTranslation)
	}
	return out, nil
}

func buildPrompt(text, targetLang string) string {
	return fmt.Sprintf(`Translate this Spanish regional news text to %s.

REQUIREMENTS:
- Translate naturally, not word for word.
- Do not translate proper names of brands or organisations.
- Reply with the translation only: no notes, no comments, no labels.

TEXT:
%s`, translate.LanguageName(targetLang), text)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

var (
	parenNote   = regexp.MustCompile(`(?i)\(\s*(note|примечание|прим\.)\s*:[^)]*\)`)
	bracketNote = regexp.MustCompile(`(?i)\[\s*(note|примечание|прим\.)\s*:[^\]]*\]`)
	lineNote    = regexp.MustCompile(`(?i)^\s*\**\s*(note|примечание)\s*:`)
	labelPrefix = regexp.MustCompile(`(?i)^\s*\**\s*(translation|перевод)\s*:\s*\**\s*`)
	spaces      = regexp.MustCompile(`[ \t]+`)
)

// SanitizeAIText removes "Note: machine translation" style disclaimers that
// LLMs add to their answers, inline or on their own line. A leading
// "Translation:" label is stripped but the text after it is kept.
func SanitizeAIText(s string) string {
	s = parenNote.ReplaceAllString(s, "")
	s = bracketNote.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line == "" || lineNote.MatchString(line) {
			continue
		}
		line = labelPrefix.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
