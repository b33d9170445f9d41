package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voxbridge/server/domain/repositories"
)

const (
	geminiModel          = "gemini-2.0-flash"
	geminiTimeoutSeconds = 20
)

// GeminiTranslator implements the Translator interface using Google's Gemini
// API. It is the fallback backend when no DeepL key is configured.
type GeminiTranslator struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.Translator = (*GeminiTranslator)(nil)

// NewGeminiTranslator creates a Gemini-backed translator.
func NewGeminiTranslator(apiKey string, logger *zap.Logger) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiTranslator{
		client: client,
		logger: logger,
		model:  geminiModel,
	}, nil
}

func (g *GeminiTranslator) Configured() bool { return true }

func (g *GeminiTranslator) ServiceType() string { return "gemini" }

// Translate asks the model for a bare translation, no commentary.
func (g *GeminiTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if text == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, nothing else.\n\n%s",
		sourceLanguage, targetLanguage, text)

	ctx, cancel := context.WithTimeout(ctx, geminiTimeoutSeconds*time.Second)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini translation failed: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned no translation")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	translated := strings.TrimSpace(sb.String())

	g.logger.Debug("Gemini translation succeeded",
		zap.String("sourceLanguage", sourceLanguage),
		zap.String("targetLanguage", targetLanguage))
	return translated, nil
}
