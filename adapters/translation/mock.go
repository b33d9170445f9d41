package translation

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
)

// MockTranslator is the degraded fallback when no translation backend has
// credentials. The process keeps running; every translation comes back as a
// marker string.
type MockTranslator struct{}

var _ repositories.Translator = (*MockTranslator)(nil)

func NewMockTranslator() *MockTranslator { return &MockTranslator{} }

func (m *MockTranslator) Configured() bool { return false }

func (m *MockTranslator) ServiceType() string { return "mock" }

func (m *MockTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if text == "" {
		return "", nil
	}
	return "[Translation service not available]", nil
}

// NewFromEnv picks the translation backend from the environment: DeepL when
// DEEPL_API_KEY is set, Gemini when GEMINI_API_KEY is set, otherwise the
// mock. A key that fails to initialize also degrades to the mock.
func NewFromEnv(logger *zap.Logger) repositories.Translator {
	if key := os.Getenv("DEEPL_API_KEY"); key != "" {
		translator, err := NewDeepLTranslator(key, logger)
		if err == nil {
			logger.Info("Using DeepL for translation")
			return translator
		}
		logger.Error("Failed to initialize DeepL translator", zap.Error(err))
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		translator, err := NewGeminiTranslator(key, logger)
		if err == nil {
			logger.Info("Using Gemini for translation")
			return translator
		}
		logger.Error("Failed to initialize Gemini translator", zap.Error(err))
	}
	logger.Warn("No translation service configured, falling back to mock")
	return NewMockTranslator()
}
