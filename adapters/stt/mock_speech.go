package stt

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
)

// MockSpeechToText is a placeholder engine for local development without
// cloud credentials. It echoes a canned transcript sized to the audio it
// receives.
type MockSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

func (s *MockSpeechToText) Configured() bool { return false }

func (s *MockSpeechToText) CreateStreamingSession(ctx context.Context, language string) (repositories.StreamingRecognizer, error) {
	s.logger.Info("Initializing mock streaming recognition",
		zap.String("language", language))
	return &mockStreamingRecognizer{logger: s.logger}, nil
}

func (s *MockSpeechToText) RecognizeOnce(ctx context.Context, audioData []byte, language string) (string, error) {
	s.logger.Info("Processing mock one-shot recognition",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", language))

	if len(audioData) == 0 {
		return "", repositories.ErrNoSpeech
	}
	return mockTranscript(len(audioData)), nil
}

func mockTranscript(audioSize int) string {
	switch {
	case audioSize > 10000:
		return "This is a longer mock transcription for a larger audio payload."
	case audioSize > 1000:
		return "This is a mock transcription."
	default:
		return "Hello."
	}
}

// mockStreamingRecognizer emits one interim and one final result per audio
// write, which is enough to exercise the full realtime pipeline end to end.
type mockStreamingRecognizer struct {
	logger *zap.Logger

	onInterim func(string)
	onFinal   func(string)

	mu       sync.Mutex
	stopped  bool
	received int
}

var _ repositories.StreamingRecognizer = (*mockStreamingRecognizer)(nil)

func (m *mockStreamingRecognizer) OnInterim(fn func(text string)) { m.onInterim = fn }

func (m *mockStreamingRecognizer) OnFinal(fn func(text string)) { m.onFinal = fn }

func (m *mockStreamingRecognizer) OnCanceled(fn func(reason string)) {}

func (m *mockStreamingRecognizer) Start() error { return nil }

func (m *mockStreamingRecognizer) Write(audioData []byte) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.received += len(audioData)
	received := m.received
	m.mu.Unlock()

	if m.onInterim != nil {
		m.onInterim("...")
	}
	if m.onFinal != nil && received > 1000 {
		m.onFinal(mockTranscript(received))
	}
	return nil
}

func (m *mockStreamingRecognizer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// NewFromEnv picks the recognition engine from the environment: Azure when
// AZURE_SPEECH_KEY is set, Google when application credentials are present,
// otherwise the mock.
func NewFromEnv(logger *zap.Logger) repositories.SpeechToText {
	if key := os.Getenv("AZURE_SPEECH_KEY"); key != "" {
		region := os.Getenv("AZURE_REGION")
		if region == "" {
			region = "westeurope"
		}
		logger.Info("Using Azure Speech for recognition", zap.String("region", region))
		return NewAzureSpeechToText(key, region, logger)
	}
	if google := NewGoogleSpeechToText(logger); google.Configured() {
		logger.Info("Using Google Cloud Speech for recognition")
		return google
	}
	logger.Warn("No speech recognition engine configured, falling back to mock")
	return NewMockSpeechToText(logger)
}
