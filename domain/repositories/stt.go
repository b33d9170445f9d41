package repositories

import (
	"context"
	"errors"
)

// Sentinel errors shared by all speech recognition adapters.
var (
	// ErrNotConfigured means the engine has no usable credentials. Reported
	// once at startup; the feature stays disabled for the process lifetime.
	ErrNotConfigured = errors.New("speech recognition not configured")

	// ErrRecognitionUnavailable means a per-attempt allocation failed.
	ErrRecognitionUnavailable = errors.New("speech recognizer unavailable")

	// ErrNoSpeech means the engine found no speech in the audio. This is a
	// normal outcome, not a failure.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrRecognitionCanceled means the engine canceled recognition.
	ErrRecognitionCanceled = errors.New("recognition canceled")
)

// SpeechToText abstracts speech recognition engines.
type SpeechToText interface {
	// Configured reports whether the engine has usable credentials.
	Configured() bool

	// CreateStreamingSession allocates a continuous recognition session for
	// the given language. Returns ErrRecognitionUnavailable when allocation
	// fails.
	CreateStreamingSession(ctx context.Context, language string) (StreamingRecognizer, error)

	// RecognizeOnce runs single-shot recognition over a bounded audio
	// payload. Returns ErrNoSpeech when the engine detects no speech.
	RecognizeOnce(ctx context.Context, audio []byte, language string) (string, error)
}

// StreamingRecognizer is one live continuous-recognition session: the engine
// handle plus its audio sink. Callbacks must be registered before Start.
// Stop releases both underlying resources and is safe to call more than once.
type StreamingRecognizer interface {
	OnInterim(fn func(text string))
	OnFinal(fn func(text string))
	OnCanceled(fn func(reason string))
	Start() error
	Write(audio []byte) error
	Stop() error
}
