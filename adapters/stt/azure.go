package stt

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
)

// AzureSpeechToText implements the SpeechToText interface against the Azure
// Cognitive Services Speech SDK.
type AzureSpeechToText struct {
	subscriptionKey string
	region          string
	logger          *zap.Logger
}

var _ repositories.SpeechToText = (*AzureSpeechToText)(nil)

// NewAzureSpeechToText creates an Azure-backed recognizer factory.
func NewAzureSpeechToText(subscriptionKey, region string, logger *zap.Logger) *AzureSpeechToText {
	if subscriptionKey == "" || region == "" {
		logger.Warn("Azure Speech not fully configured")
	}
	return &AzureSpeechToText{
		subscriptionKey: subscriptionKey,
		region:          region,
		logger:          logger,
	}
}

func (a *AzureSpeechToText) Configured() bool {
	return a.subscriptionKey != "" && a.region != ""
}

func (a *AzureSpeechToText) newSpeechConfig(language string) (*speech.SpeechConfig, error) {
	config, err := speech.NewSpeechConfigFromSubscription(a.subscriptionKey, a.region)
	if err != nil {
		return nil, err
	}
	if err := config.SetSpeechRecognitionLanguage(language); err != nil {
		config.Close()
		return nil, err
	}
	return config, nil
}

// CreateStreamingSession allocates a push audio stream and a continuous
// recognizer for it.
func (a *AzureSpeechToText) CreateStreamingSession(ctx context.Context, language string) (repositories.StreamingRecognizer, error) {
	if !a.Configured() {
		return nil, repositories.ErrNotConfigured
	}

	config, err := a.newSpeechConfig(language)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}

	format, err := audio.GetWaveFormatPCM(16000, 16, 1)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("%w: could not create audio format: %v", repositories.ErrRecognitionUnavailable, err)
	}
	pushStream, err := audio.CreatePushAudioInputStreamFromFormat(format)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("%w: could not create push stream: %v", repositories.ErrRecognitionUnavailable, err)
	}

	audioConfig, err := audio.NewAudioConfigFromStreamInput(pushStream)
	if err != nil {
		pushStream.Close()
		config.Close()
		return nil, fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}

	recognizer, err := speech.NewSpeechRecognizerFromConfig(config, audioConfig)
	if err != nil {
		audioConfig.Close()
		pushStream.Close()
		config.Close()
		return nil, fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}

	return &azureStreamingRecognizer{
		config:      config,
		audioConfig: audioConfig,
		pushStream:  pushStream,
		recognizer:  recognizer,
		logger:      a.logger,
	}, nil
}

// RecognizeOnce materializes the payload as a temporary wav file, runs
// single-shot recognition on it, and removes the file no matter how
// recognition ends.
func (a *AzureSpeechToText) RecognizeOnce(ctx context.Context, audioData []byte, language string) (string, error) {
	if !a.Configured() {
		return "", repositories.ErrNotConfigured
	}

	tempFile, err := os.CreateTemp("", "voxbridge-chunk-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(audioData); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp audio file: %w", err)
	}

	config, err := a.newSpeechConfig(language)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}
	defer config.Close()

	audioConfig, err := audio.NewAudioConfigFromWavFileInput(tempPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}
	defer audioConfig.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(config, audioConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}
	defer recognizer.Close()

	select {
	case outcome := <-recognizer.RecognizeOnceAsync():
		defer outcome.Close()
		if outcome.Error != nil {
			return "", fmt.Errorf("recognition failed: %w", outcome.Error)
		}
		result := outcome.Result
		switch result.Reason {
		case common.RecognizedSpeech:
			return result.Text, nil
		case common.NoMatch:
			return "", repositories.ErrNoSpeech
		case common.Canceled:
			details, err := speech.NewCancellationDetailsFromSpeechRecognitionResult(&result)
			if err != nil {
				return "", repositories.ErrRecognitionCanceled
			}
			return "", fmt.Errorf("%w: %s", repositories.ErrRecognitionCanceled, details.ErrorDetails)
		default:
			return "", fmt.Errorf("unexpected recognition result reason: %d", result.Reason)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// azureStreamingRecognizer couples the continuous recognizer with its push
// audio stream. Stop releases both (plus the SDK config objects) and is safe
// to call repeatedly.
type azureStreamingRecognizer struct {
	config      *speech.SpeechConfig
	audioConfig *audio.AudioConfig
	pushStream  *audio.PushAudioInputStream
	recognizer  *speech.SpeechRecognizer
	logger      *zap.Logger

	mu      sync.Mutex
	stopped bool
}

var _ repositories.StreamingRecognizer = (*azureStreamingRecognizer)(nil)

func (r *azureStreamingRecognizer) OnInterim(fn func(text string)) {
	r.recognizer.Recognizing(func(e speech.SpeechRecognitionEventArgs) {
		defer e.Close()
		fn(e.Result.Text)
	})
}

func (r *azureStreamingRecognizer) OnFinal(fn func(text string)) {
	r.recognizer.Recognized(func(e speech.SpeechRecognitionEventArgs) {
		defer e.Close()
		if e.Result.Reason == common.RecognizedSpeech {
			fn(e.Result.Text)
		}
	})
}

func (r *azureStreamingRecognizer) OnCanceled(fn func(reason string)) {
	r.recognizer.Canceled(func(e speech.SpeechRecognitionCanceledEventArgs) {
		defer e.Close()
		if e.Reason == common.Error {
			fn(e.ErrorDetails)
		}
	})
}

func (r *azureStreamingRecognizer) Start() error {
	if err := <-r.recognizer.StartContinuousRecognitionAsync(); err != nil {
		return fmt.Errorf("failed to start continuous recognition: %w", err)
	}
	return nil
}

func (r *azureStreamingRecognizer) Write(audioData []byte) error {
	return r.pushStream.Write(audioData)
}

// Stop requests the end of continuous recognition and schedules the release
// of the SDK resources. Stop is reachable from the SDK's Canceled callback,
// which runs on the SDK's own thread; draining the stop outcome there would
// deadlock, so the wait and the release happen on a separate goroutine.
func (r *azureStreamingRecognizer) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	releaseAfterStop(r.recognizer.StopContinuousRecognitionAsync(), r.logger, func() {
		r.pushStream.CloseStream()
		r.recognizer.Close()
		r.audioConfig.Close()
		r.pushStream.Close()
		r.config.Close()
	})
	return nil
}

// releaseAfterStop waits for the engine's stop outcome off the caller's
// goroutine, then runs release. Resources must stay alive until the engine
// has confirmed the stop.
func releaseAfterStop(outcome <-chan error, logger *zap.Logger, release func()) {
	go func() {
		if err := <-outcome; err != nil {
			logger.Warn("Error stopping continuous recognition", zap.Error(err))
		}
		release()
	}()
}
