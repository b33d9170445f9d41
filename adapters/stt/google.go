package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
)

// GoogleSpeechToText implements the SpeechToText interface for Google Cloud
// Speech-to-Text. It is the alternate engine when Azure has no credentials.
type GoogleSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

func (g *GoogleSpeechToText) Configured() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}

// CreateStreamingSession opens a gRPC streaming-recognize call with interim
// results enabled. The stream lives until Stop, independent of the caller's
// context.
func (g *GoogleSpeechToText) CreateStreamingSession(ctx context.Context, language string) (repositories.StreamingRecognizer, error) {
	if !g.Configured() {
		return nil, repositories.ErrNotConfigured
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	client, err := speech.NewClient(streamCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to create speech client: %v", repositories.ErrRecognitionUnavailable, err)
	}

	stream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		client.Close()
		cancel()
		return nil, fmt.Errorf("%w: failed to open recognize stream: %v", repositories.ErrRecognitionUnavailable, err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: 16000,
					LanguageCode:    language,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		cancel()
		return nil, fmt.Errorf("%w: failed to send streaming config: %v", repositories.ErrRecognitionUnavailable, err)
	}

	return &googleStreamingRecognizer{
		client: client,
		stream: stream,
		cancel: cancel,
		logger: g.logger,
	}, nil
}

// RecognizeOnce runs synchronous recognition over the whole payload. The
// payload carries a wav header, so the service reads the format from it.
func (g *GoogleSpeechToText) RecognizeOnce(ctx context.Context, audioData []byte, language string) (string, error) {
	if !g.Configured() {
		return "", repositories.ErrNotConfigured
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create speech client: %v", repositories.ErrRecognitionUnavailable, err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			LanguageCode: language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 && result.Alternatives[0].Transcript != "" {
			return result.Alternatives[0].Transcript, nil
		}
	}
	return "", repositories.ErrNoSpeech
}

// googleStreamingRecognizer adapts the bidirectional gRPC stream to the
// callback-style StreamingRecognizer contract. A receive loop started by
// Start dispatches interim and final results.
type googleStreamingRecognizer struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
	logger *zap.Logger

	onInterim  func(string)
	onFinal    func(string)
	onCanceled func(string)

	mu      sync.Mutex
	stopped bool
}

var _ repositories.StreamingRecognizer = (*googleStreamingRecognizer)(nil)

func (r *googleStreamingRecognizer) OnInterim(fn func(text string)) { r.onInterim = fn }

func (r *googleStreamingRecognizer) OnFinal(fn func(text string)) { r.onFinal = fn }

func (r *googleStreamingRecognizer) OnCanceled(fn func(reason string)) { r.onCanceled = fn }

func (r *googleStreamingRecognizer) Start() error {
	go r.receiveResults()
	return nil
}

func (r *googleStreamingRecognizer) Write(audioData []byte) error {
	if len(audioData) == 0 {
		return nil
	}
	if err := r.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audioData,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (r *googleStreamingRecognizer) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	err := r.stream.CloseSend()
	r.cancel()
	r.client.Close()
	return err
}

func (r *googleStreamingRecognizer) receiveResults() {
	for {
		resp, err := r.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			r.mu.Lock()
			stopped := r.stopped
			r.mu.Unlock()
			if stopped {
				// Expected teardown noise after CloseSend/cancel.
				return
			}
			r.logger.Error("Google recognize stream failed", zap.Error(err))
			if r.onCanceled != nil {
				r.onCanceled(err.Error())
			}
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			transcript := result.Alternatives[0].Transcript
			if result.IsFinal {
				if r.onFinal != nil {
					r.onFinal(transcript)
				}
			} else if r.onInterim != nil {
				r.onInterim(transcript)
			}
		}
	}
}
