package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxbridge/server/domain/repositories"
)

// fakeTranslator answers every request with a deterministic marker, or an
// error for languages listed in failFor.
type fakeTranslator struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   []string
	empty   bool
}

func (f *fakeTranslator) Configured() bool    { return true }
func (f *fakeTranslator) ServiceType() string { return "fake" }

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, targetLanguage)
	f.mu.Unlock()
	if err, ok := f.failFor[targetLanguage]; ok {
		return "", err
	}
	if f.empty {
		return "", nil
	}
	return fmt.Sprintf("%s:%s", targetLanguage, text), nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRecognizer records lifecycle calls and lets tests fire engine callbacks.
type fakeRecognizer struct {
	mu         sync.Mutex
	onInterim  func(string)
	onFinal    func(string)
	onCanceled func(string)
	started    bool
	stopCalls  int
	written    [][]byte
	startErr   error
}

func (f *fakeRecognizer) OnInterim(fn func(string))  { f.onInterim = fn }
func (f *fakeRecognizer) OnFinal(fn func(string))    { f.onFinal = fn }
func (f *fakeRecognizer) OnCanceled(fn func(string)) { f.onCanceled = fn }

func (f *fakeRecognizer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeRecognizer) Write(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, audio)
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakeRecognizer) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

func (f *fakeRecognizer) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// fakeSpeech hands out prepared recognizers in order.
type fakeSpeech struct {
	mu          sync.Mutex
	recognizers []*fakeRecognizer
	createErr   error
	created     int
	onceText    string
	onceErr     error
}

func (f *fakeSpeech) Configured() bool { return true }

func (f *fakeSpeech) CreateStreamingSession(ctx context.Context, language string) (repositories.StreamingRecognizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created >= len(f.recognizers) {
		return nil, repositories.ErrRecognitionUnavailable
	}
	r := f.recognizers[f.created]
	f.created++
	return r, nil
}

func (f *fakeSpeech) RecognizeOnce(ctx context.Context, audio []byte, language string) (string, error) {
	if f.onceErr != nil {
		return "", f.onceErr
	}
	return f.onceText, nil
}

// fakeBroadcaster records everything sent through it.
type fakeBroadcaster struct {
	mu        sync.Mutex
	broadcast []broadcastCall
	direct    []directCall
}

type broadcastCall struct {
	roomID  string
	message interface{}
}

type directCall struct {
	connectionID string
	message      interface{}
}

func (f *fakeBroadcaster) Broadcast(roomID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, broadcastCall{roomID: roomID, message: message})
}

func (f *fakeBroadcaster) SendTo(connectionID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, directCall{connectionID: connectionID, message: message})
}

func (f *fakeBroadcaster) broadcasts() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broadcastCall, len(f.broadcast))
	copy(out, f.broadcast)
	return out
}

func (f *fakeBroadcaster) directs() []directCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]directCall, len(f.direct))
	copy(out, f.direct)
	return out
}
