package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/domain/repositories"
	"github.com/voxbridge/server/internal/rooms"
	"github.com/voxbridge/server/usecase"
)

// scriptedRecognizer lets the test fire engine callbacks by hand.
type scriptedRecognizer struct {
	mu         sync.Mutex
	onInterim  func(string)
	onFinal    func(string)
	onCanceled func(string)
	written    int
}

func (r *scriptedRecognizer) OnInterim(fn func(string)) {
	r.mu.Lock()
	r.onInterim = fn
	r.mu.Unlock()
}

func (r *scriptedRecognizer) OnFinal(fn func(string)) {
	r.mu.Lock()
	r.onFinal = fn
	r.mu.Unlock()
}

func (r *scriptedRecognizer) OnCanceled(fn func(string)) {
	r.mu.Lock()
	r.onCanceled = fn
	r.mu.Unlock()
}

func (r *scriptedRecognizer) Start() error { return nil }
func (r *scriptedRecognizer) Stop() error  { return nil }

func (r *scriptedRecognizer) Write(audio []byte) error {
	r.mu.Lock()
	r.written++
	r.mu.Unlock()
	return nil
}

func (r *scriptedRecognizer) fireInterim(text string) {
	r.mu.Lock()
	fn := r.onInterim
	r.mu.Unlock()
	fn(text)
}

func (r *scriptedRecognizer) fireFinal(text string) {
	r.mu.Lock()
	fn := r.onFinal
	r.mu.Unlock()
	fn(text)
}

type scriptedSpeech struct {
	mu         sync.Mutex
	recognizer *scriptedRecognizer
	onceText   string
	onceErr    error
}

func (s *scriptedSpeech) Configured() bool { return true }

func (s *scriptedSpeech) CreateStreamingSession(ctx context.Context, language string) (repositories.StreamingRecognizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recognizer == nil {
		return nil, repositories.ErrRecognitionUnavailable
	}
	return s.recognizer, nil
}

func (s *scriptedSpeech) RecognizeOnce(ctx context.Context, audio []byte, language string) (string, error) {
	if s.onceErr != nil {
		return "", s.onceErr
	}
	return s.onceText, nil
}

type suffixTranslator struct{}

func (suffixTranslator) Configured() bool    { return true }
func (suffixTranslator) ServiceType() string { return "fake" }

func (suffixTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	return text + " (" + targetLanguage + ")", nil
}

// newTestServer stands up the full stack behind an httptest server: hub,
// registry, broadcaster, both recognition flows, and the websocket route.
func newTestServer(t *testing.T, speech *scriptedSpeech) (*httptest.Server, *Hub) {
	t.Helper()
	logger := zap.NewNop()

	registry := rooms.NewRegistry()
	hub := NewHub(registry, logger)
	broadcaster := rooms.NewBroadcaster(registry, hub, logger)
	fanout := usecase.NewTranslationFanout(suffixTranslator{}, logger)
	realtime := usecase.NewRealtimeService(speech, fanout, broadcaster, logger)
	discrete := usecase.NewDiscreteService(speech, fanout, broadcaster, logger)
	hub.SetServices(realtime, discrete)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server, hub
}

func dialTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads frames until one carries the wanted event name, failing the
// test on timeout. Frames for other events are skipped.
func readEvent(t *testing.T, conn *websocket.Conn, event string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("frame is not valid JSON: %v", err)
		}
		if decoded["event"] == event {
			return decoded
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, message interface{}) {
	t.Helper()
	if err := conn.WriteJSON(message); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
}

func TestWebSocket_ConnectAndJoinRoom(t *testing.T) {
	server, hub := newTestServer(t, &scriptedSpeech{})
	conn := dialTestServer(t, server)

	welcome := readEvent(t, conn, domain.EventConnectionSuccess)
	if welcome["message"] != "Connected successfully" {
		t.Errorf("unexpected welcome: %v", welcome)
	}
	if hub.ActiveClients() != 1 {
		t.Errorf("expected 1 active client, got %d", hub.ActiveClients())
	}

	sendEvent(t, conn, map[string]string{"event": domain.EventJoinRoom, "room": "R1"})
	joined := readEvent(t, conn, domain.EventRoomJoined)
	if joined["room"] != "R1" {
		t.Errorf("unexpected join ack: %v", joined)
	}
}

func TestWebSocket_JoinWithoutRoomRejected(t *testing.T) {
	server, _ := newTestServer(t, &scriptedSpeech{})
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{"event": domain.EventJoinRoom})
	errEvent := readEvent(t, conn, domain.EventError)
	if errEvent["message"] != "Room is required to join" {
		t.Errorf("unexpected error message: %v", errEvent)
	}
}

func TestWebSocket_RealtimeRecognitionFlow(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	speech := &scriptedSpeech{recognizer: recognizer}
	server, _ := newTestServer(t, speech)
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{"event": domain.EventJoinRoom, "room": "R1"})
	readEvent(t, conn, domain.EventRoomJoined)

	sendEvent(t, conn, map[string]interface{}{
		"event":            domain.EventStartRealtime,
		"room_id":          "R1",
		"language":         "en-US",
		"target_languages": []string{"lv-LV", "fr-FR"},
	})
	started := readEvent(t, conn, domain.EventRealtimeStarted)
	if started["room_id"] != "R1" {
		t.Errorf("unexpected start ack: %v", started)
	}

	sendEvent(t, conn, map[string]string{
		"event":      domain.EventRealtimeAudio,
		"room_id":    "R1",
		"audio_data": base64.StdEncoding.EncodeToString([]byte("pcm-frame")),
	})

	// The engine reports an interim and then a final result.
	waitFor(t, func() bool {
		recognizer.mu.Lock()
		defer recognizer.mu.Unlock()
		return recognizer.written == 1
	})
	recognizer.fireInterim("Hel")
	interim := readEvent(t, conn, domain.EventTranscription)
	if interim["text"] != "Hel" || interim["is_final"] != false {
		t.Errorf("unexpected interim transcription: %v", interim)
	}

	recognizer.fireFinal("Hello")
	final := readEvent(t, conn, domain.EventTranscription)
	if final["text"] != "Hello" || final["is_final"] != true {
		t.Errorf("unexpected final transcription: %v", final)
	}
	if final["source_language"] != "en-US" || final["room_id"] != "R1" {
		t.Errorf("final transcription missing context: %v", final)
	}

	translated := readEvent(t, conn, domain.EventRealtimeTranslation)
	if translated["original"] != "Hello" {
		t.Errorf("unexpected translation original: %v", translated)
	}
	translations, ok := translated["translations"].(map[string]interface{})
	if !ok || len(translations) != 2 {
		t.Fatalf("expected 2 translations, got %v", translated["translations"])
	}
	if translations["lv-LV"] != "Hello (lv-LV)" || translations["fr-FR"] != "Hello (fr-FR)" {
		t.Errorf("unexpected translations: %v", translations)
	}

	sendEvent(t, conn, map[string]string{"event": domain.EventStopRealtime})
	stopped := readEvent(t, conn, domain.EventRealtimeStopped)
	if stopped["room_id"] != "R1" {
		t.Errorf("unexpected stop ack: %v", stopped)
	}
}

func TestWebSocket_StartWithoutRoomRejected(t *testing.T) {
	server, _ := newTestServer(t, &scriptedSpeech{recognizer: &scriptedRecognizer{}})
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{"event": domain.EventStartRealtime})
	errEvent := readEvent(t, conn, domain.EventError)
	if errEvent["message"] != "Room ID is required for real-time recognition" {
		t.Errorf("unexpected error: %v", errEvent)
	}
}

func TestWebSocket_DoubleStartRejected(t *testing.T) {
	server, _ := newTestServer(t, &scriptedSpeech{recognizer: &scriptedRecognizer{}})
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	start := map[string]string{"event": domain.EventStartRealtime, "room_id": "R1"}
	sendEvent(t, conn, start)
	readEvent(t, conn, domain.EventRealtimeStarted)

	sendEvent(t, conn, start)
	errEvent := readEvent(t, conn, domain.EventError)
	if errEvent["message"] != "Real-time recognition is already active" {
		t.Errorf("unexpected error: %v", errEvent)
	}
}

func TestWebSocket_AudioChunkFlow(t *testing.T) {
	speech := &scriptedSpeech{onceText: "Labdien"}
	server, _ := newTestServer(t, speech)
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{"event": domain.EventJoinRoom, "room": "R1"})
	readEvent(t, conn, domain.EventRoomJoined)

	sendEvent(t, conn, map[string]interface{}{
		"event":            domain.EventAudioChunk,
		"room_id":          "R1",
		"audio":            base64.StdEncoding.EncodeToString([]byte("wav-bytes")),
		"language":         "lv-LV",
		"target_languages": []string{},
	})

	result := readEvent(t, conn, domain.EventTranslationResult)
	if result["original"] != "Labdien" || result["source_language"] != "lv-LV" {
		t.Errorf("unexpected result: %v", result)
	}
	translations, ok := result["translations"].(map[string]interface{})
	if !ok || len(translations) != 0 {
		t.Errorf("expected empty translations, got %v", result["translations"])
	}
}

func TestWebSocket_IncompleteAudioChunkRejected(t *testing.T) {
	server, _ := newTestServer(t, &scriptedSpeech{})
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{
		"event":   domain.EventAudioChunk,
		"room_id": "R1",
	})
	errEvent := readEvent(t, conn, domain.EventTranslationError)
	if errEvent["message"] != "Incomplete audio data received." {
		t.Errorf("unexpected error: %v", errEvent)
	}
	if errEvent["room_id"] != "R1" {
		t.Errorf("error should carry the room id, got %v", errEvent)
	}
}

func TestWebSocket_BroadcastReachesRoomMembersOnly(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	speech := &scriptedSpeech{recognizer: recognizer}
	server, _ := newTestServer(t, speech)

	speaker := dialTestServer(t, server)
	readEvent(t, speaker, domain.EventConnectionSuccess)
	listener := dialTestServer(t, server)
	readEvent(t, listener, domain.EventConnectionSuccess)
	outsider := dialTestServer(t, server)
	readEvent(t, outsider, domain.EventConnectionSuccess)

	sendEvent(t, speaker, map[string]string{"event": domain.EventJoinRoom, "room": "R1"})
	readEvent(t, speaker, domain.EventRoomJoined)
	sendEvent(t, listener, map[string]string{"event": domain.EventJoinRoom, "room": "R1"})
	readEvent(t, listener, domain.EventRoomJoined)
	sendEvent(t, outsider, map[string]string{"event": domain.EventJoinRoom, "room": "R2"})
	readEvent(t, outsider, domain.EventRoomJoined)

	sendEvent(t, speaker, map[string]string{"event": domain.EventStartRealtime, "room_id": "R1"})
	readEvent(t, speaker, domain.EventRealtimeStarted)

	recognizer.fireFinal("Hello")

	got := readEvent(t, speaker, domain.EventTranscription)
	if got["text"] != "Hello" {
		t.Errorf("speaker missed the transcript: %v", got)
	}
	got = readEvent(t, listener, domain.EventTranscription)
	if got["text"] != "Hello" {
		t.Errorf("listener missed the transcript: %v", got)
	}

	// The outsider's connection must stay silent.
	outsider.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, payload, err := outsider.ReadMessage(); err == nil {
		t.Errorf("outsider received unexpected frame: %s", payload)
	}
}

func TestWebSocket_DisconnectCleansUpSession(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	speech := &scriptedSpeech{recognizer: recognizer}
	server, hub := newTestServer(t, speech)
	conn := dialTestServer(t, server)
	readEvent(t, conn, domain.EventConnectionSuccess)

	sendEvent(t, conn, map[string]string{"event": domain.EventStartRealtime, "room_id": "R1"})
	readEvent(t, conn, domain.EventRealtimeStarted)

	conn.Close()

	waitFor(t, func() bool {
		return hub.ActiveClients() == 0 && hub.realtime.ActiveSessions() == 0
	})
}

func TestHub_SendDuringDisconnect(t *testing.T) {
	logger := zap.NewNop()
	registry := rooms.NewRegistry()
	hub := NewHub(registry, logger)
	broadcaster := rooms.NewBroadcaster(registry, hub, logger)
	fanout := usecase.NewTranslationFanout(suffixTranslator{}, logger)
	speech := &scriptedSpeech{}
	hub.SetServices(
		usecase.NewRealtimeService(speech, fanout, broadcaster, logger),
		usecase.NewDiscreteService(speech, fanout, broadcaster, logger))

	// Broadcast deliveries race against client teardown; neither side may
	// panic or deliver to a torn-down client.
	payload := []byte(`{"event":"test"}`)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Send("c", payload)
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		client := &Client{hub: hub, send: make(chan []byte, 1), id: "c", logger: logger}
		hub.addClient(client)
		hub.removeClient(client)
		if client.trySend(payload) {
			t.Fatal("send succeeded after teardown")
		}
	}
	close(stop)
	wg.Wait()

	if hub.ActiveClients() != 0 {
		t.Errorf("expected no clients left, got %d", hub.ActiveClients())
	}
	if hub.Send("c", payload) {
		t.Error("send to a removed client should report failure")
	}
}

// waitFor polls until cond holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
