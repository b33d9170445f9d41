package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/domain/repositories"
)

type sessionState int

const (
	stateCreated sessionState = iota
	stateListening
	stateStopped
)

// StreamingSession is the per-connection continuous-recognition state
// machine: Created -> Listening -> Stopped. Engine callbacks race with stop
// and disconnect, so every transition and every piece of text state is
// guarded by the session mutex. The Stopped guard makes resource release
// exactly-once no matter which path gets there first.
type StreamingSession struct {
	service *RealtimeService

	connectionID    string
	roomID          string
	sourceLanguage  string
	targetLanguages []string

	mu          sync.Mutex
	state       sessionState
	recognizer  repositories.StreamingRecognizer
	lastPartial string
	lastFinal   string
}

func newStreamingSession(service *RealtimeService, connectionID, roomID, language string, targetLanguages []string) *StreamingSession {
	return &StreamingSession{
		service:         service,
		connectionID:    connectionID,
		roomID:          roomID,
		sourceLanguage:  language,
		targetLanguages: targetLanguages,
		state:           stateCreated,
	}
}

// attach hands the freshly allocated recognizer to the session. It reports
// false when the session was stopped while allocation was in flight; the
// caller then owns releasing the recognizer.
func (ss *StreamingSession) attach(recognizer repositories.StreamingRecognizer) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.state == stateStopped {
		return false
	}
	ss.recognizer = recognizer
	return true
}

func (ss *StreamingSession) markListening() {
	ss.mu.Lock()
	if ss.state == stateCreated {
		ss.state = stateListening
	}
	ss.mu.Unlock()
}

// write pushes audio into the engine's sink. Only Listening sessions accept
// audio; anything else is silently dropped. The engine write happens outside
// the lock so a slow sink never stalls callbacks.
func (ss *StreamingSession) write(audio []byte) {
	ss.mu.Lock()
	if ss.state != stateListening {
		ss.mu.Unlock()
		return
	}
	recognizer := ss.recognizer
	ss.mu.Unlock()

	if err := recognizer.Write(audio); err != nil {
		ss.service.logger.Warn("Failed to write audio to recognizer",
			zap.String("connectionID", ss.connectionID),
			zap.Error(err))
	}
}

// stop transitions to Stopped and releases the recognizer. Reports whether
// this call performed the transition; every later call is a no-op.
func (ss *StreamingSession) stop() bool {
	ss.mu.Lock()
	if ss.state == stateStopped {
		ss.mu.Unlock()
		return false
	}
	ss.state = stateStopped
	recognizer := ss.recognizer
	ss.recognizer = nil
	ss.mu.Unlock()

	if recognizer != nil {
		if err := recognizer.Stop(); err != nil {
			ss.service.logger.Error("Failed to stop recognizer",
				zap.String("connectionID", ss.connectionID),
				zap.Error(err))
		}
	}
	return true
}

// handleInterim records and broadcasts a provisional transcript. Interim
// results repeat and extend each other, so no deduplication happens here.
func (ss *StreamingSession) handleInterim(text string) {
	if text == "" {
		return
	}

	ss.mu.Lock()
	if ss.state == stateStopped {
		ss.mu.Unlock()
		return
	}
	ss.lastPartial = text
	ss.mu.Unlock()

	ss.service.broadcaster.Broadcast(ss.roomID, &domain.TranscriptionMessage{
		Event:          domain.EventTranscription,
		Text:           text,
		IsFinal:        false,
		SourceLanguage: ss.sourceLanguage,
		RoomID:         ss.roomID,
	})
}

// handleFinal broadcasts a completed transcript and fans it out to the
// session's target languages. Engines occasionally repeat a final result;
// the lastFinal guard keeps the transcript and translation dispatch to
// exactly one per distinct text.
func (ss *StreamingSession) handleFinal(text string) {
	if text == "" {
		return
	}

	ss.mu.Lock()
	if ss.state == stateStopped || text == ss.lastFinal {
		ss.mu.Unlock()
		return
	}
	ss.lastFinal = text
	ss.mu.Unlock()

	ss.service.broadcaster.Broadcast(ss.roomID, &domain.TranscriptionMessage{
		Event:          domain.EventTranscription,
		Text:           text,
		IsFinal:        true,
		SourceLanguage: ss.sourceLanguage,
		RoomID:         ss.roomID,
	})

	translations := ss.service.fanout.TranslateAll(context.Background(), text, ss.sourceLanguage, ss.targetLanguages)
	ss.service.broadcaster.Broadcast(ss.roomID, &domain.RealtimeTranslationMessage{
		Event:          domain.EventRealtimeTranslation,
		Original:       text,
		Translations:   translations,
		SourceLanguage: ss.sourceLanguage,
		RoomID:         ss.roomID,
	})
}

func (ss *StreamingSession) handleCanceled(reason string) {
	ss.service.handleCanceled(ss, reason)
}
