package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/domain/repositories"
)

var (
	// ErrSessionExists rejects a start while the connection already owns a
	// live session.
	ErrSessionExists = errors.New("realtime recognition already active for this connection")

	// ErrNoSession means the connection has no live session.
	ErrNoSession = errors.New("no active realtime recognition session")
)

// Broadcaster is the outbound surface the recognition flows need: room-wide
// delivery plus direct delivery to a single connection.
type Broadcaster interface {
	Broadcast(roomID string, message interface{})
	SendTo(connectionID string, message interface{})
}

// RealtimeService owns the streaming recognition sessions, at most one per
// connection.
type RealtimeService struct {
	stt         repositories.SpeechToText
	fanout      *TranslationFanout
	broadcaster Broadcaster
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*StreamingSession
}

func NewRealtimeService(stt repositories.SpeechToText, fanout *TranslationFanout, broadcaster Broadcaster, logger *zap.Logger) *RealtimeService {
	return &RealtimeService{
		stt:         stt,
		fanout:      fanout,
		broadcaster: broadcaster,
		logger:      logger,
		sessions:    make(map[string]*StreamingSession),
	}
}

// Start allocates a recognizer and begins continuous recognition for the
// connection. The session slot is reserved before allocation so concurrent
// starts for the same connection cannot both succeed.
func (s *RealtimeService) Start(ctx context.Context, connectionID, roomID, language string, targetLanguages []string) error {
	session := newStreamingSession(s, connectionID, roomID, language, targetLanguages)

	s.mu.Lock()
	if _, exists := s.sessions[connectionID]; exists {
		s.mu.Unlock()
		return ErrSessionExists
	}
	s.sessions[connectionID] = session
	s.mu.Unlock()

	recognizer, err := s.stt.CreateStreamingSession(ctx, language)
	if err != nil {
		s.removeSession(connectionID, session)
		s.logger.Error("Failed to create speech recognizer",
			zap.String("connectionID", connectionID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}

	if !session.attach(recognizer) {
		// The connection disconnected while the recognizer was being
		// allocated. The session is already Stopped and gone from the map.
		if stopErr := recognizer.Stop(); stopErr != nil {
			s.logger.Warn("Failed to release recognizer for vanished session",
				zap.String("connectionID", connectionID),
				zap.Error(stopErr))
		}
		return ErrNoSession
	}

	recognizer.OnInterim(session.handleInterim)
	recognizer.OnFinal(session.handleFinal)
	recognizer.OnCanceled(session.handleCanceled)

	if err := recognizer.Start(); err != nil {
		s.Disconnect(connectionID)
		return fmt.Errorf("%w: %v", repositories.ErrRecognitionUnavailable, err)
	}
	session.markListening()

	s.logger.Info("Realtime recognition started",
		zap.String("connectionID", connectionID),
		zap.String("roomID", roomID),
		zap.String("language", language),
		zap.Strings("targetLanguages", targetLanguages))
	return nil
}

// WriteChunk decodes one base64 audio frame and hands it to the connection's
// session. Chunks for an unknown session, empty chunks and undecodable chunks
// are dropped with a warning; recognition carries on.
func (s *RealtimeService) WriteChunk(connectionID, audioData string) {
	s.mu.Lock()
	session := s.sessions[connectionID]
	s.mu.Unlock()

	if session == nil {
		s.logger.Warn("Audio chunk without active realtime session",
			zap.String("connectionID", connectionID))
		return
	}
	if audioData == "" {
		s.logger.Warn("Empty realtime audio chunk",
			zap.String("connectionID", connectionID))
		return
	}
	audio, err := base64.StdEncoding.DecodeString(audioData)
	if err != nil || len(audio) == 0 {
		s.logger.Warn("Undecodable realtime audio chunk",
			zap.String("connectionID", connectionID),
			zap.Error(err))
		return
	}
	session.write(audio)
}

// Stop ends the connection's session, releasing the recognizer exactly once.
// Returns the session's room id so the caller can acknowledge. ErrNoSession
// means some other path already stopped it (or none existed); callers treat
// that as a no-op.
func (s *RealtimeService) Stop(connectionID string) (string, error) {
	s.mu.Lock()
	session := s.sessions[connectionID]
	s.mu.Unlock()
	if session == nil {
		return "", ErrNoSession
	}

	if !session.stop() {
		return "", ErrNoSession
	}
	s.removeSession(connectionID, session)

	s.logger.Info("Realtime recognition stopped",
		zap.String("connectionID", connectionID),
		zap.String("roomID", session.roomID))
	return session.roomID, nil
}

// Disconnect is stop triggered by the transport layer: it never fails, even
// when the recognizer is already faulted.
func (s *RealtimeService) Disconnect(connectionID string) {
	if _, err := s.Stop(connectionID); err != nil && !errors.Is(err, ErrNoSession) {
		s.logger.Error("Error cleaning up realtime session on disconnect",
			zap.String("connectionID", connectionID),
			zap.Error(err))
	}
}

// ActiveSessions reports how many streaming sessions are currently live.
func (s *RealtimeService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// removeSession deletes the map entry only if it still points at session, so
// a stale cleanup cannot evict a successor session.
func (s *RealtimeService) removeSession(connectionID string, session *StreamingSession) {
	s.mu.Lock()
	if s.sessions[connectionID] == session {
		delete(s.sessions, connectionID)
	}
	s.mu.Unlock()
}

// handleCanceled reacts to an engine-reported cancellation: the session ends
// and the owning connection is told.
func (s *RealtimeService) handleCanceled(session *StreamingSession, reason string) {
	s.logger.Error("Recognition canceled by engine",
		zap.String("connectionID", session.connectionID),
		zap.String("reason", reason))

	if session.stop() {
		s.removeSession(session.connectionID, session)
	}
	s.broadcaster.SendTo(session.connectionID,
		domain.NewError(fmt.Sprintf("Recognition canceled: %s", reason)))
}
