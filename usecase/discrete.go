package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/domain/repositories"
)

// DiscreteService runs the one-shot path: a single bounded audio payload is
// recognized once, translated per target language, and each translation is
// broadcast to the room as soon as it is ready.
type DiscreteService struct {
	stt         repositories.SpeechToText
	fanout      *TranslationFanout
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewDiscreteService(stt repositories.SpeechToText, fanout *TranslationFanout, broadcaster Broadcaster, logger *zap.Logger) *DiscreteService {
	return &DiscreteService{
		stt:         stt,
		fanout:      fanout,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ProcessChunk recognizes audio and broadcasts translations to roomID.
// Silence is a normal outcome and produces no outbound events at all. With
// no target languages declared, the raw transcript is broadcast with an
// empty translation set.
func (s *DiscreteService) ProcessChunk(ctx context.Context, roomID string, audio []byte, language string, targetLanguages []string) error {
	text, err := s.stt.RecognizeOnce(ctx, audio, language)
	if err != nil {
		if errors.Is(err, repositories.ErrNoSpeech) {
			s.logger.Info("No speech recognized from chunk",
				zap.String("roomID", roomID))
			return nil
		}
		return err
	}

	s.logger.Info("Recognized speech from chunk",
		zap.String("roomID", roomID),
		zap.String("text", text))

	if len(targetLanguages) == 0 {
		s.broadcaster.Broadcast(roomID, &domain.TranslationResultMessage{
			Event:          domain.EventTranslationResult,
			Original:       text,
			Translations:   map[string]string{},
			SourceLanguage: language,
			RoomID:         roomID,
		})
		return nil
	}

	// Stream fan-out progress: every language that succeeds is broadcast on
	// its own, without waiting for the slow ones.
	s.fanout.TranslateEach(ctx, text, language, targetLanguages, func(target, translated string, err error) {
		if err != nil {
			s.logger.Error("Translation failed for chunk",
				zap.String("roomID", roomID),
				zap.String("targetLanguage", target),
				zap.Error(err))
			return
		}
		if translated == "" {
			return
		}
		s.broadcaster.Broadcast(roomID, &domain.TranslationResultMessage{
			Event:          domain.EventTranslationResult,
			Original:       text,
			Translations:   map[string]string{target: translated},
			SourceLanguage: language,
			TargetLanguage: target,
			RoomID:         roomID,
		})
	})
	return nil
}
