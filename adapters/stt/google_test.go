package stt_test

import (
	"github.com/voxbridge/server/adapters/stt"
	"github.com/voxbridge/server/domain/repositories"
)

var (
	_ repositories.SpeechToText = &stt.GoogleSpeechToText{}
	_ repositories.SpeechToText = &stt.AzureSpeechToText{}
	_ repositories.SpeechToText = &stt.MockSpeechToText{}
)
