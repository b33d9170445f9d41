package domain

// Event names carried in the "event" field of every websocket frame.
const (
	// inbound
	EventJoinRoom      = "join_room"
	EventAudioChunk    = "audio_chunk"
	EventStartRealtime = "start_realtime_recognition"
	EventRealtimeAudio = "realtime_audio_chunk"
	EventStopRealtime  = "stop_realtime_recognition"

	// outbound
	EventConnectionSuccess   = "connection_success"
	EventRoomJoined          = "room_joined"
	EventTranslationResult   = "translation_result"
	EventRealtimeStarted     = "realtime_recognition_started"
	EventTranscription       = "realtime_transcription"
	EventRealtimeTranslation = "realtime_translation"
	EventRealtimeStopped     = "realtime_recognition_stopped"
	EventTranslationError    = "translation_error"
	EventError               = "error"
)

// Envelope is the minimal frame shape used to pick the handler for an
// inbound message before decoding the full payload.
type Envelope struct {
	Event string `json:"event"`
}

// JoinRoomMessage asks to join a broadcast room.
type JoinRoomMessage struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// AudioChunkMessage carries a single bounded audio payload for one-shot
// recognition and translation.
type AudioChunkMessage struct {
	Event           string   `json:"event"`
	RoomID          string   `json:"room_id"`
	Audio           string   `json:"audio"` // base64 encoded
	Language        string   `json:"language"`
	TargetLanguages []string `json:"target_languages"`
}

// StartRealtimeMessage starts a continuous recognition session.
type StartRealtimeMessage struct {
	Event           string   `json:"event"`
	RoomID          string   `json:"room_id"`
	Language        string   `json:"language"`
	TargetLanguages []string `json:"target_languages"`
}

// RealtimeAudioMessage feeds audio into an active continuous session.
type RealtimeAudioMessage struct {
	Event     string `json:"event"`
	RoomID    string `json:"room_id"`
	AudioData string `json:"audio_data"` // base64 encoded
}

// ConnectionSuccessMessage acknowledges a new connection.
type ConnectionSuccessMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// RoomJoinedMessage acknowledges a join_room.
type RoomJoinedMessage struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// TranslationResultMessage is the outcome of the one-shot recognition flow.
type TranslationResultMessage struct {
	Event          string            `json:"event"`
	Original       string            `json:"original"`
	Translations   map[string]string `json:"translations"`
	SourceLanguage string            `json:"source_language"`
	TargetLanguage string            `json:"target_language,omitempty"`
	RoomID         string            `json:"room_id"`
	IsManual       bool              `json:"is_manual"`
	IsFinal        bool              `json:"is_final"`
}

// RealtimeStartedMessage acknowledges a started continuous session.
type RealtimeStartedMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
}

// TranscriptionMessage is an interim or final transcript broadcast to a room.
type TranscriptionMessage struct {
	Event          string `json:"event"`
	Text           string `json:"text"`
	IsFinal        bool   `json:"is_final"`
	SourceLanguage string `json:"source_language"`
	RoomID         string `json:"room_id"`
}

// RealtimeTranslationMessage carries the aggregated translations of a final
// transcript.
type RealtimeTranslationMessage struct {
	Event          string            `json:"event"`
	Original       string            `json:"original"`
	Translations   map[string]string `json:"translations"`
	SourceLanguage string            `json:"source_language"`
	RoomID         string            `json:"room_id"`
}

// RealtimeStoppedMessage acknowledges a stopped continuous session.
type RealtimeStoppedMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
}

// TranslationErrorMessage reports a failure scoped to one room's translation
// request.
type TranslationErrorMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
}

// ErrorMessage reports a failure back to the sender.
type ErrorMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func NewConnectionSuccess(message string) *ConnectionSuccessMessage {
	return &ConnectionSuccessMessage{Event: EventConnectionSuccess, Message: message}
}

func NewRoomJoined(room string) *RoomJoinedMessage {
	return &RoomJoinedMessage{Event: EventRoomJoined, Room: room}
}

func NewError(message string) *ErrorMessage {
	return &ErrorMessage{Event: EventError, Message: message}
}

func NewTranslationError(message, roomID string) *TranslationErrorMessage {
	return &TranslationErrorMessage{Event: EventTranslationError, Message: message, RoomID: roomID}
}
