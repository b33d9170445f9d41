package api

import "time"

// TokenRequest represents the request payload for client token issuance.
type TokenRequest struct {
	ClientName string `json:"client_name"`
}

// TokenResponse represents the response payload for client token issuance.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatusResponse is the root status payload.
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HealthResponse reports whether the recognition and translation
// collaborators are configured.
type HealthResponse struct {
	Status             string `json:"status"`
	SpeechService      string `json:"speech_service"`
	TranslationService string `json:"translation_service"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
