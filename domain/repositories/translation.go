package repositories

import "context"

// Translator abstracts text translation backends. Language tags are passed
// through as the client sent them; any normalization to the backend's
// expected vocabulary is the adapter's responsibility.
type Translator interface {
	// Configured reports whether a real backend is available.
	Configured() bool

	// ServiceType names the active backend ("deepl", "gemini" or "mock").
	ServiceType() string

	// Translate converts text from sourceLanguage to targetLanguage.
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}
