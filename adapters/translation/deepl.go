package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
)

const (
	deeplAPIBaseURL     = "https://api.deepl.com/v2"
	deeplFreeAPIBaseURL = "https://api-free.deepl.com/v2"
	deeplTimeout        = 15 * time.Second
)

// deeplLangMap converts client language tags and plain language names to the
// codes DeepL expects. Lookups are lowercase; unmapped tags fall back to
// their base subtag, then to the tag as-is.
var deeplLangMap = map[string]string{
	"en":    "EN",
	"en-us": "EN-US",
	"en-gb": "EN-GB",
	"de":    "DE",
	"fr":    "FR",
	"es":    "ES",
	"it":    "IT",
	"nl":    "NL",
	"pl":    "PL",
	"pt":    "PT",
	"pt-br": "PT-BR",
	"pt-pt": "PT-PT",
	"ru":    "RU",
	"ja":    "JA",
	"zh":    "ZH",
	"zh-cn": "ZH",
	"lv":    "LV",
	"lt":    "LT",
	"bg":    "BG",
	"cs":    "CS",
	"da":    "DA",
	"el":    "EL",
	"et":    "ET",
	"fi":    "FI",
	"hu":    "HU",
	"id":    "ID",
	"ko":    "KO",
	"nb":    "NB",
	"ro":    "RO",
	"sk":    "SK",
	"sl":    "SL",
	"sv":    "SV",
	"tr":    "TR",
	"uk":    "UK",

	"english":    "EN",
	"german":     "DE",
	"french":     "FR",
	"spanish":    "ES",
	"italian":    "IT",
	"dutch":      "NL",
	"polish":     "PL",
	"portuguese": "PT",
	"russian":    "RU",
	"japanese":   "JA",
	"chinese":    "ZH",
	"latvian":    "LV",
	"lithuanian": "LT",
	"bulgarian":  "BG",
	"czech":      "CS",
	"danish":     "DA",
	"greek":      "EL",
	"estonian":   "ET",
	"finnish":    "FI",
	"hungarian":  "HU",
	"indonesian": "ID",
	"korean":     "KO",
	"norwegian":  "NB",
	"romanian":   "RO",
	"slovak":     "SK",
	"slovenian":  "SL",
	"swedish":    "SV",
	"turkish":    "TR",
	"ukrainian":  "UK",
}

// DeepLTranslator implements the Translator interface against the DeepL v2
// REST API.
type DeepLTranslator struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.Translator = (*DeepLTranslator)(nil)

// NewDeepLTranslator creates a DeepL-backed translator. Keys issued for the
// free tier (suffix ":fx") are routed to the free API host.
func NewDeepLTranslator(apiKey string, logger *zap.Logger) (*DeepLTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DeepL API key is required")
	}

	baseURL := deeplAPIBaseURL
	if strings.HasSuffix(apiKey, ":fx") {
		baseURL = deeplFreeAPIBaseURL
	}

	return &DeepLTranslator{
		apiKey:     apiKey,
		apiBaseURL: baseURL,
		httpClient: &http.Client{Timeout: deeplTimeout},
		logger:     logger,
	}, nil
}

func (d *DeepLTranslator) Configured() bool { return true }

func (d *DeepLTranslator) ServiceType() string { return "deepl" }

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate converts text via DeepL. The target tag is mapped to DeepL's
// vocabulary; the source tag is reduced to its base subtag since DeepL only
// accepts plain source codes.
func (d *DeepLTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if text == "" {
		return "", nil
	}
	targetCode := MapLanguageCode(targetLanguage)
	if targetCode == "" {
		return "", fmt.Errorf("invalid target language: %q", targetLanguage)
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetCode)
	if source := baseSubtag(sourceLanguage); source != "" {
		form.Set("source_lang", source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBaseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create DeepL request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("DeepL request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read DeepL response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode DeepL response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("DeepL returned no translations")
	}

	result := parsed.Translations[0]
	d.logger.Debug("DeepL translation succeeded",
		zap.String("detectedSource", result.DetectedSourceLanguage),
		zap.String("targetLanguage", targetCode))
	return result.Text, nil
}

// MapLanguageCode converts a client language tag or language name to the
// code DeepL expects.
func MapLanguageCode(languageCode string) string {
	if languageCode == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(languageCode))
	if code, ok := deeplLangMap[normalized]; ok {
		return code
	}
	if base := strings.SplitN(normalized, "-", 2)[0]; base != normalized {
		if code, ok := deeplLangMap[base]; ok {
			return code
		}
	}
	// Unknown tags go through uppercased; DeepL rejects them with a clear
	// error if it cannot handle them either.
	return strings.ToUpper(languageCode)
}

// baseSubtag extracts the plain language code DeepL wants for source_lang,
// e.g. "en" from "en-US". Empty input means auto-detect.
func baseSubtag(languageCode string) string {
	if languageCode == "" {
		return ""
	}
	return strings.ToUpper(strings.SplitN(strings.TrimSpace(languageCode), "-", 2)[0])
}
