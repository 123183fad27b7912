package speech

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pmoura/loom/internal/utils"
	"github.com/pmoura/loom/providers/backend"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	ttsEndpoint    = "/text-to-speech/"

	defaultModelID = "eleven_multilingual_v2"
)

// Adapter is the speech-synthesis adapter. A single POST returns raw audio
// bytes, which are carried inline as an audio data URL. Speech calls have no
// fallback chain: the voice is part of the node's identity, so an unknown
// voice is a configuration error rather than a retryable failure.
type Adapter struct {
	baseURL string
	client  *http.Client
}

var _ backend.Invoker = (*Adapter)(nil)

// New creates a speech adapter with default values.
func New() *Adapter {
	return &Adapter{
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the default base URL for API requests.
func (a *Adapter) WithBaseURL(baseURL string) *Adapter {
	a.baseURL = baseURL
	return a
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (a *Adapter) WithHTTPClient(client *http.Client) *Adapter {
	a.client = client
	return a
}

type ttsPayload struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Invoke synthesizes the composed text with the node's voice and returns the
// audio as a data URL.
func (a *Adapter) Invoke(ctx context.Context, request backend.Request) (*backend.Result, error) {
	if request.APIKey == "" {
		return nil, backend.NewConfigError("speech API key is not set")
	}
	if request.VoiceID == "" {
		return nil, backend.NewConfigError("speech node has no voice id")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, backend.NewConfigError("speech node has no text to synthesize")
	}

	modelID := request.Model
	if modelID == "" {
		modelID = defaultModelID
	}

	audioBytes, err := utils.DoPostRaw(ctx, a.client, a.baseURL+ttsEndpoint+request.VoiceID, request.APIKey, ttsPayload{
		Text:    request.Prompt,
		ModelID: modelID,
	})
	if err != nil {
		if isUnknownVoice(err) {
			return nil, backend.NewConfigError("voice %q does not exist", request.VoiceID)
		}
		return nil, backend.AsTaxonomy(err)
	}

	return &backend.Result{
		Kind: backend.OutputAudioDataURL,
		Text: utils.DataURL("audio/mpeg", audioBytes),
	}, nil
}

// isUnknownVoice reports whether the backend rejected the voice id itself.
func isUnknownVoice(err error) bool {
	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.StatusCode != http.StatusNotFound && statusErr.StatusCode != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(statusErr.Body)
	return strings.Contains(body, "voice_not_found") || strings.Contains(body, "voice not found")
}
