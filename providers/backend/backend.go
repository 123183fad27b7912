package backend

import (
	"context"
)

// Invoker is the common contract every provider adapter implements. An
// adapter owns its family's resilience policy internally: model fallback
// chains, parameter-variant fallback, feature degradation, and two-phase
// submit/poll execution all happen inside Invoke. A successful return means
// some candidate succeeded; an error means the policy was exhausted or a
// fatal failure was hit.
type Invoker interface {
	// Invoke calls the backend with the composed prompt and node parameters.
	// Returns an error classified by the taxonomy in this package when the
	// call fails; see [Classify].
	Invoke(ctx context.Context, request Request) (*Result, error)
}

// OutputKind tags what a provider produced. Media payloads travel inline as
// data URLs, so every output is ultimately text.
type OutputKind string

const (
	// OutputText is plain response text.
	OutputText OutputKind = "text"

	// OutputImageDataURL is a data:image/...;base64 payload.
	OutputImageDataURL OutputKind = "image_data_url"

	// OutputAudioDataURL is a data:audio/...;base64 payload.
	OutputAudioDataURL OutputKind = "audio_data_url"
)

// Request carries the composed prompt and the node-level parameters of one
// provider call. Credentials are resolved per dispatch and passed here rather
// than held by the adapter, so one adapter instance serves every run.
type Request struct {
	// Prompt is the effective input text produced by the compositor.
	Prompt string

	// SystemPrompt is an optional system instruction (text providers only).
	SystemPrompt string

	// Model is the requested model variant; the first candidate of the
	// adapter's fallback chain. Empty selects the adapter default.
	Model string

	// APIKey authenticates the call.
	APIKey string

	// Temperature is the sampling temperature [0..2].
	Temperature float64

	// MaxTokens optionally caps the response length.
	MaxTokens int

	// VoiceID selects the voice for speech synthesis.
	VoiceID string

	// Images are base64 data URLs attached to the prompt.
	Images []string

	// Mode selects adapter-specific behavior: the extraction sub-mode for
	// reader calls, or "search" to augment text calls with a web-search tool.
	Mode string
}

// Result is a successful provider output.
type Result struct {
	Kind OutputKind
	Text string
}
