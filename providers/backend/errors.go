package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pmoura/loom/internal/utils"
)

// Sentinel errors forming the adapter failure taxonomy. Fallback chains
// advance only past retryable failures; everything else surfaces immediately.
var (
	// ErrModelUnavailable marks a "model not found / unsupported / unavailable"
	// failure. Retryable: the adapter moves to its next candidate model.
	ErrModelUnavailable = errors.New("model unavailable or not supported")

	// ErrRateLimited marks a provider rate limit. Fatal: never retried, even
	// when fallback candidates remain.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrSafetyBlocked marks a safety or content-policy rejection. Fatal:
	// retrying a blocked request on another model is pointless.
	ErrSafetyBlocked = errors.New("blocked by provider safety filters")

	// ErrPollTimeout marks an asynchronous job that did not reach a terminal
	// state within the polling budget.
	ErrPollTimeout = errors.New("asynchronous job timed out")

	// ErrUnparseable marks a 2xx response the text heuristics could not find
	// any usable text in. Fatal: the model answered, just not readably.
	ErrUnparseable = errors.New("unparseable provider response")
)

// ConfigError is a fatal node configuration problem: missing prompt, missing
// credential, unknown provider or voice. It is surfaced immediately and never
// retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// FailureClass partitions adapter errors for the fallback loop.
type FailureClass int

const (
	// ClassNone means no error.
	ClassNone FailureClass = iota

	// ClassRetryable means the next fallback candidate may be tried.
	ClassRetryable

	// ClassFatal means the failure surfaces immediately.
	ClassFatal
)

// Classify maps an adapter error onto the fallback taxonomy. Only
// [ErrModelUnavailable] is retryable; rate limits, safety rejections,
// configuration problems and everything else stop the chain.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrModelUnavailable):
		return ClassRetryable
	default:
		return ClassFatal
	}
}

// apiErrorEnvelope is the common {"error": {...}} shape of provider error
// bodies. Fields are best-effort; providers disagree on which are present.
type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// modelUnavailableMarkers are substrings that identify a "model not found /
// unsupported" failure in provider error text.
var modelUnavailableMarkers = []string{
	"model_not_found",
	"model not found",
	"does not exist",
	"unsupported model",
	"unknown model",
	"model is not available",
	"decommissioned",
}

// safetyMarkers identify safety and content-policy rejections.
var safetyMarkers = []string{
	"safety",
	"content_policy",
	"content policy",
	"content_filter",
	"moderation",
}

// ClassifyHTTP turns a non-2xx provider response into a taxonomy error. The
// error message is extracted best-effort from the JSON error envelope, falling
// back to the raw body.
func ClassifyHTTP(statusErr *utils.StatusError) error {
	message := extractErrorMessage(statusErr.Body)
	lowered := strings.ToLower(message)

	if statusErr.StatusCode == http.StatusTooManyRequests || strings.Contains(lowered, "rate limit") {
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	}

	for _, marker := range safetyMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("%w: %s", ErrSafetyBlocked, message)
		}
	}

	for _, marker := range modelUnavailableMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("%w: %s", ErrModelUnavailable, message)
		}
	}
	if statusErr.StatusCode == http.StatusNotFound && strings.Contains(lowered, "model") {
		return fmt.Errorf("%w: %s", ErrModelUnavailable, message)
	}

	return fmt.Errorf("provider returned status %d: %s", statusErr.StatusCode, message)
}

// AsTaxonomy converts any error coming out of an HTTP helper into a taxonomy
// error: status errors are classified, everything else (transport failures,
// context cancellation) passes through unchanged.
func AsTaxonomy(err error) error {
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return ClassifyHTTP(statusErr)
	}
	return err
}

// extractErrorMessage pulls a human-readable message out of a provider error
// body. Falls back to the (truncated) raw body when the envelope is not JSON.
func extractErrorMessage(body string) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return utils.TruncateStringDefault(body)
}
