// Package speech implements the text-to-speech adapter. Synthesis is a
// single synchronous call returning raw audio bytes, rendered as an audio
// data URL. There is no model fallback chain: a voice is an account-level
// resource, so an unknown voice is a configuration error rather than a
// retryable failure.
package speech
