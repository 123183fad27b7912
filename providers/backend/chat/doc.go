// Package chat implements the text-generation adapter. It speaks a
// responses-style API and walks an ordered model fallback chain, advancing
// only on retryable failures. When the web-search tool is requested and the
// backend rejects it, the request is retried once without the tool before
// the failure counts against the model.
package chat
