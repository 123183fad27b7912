// Package utils provides shared low-level helpers used throughout the loom
// internals. It covers HTTP request helpers for synchronous JSON round-trips
// with AI provider APIs, string truncation for log output, and data URL
// encoding for inline media payloads.
//
// Key entry points: [DoPostRaw] and [DoGetRaw] for raw-body round-trips (the
// response normalizer needs the unparsed envelope), [DoPostSync] and
// [DoGetSync] for typed JSON responses, and [DataURL] for base64 media
// encoding. Non-2xx responses are reported as [StatusError] so adapters can
// classify provider failures from the error envelope.
package utils
