// Package extract pulls plausible plain text out of unpredictable, deeply
// nested AI provider response envelopes. Providers disagree wildly about
// where response text lives, so instead of per-provider parsing the package
// performs a depth-bounded heuristic search: known priority fields first
// (responses-style output arrays ranked highest), metadata keys skipped,
// identifier-looking and noise strings rejected, first acceptable hit wins.
//
// The payload is modeled as an explicit JSON [Value] variant with ordered
// object members, parsed by [Parse]. Malformed bodies are repaired with
// jsonrepair before parsing. [Text] is the main entry point for raw bytes;
// [FromValue] searches an already parsed value.
package extract
