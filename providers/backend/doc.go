// Package backend defines the shared, provider-agnostic contract implemented
// by every adapter family (chat, imagegen, speech, videogen, reader). Each
// adapter maps the generic [Request] to its own wire format and encodes its
// family's resilience policy (model fallback chains, parameter-variant
// fallback, feature degradation, two-phase submit/poll jobs) behind the
// single [Invoker] interface.
//
// The package also owns the failure taxonomy: sentinel errors, [ConfigError],
// and the [Classify] partition that fallback loops iterate on instead of
// string-matching exception messages.
package backend
