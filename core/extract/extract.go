package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// maxDepth bounds the traversal. Provider envelopes nest response text a few
// levels deep at most; anything deeper is metadata noise.
const maxDepth = 5

// minTextLength is the shortest string the heuristics will accept.
const minTextLength = 2

// ErrNoText indicates that no plausible response text was found anywhere in
// the payload. This is fatal for the node that produced it.
var ErrNoText = errors.New("no plausible text found in provider response")

// idPrefixes mark opaque identifiers that providers scatter through their
// envelopes. A string starting with one of these is never response text.
var idPrefixes = []string{"resp_", "msg_", "chatcmpl-", "call_", "file-", "run_", "asst_"}

// metadataKeys are object members that never contain response text; the
// generic traversal skips them instead of recursing.
var metadataKeys = map[string]struct{}{
	"id":                 {},
	"object":             {},
	"created":            {},
	"created_at":         {},
	"status":             {},
	"usage":              {},
	"model":              {},
	"role":               {},
	"type":               {},
	"finish_reason":      {},
	"stop_reason":        {},
	"system_fingerprint": {},
	"index":              {},
	"logprobs":           {},
}

// priorityFields are object members checked before generic recursion, in
// preference order.
var priorityFields = []string{"text", "content", "message", "output_text"}

var (
	wordPattern     = regexp.MustCompile(`[A-Za-z0-9]{2,}`)
	readablePattern = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9 ,.;:'"!?()\-]*[A-Za-z0-9.!?)]`)
)

// Text extracts plausible response text from a raw provider response body.
// The body is parsed as JSON; malformed payloads are repaired with jsonrepair
// and re-parsed before giving up. A body that is not JSON at all is treated
// as a bare string candidate. Returns [ErrNoText] when nothing plausible is
// found anywhere in the payload.
func Text(body []byte) (string, error) {
	value, err := Parse(body)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(body))
		if repairErr == nil {
			value, err = Parse([]byte(repaired))
		}
		if err != nil {
			// Not JSON in any salvageable form: the body itself may be the text.
			if text, ok := acceptString(string(body), true); ok {
				return text, nil
			}
			return "", fmt.Errorf("%w: body is neither JSON nor readable text", ErrNoText)
		}
	}

	text, ok := FromValue(value)
	if !ok {
		return "", ErrNoText
	}
	return text, nil
}

// FromValue performs the depth-bounded heuristic search over an already
// parsed JSON value. The first acceptable string wins; matches are never
// concatenated.
func FromValue(value Value) (string, bool) {
	return search(value, 0)
}

func search(value Value, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	switch value.Kind {
	case KindString:
		return acceptString(value.Str, true)
	case KindArray:
		for _, element := range value.Array {
			if text, ok := search(element, depth+1); ok {
				return text, true
			}
		}
	case KindObject:
		return searchObject(value, depth)
	}
	return "", false
}

// searchObject checks the known priority fields before falling back to
// generic recursion over the remaining members in serialization order.
func searchObject(object Value, depth int) (string, bool) {
	// Highest priority: content[] entries tagged as output text.
	if content, ok := object.Field("content"); ok && content.Kind == KindArray {
		for _, element := range content.Array {
			if element.Kind != KindObject || element.StringField("type") != "output_text" {
				continue
			}
			if text, ok := acceptString(element.StringField("text"), false); ok {
				return text, true
			}
		}
	}

	// Next: the output[] envelope used by responses-style APIs.
	if output, ok := object.Field("output"); ok && output.Kind == KindArray {
		if text, ok := search(output, depth+1); ok {
			return text, true
		}
	}

	for _, key := range priorityFields {
		field, ok := object.Field(key)
		if !ok {
			continue
		}
		if field.Kind == KindString {
			if text, ok := acceptString(field.Str, false); ok {
				return text, true
			}
			continue
		}
		if text, ok := search(field, depth+1); ok {
			return text, true
		}
	}

	for _, member := range object.Members {
		if _, skip := metadataKeys[member.Key]; skip {
			continue
		}
		if isPriorityField(member.Key) {
			continue // already checked above
		}
		if text, ok := search(member.Value, depth+1); ok {
			return text, true
		}
	}
	return "", false
}

func isPriorityField(key string) bool {
	if key == "output" {
		return true
	}
	for _, field := range priorityFields {
		if key == field {
			return true
		}
	}
	return false
}

// acceptString decides whether s is plausible response text. Strings found
// under known priority fields are trusted (strict=false) and only screened
// for identifier prefixes and minimum length; strings found during generic
// recursion get the full heuristics: enough word-like runs unless the string
// is long, and a bounded ratio of non-alphanumeric characters. Short strings
// that fail the symbol-ratio check are salvaged by extracting their longest
// clean run of readable characters rather than rejected outright.
func acceptString(s string, strict bool) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < minTextLength {
		return "", false
	}

	for _, prefix := range idPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return "", false
		}
	}

	if !strict {
		return trimmed, true
	}

	if symbolRatio(trimmed) > 0.4 && len(trimmed) < 120 {
		return salvage(trimmed)
	}

	if len(wordPattern.FindAllString(trimmed, 3)) < 3 && len(trimmed) < 40 {
		return "", false
	}

	return trimmed, true
}

// salvage extracts the longest clean run of readable characters from a noisy
// string, accepting it when it still looks like prose.
func salvage(s string) (string, bool) {
	runs := readablePattern.FindAllString(s, -1)
	longest := ""
	for _, run := range runs {
		if len(run) > len(longest) {
			longest = run
		}
	}

	longest = strings.TrimSpace(longest)
	if len(longest) < minTextLength {
		return "", false
	}
	if len(wordPattern.FindAllString(longest, 3)) < 3 && len(longest) < 40 {
		return "", false
	}
	return longest, true
}

// symbolRatio is the fraction of characters that are neither alphanumeric
// nor common whitespace.
func symbolRatio(s string) float64 {
	if s == "" {
		return 0
	}
	symbols := 0
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '\n', r == '\t':
		default:
			symbols++
		}
	}
	return float64(symbols) / float64(len([]rune(s)))
}
