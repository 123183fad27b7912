package compose

import (
	"errors"
	"strings"

	"github.com/pmoura/loom/core/graph"
)

const (
	// Separator joins multiple upstream outputs into one block of context, in
	// edge-discovery order.
	Separator = "\n\n---\n\n"

	// Placeholder is the literal template token replaced with the joined
	// upstream text.
	Placeholder = "{{input}}"

	contextPreamble     = "Here is the context/input from the previous step:"
	instructionPreamble = "Now, complete the following task using the context above:"
)

// ErrNoSpeechInput indicates a speech node with neither upstream text nor
// configured text. This is a terminal configuration error: there is nothing
// to synthesize.
var ErrNoSpeechInput = errors.New("speech node has no upstream text and no configured text")

// JoinUpstream merges upstream outputs with [Separator], preserving their
// order and dropping empty entries. A failed predecessor contributes no
// output, so its edge simply adds nothing to the joined text.
func JoinUpstream(upstream []string) string {
	parts := make([]string, 0, len(upstream))
	for _, text := range upstream {
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, Separator)
}

// Compose resolves the effective input text for a node from its template and
// the ordered upstream outputs.
//
// For speech nodes there is no template: the composed input is the joined
// upstream text, falling back to the node's configured text, and
// [ErrNoSpeechInput] when neither exists.
//
// For every other node, each occurrence of [Placeholder] in the template is
// replaced with the joined upstream text. A template without the placeholder
// is wrapped: a fixed context preamble, the upstream text, a separator, a
// fixed instruction preamble, then the original template. Without upstream
// text the template is used verbatim.
func Compose(node *graph.Node, upstream []string) (string, error) {
	joined := JoinUpstream(upstream)

	if node.Kind == graph.KindAI && node.Data.Provider == graph.ProviderSpeech {
		if joined != "" {
			return joined, nil
		}
		if node.Data.Text != "" {
			return node.Data.Text, nil
		}
		return "", ErrNoSpeechInput
	}

	template := node.Data.Prompt

	if strings.Contains(template, Placeholder) {
		return strings.ReplaceAll(template, Placeholder, joined), nil
	}

	if joined == "" {
		return template, nil
	}

	var builder strings.Builder
	builder.WriteString(contextPreamble)
	builder.WriteString("\n\n")
	builder.WriteString(joined)
	builder.WriteString(Separator)
	builder.WriteString(instructionPreamble)
	builder.WriteString("\n\n")
	builder.WriteString(template)
	return builder.String(), nil
}
