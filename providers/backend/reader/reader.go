package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kaptinlin/jsonrepair"

	"github.com/pmoura/loom/core/extract"
	"github.com/pmoura/loom/internal/utils"
	"github.com/pmoura/loom/providers/backend"
)

const (
	defaultBaseURL = "https://r.jina.ai"

	// ModeTranscript returns the transcript field of the fetched document,
	// falling back to the raw body when none is present.
	ModeTranscript = "transcript"

	// ModeJSON returns the fetched document as indented JSON, repairing
	// near-JSON payloads when needed.
	ModeJSON = "json"
)

// urlPattern matches the first absolute URL embedded in a prompt.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// Adapter is the content-extraction adapter. It fetches a URL found in the
// prompt through a reader proxy and renders the result as markdown, as a
// transcript, or as indented JSON depending on the requested mode.
type Adapter struct {
	baseURL string
	client  *http.Client
}

var _ backend.Invoker = (*Adapter)(nil)

// New creates a reader adapter with default values.
func New() *Adapter {
	return &Adapter{
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the default reader proxy base URL.
func (a *Adapter) WithBaseURL(baseURL string) *Adapter {
	a.baseURL = baseURL
	return a
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (a *Adapter) WithHTTPClient(client *http.Client) *Adapter {
	a.client = client
	return a
}

// Invoke extracts the first URL from the prompt, fetches it through the
// reader proxy and renders the body according to request.Mode.
func (a *Adapter) Invoke(ctx context.Context, request backend.Request) (*backend.Result, error) {
	target := urlPattern.FindString(request.Prompt)
	if target == "" {
		return nil, backend.NewConfigError("no URL found in prompt")
	}

	body, err := utils.DoGetRaw(ctx, a.client, a.baseURL+"/"+target, request.APIKey)
	if err != nil {
		return nil, backend.AsTaxonomy(err)
	}

	var text string
	switch request.Mode {
	case ModeTranscript:
		text = renderTranscript(body)
	case ModeJSON:
		text, err = renderJSON(body)
	default:
		text, err = renderContent(body)
	}
	if err != nil {
		return nil, err
	}

	return &backend.Result{Kind: backend.OutputText, Text: text}, nil
}

// renderTranscript pulls the transcript (or text) field out of a JSON body.
// Non-JSON bodies pass through unchanged.
func renderTranscript(body []byte) string {
	value, err := extract.Parse(body)
	if err != nil {
		return string(body)
	}
	for _, key := range []string{"transcript", "text"} {
		if s := value.StringField(key); s != "" {
			return s
		}
	}
	return string(body)
}

// renderJSON indents the body as JSON, attempting a repair pass when the
// payload is only near-JSON.
func renderJSON(body []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err == nil {
		return out.String(), nil
	}

	repaired, err := jsonrepair.JSONRepair(string(body))
	if err != nil {
		return "", fmt.Errorf("response is not valid JSON: %w", err)
	}
	out.Reset()
	if err := json.Indent(&out, []byte(repaired), "", "  "); err != nil {
		return "", fmt.Errorf("response is not valid JSON: %w", err)
	}
	return out.String(), nil
}

// renderContent converts HTML bodies to markdown and digs the content field
// out of JSON bodies. Anything else passes through as plain text.
func renderContent(body []byte) (string, error) {
	if looksLikeHTML(body) {
		markdown, err := htmltomarkdown.ConvertString(string(body))
		if err != nil {
			return "", fmt.Errorf("converting HTML to markdown: %w", err)
		}
		return markdown, nil
	}

	if value, err := extract.Parse(body); err == nil {
		for _, key := range []string{"content", "text"} {
			if s := value.StringField(key); s != "" {
				return s, nil
			}
		}
		if text, ok := extract.FromValue(value); ok {
			return text, nil
		}
	}

	return string(body), nil
}

// looksLikeHTML sniffs the body for an HTML document start.
func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(body)))
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head[:min(len(head), 256)], "<body")
}
