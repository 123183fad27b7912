package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pmoura/loom/core/extract"
	"github.com/pmoura/loom/internal/utils"
	"github.com/pmoura/loom/providers/backend"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	responsesEndpoint = "/responses"

	// ModeSearch augments the request with a web-search tool. When the
	// backend rejects the tool, the adapter retries once without it.
	ModeSearch = "search"
)

// defaultModels are the known-good fallback candidates tried after the
// requested variant, in order.
var defaultModels = []string{"gpt-5", "gpt-4.1", "gpt-4o", "gpt-4o-mini"}

// Adapter is the text-generation adapter. It speaks a responses-style API and
// encodes the text family's resilience policy: an ordered model fallback
// chain advanced only on retryable failures, plus one-shot tool degradation.
type Adapter struct {
	baseURL string
	client  *http.Client
}

var _ backend.Invoker = (*Adapter)(nil)

// New creates a chat adapter with default values.
func New() *Adapter {
	return &Adapter{
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the default base URL for API requests.
func (a *Adapter) WithBaseURL(baseURL string) *Adapter {
	a.baseURL = baseURL
	return a
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (a *Adapter) WithHTTPClient(client *http.Client) *Adapter {
	a.client = client
	return a
}

// Invoke sends the composed prompt through the model fallback chain. The
// requested model is tried first, then the known-good defaults. A retryable
// failure (model unavailable) advances the chain; rate limits, safety
// rejections and other failures surface immediately. When the search tool is
// requested and the backend rejects it, the same model is retried once with
// the tool stripped before the failure counts.
func (a *Adapter) Invoke(ctx context.Context, request backend.Request) (*backend.Result, error) {
	if request.APIKey == "" {
		return nil, backend.NewConfigError("chat API key is not set")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, backend.NewConfigError("chat node has an empty prompt")
	}

	withSearchTool := request.Mode == ModeSearch

	var lastErr error
	for _, model := range candidateModels(request.Model) {
		text, err := a.attempt(ctx, request, model, withSearchTool)
		if err != nil && withSearchTool && isToolRejection(err) {
			// Feature degradation: strip the tool and try this model once more.
			text, err = a.attempt(ctx, request, model, false)
		}
		if err == nil {
			return &backend.Result{Kind: backend.OutputText, Text: text}, nil
		}

		lastErr = err
		if backend.Classify(err) != backend.ClassRetryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all candidate models failed: %w", lastErr)
}

// attempt performs a single call against one model and extracts the response
// text from the raw envelope.
func (a *Adapter) attempt(ctx context.Context, request backend.Request, model string, withSearchTool bool) (string, error) {
	body, err := utils.DoPostRaw(ctx, a.client, a.baseURL+responsesEndpoint, request.APIKey, buildPayload(request, model, withSearchTool))
	if err != nil {
		return "", backend.AsTaxonomy(err)
	}

	text, err := extract.Text(body)
	if err != nil {
		return "", fmt.Errorf("%w from model %q: %w", backend.ErrUnparseable, model, err)
	}
	return text, nil
}

// candidateModels returns the ordered fallback chain: the requested variant
// first, then the known-good defaults, without duplicates.
func candidateModels(requested string) []string {
	candidates := make([]string, 0, len(defaultModels)+1)
	seen := make(map[string]struct{}, len(defaultModels)+1)

	appendModel := func(model string) {
		if model == "" {
			return
		}
		if _, duplicate := seen[model]; duplicate {
			return
		}
		seen[model] = struct{}{}
		candidates = append(candidates, model)
	}

	appendModel(requested)
	for _, model := range defaultModels {
		appendModel(model)
	}
	return candidates
}

// isToolRejection reports whether the backend refused the request because of
// the attached tool rather than the request itself.
func isToolRejection(err error) bool {
	message := strings.ToLower(err.Error())
	if !strings.Contains(message, "tool") && !strings.Contains(message, "web_search") {
		return false
	}
	return strings.Contains(message, "not supported") ||
		strings.Contains(message, "unsupported") ||
		strings.Contains(message, "invalid")
}
