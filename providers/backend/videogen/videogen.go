package videogen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pmoura/loom/internal/utils"
	"github.com/pmoura/loom/providers/backend"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	jobsEndpoint   = "/videos"

	// DefaultPollInterval is the fixed wait between job status polls. Video
	// jobs run longer than image jobs, so both the interval and the attempt
	// cap are higher.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollAttempts caps the number of status polls per job.
	DefaultPollAttempts = 120
)

var defaultModels = []string{"sora-2", "veo-3"}

// Adapter is the video-generation adapter: two-phase submit/poll execution
// with a model fallback chain at submission time. The finished video is
// returned as a plain-text URL; video payloads are too large to inline.
type Adapter struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
}

var _ backend.Invoker = (*Adapter)(nil)

// New creates a video-generation adapter with default values.
func New() *Adapter {
	return &Adapter{
		baseURL:      defaultBaseURL,
		client:       &http.Client{},
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
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

// WithPollPolicy overrides the poll interval and attempt cap. Mainly useful
// in tests; production jobs keep the 2s/120 defaults.
func (a *Adapter) WithPollPolicy(interval time.Duration, attempts int) *Adapter {
	a.pollInterval = interval
	a.pollAttempts = attempts
	return a
}

type submitPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

// Invoke submits a video job and polls it to completion, returning the URL of
// the finished video.
func (a *Adapter) Invoke(ctx context.Context, request backend.Request) (*backend.Result, error) {
	if request.APIKey == "" {
		return nil, backend.NewConfigError("video generation API key is not set")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, backend.NewConfigError("video node has an empty prompt")
	}

	jobID, err := a.submit(ctx, request)
	if err != nil {
		return nil, err
	}

	return a.poll(ctx, request.APIKey, jobID)
}

func (a *Adapter) submit(ctx context.Context, request backend.Request) (string, error) {
	var lastErr error
	for _, model := range candidateModels(request.Model) {
		submitted, err := utils.DoPostSync[jobResponse](ctx, a.client, a.baseURL+jobsEndpoint, request.APIKey, submitPayload{
			Model:  model,
			Prompt: request.Prompt,
		})
		if err == nil {
			if submitted.ID == "" {
				return "", fmt.Errorf("video job submission returned no job id")
			}
			return submitted.ID, nil
		}

		err = backend.AsTaxonomy(err)
		lastErr = err
		if backend.Classify(err) != backend.ClassRetryable {
			return "", err
		}
	}
	return "", fmt.Errorf("all candidate models failed: %w", lastErr)
}

func (a *Adapter) poll(ctx context.Context, apiKey string, jobID string) (*backend.Result, error) {
	statusURL := a.baseURL + jobsEndpoint + "/" + jobID

	for attempt := 0; attempt < a.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.pollInterval):
			}
		}

		status, err := utils.DoGetSync[jobResponse](ctx, a.client, statusURL, apiKey)
		if err != nil {
			return nil, backend.AsTaxonomy(err)
		}

		switch status.Status {
		case "completed", "succeeded":
			if status.Result.URL == "" {
				return nil, fmt.Errorf("video job succeeded but returned no result URL")
			}
			return &backend.Result{Kind: backend.OutputText, Text: status.Result.URL}, nil
		case "failed":
			message := status.Error.Message
			if message == "" {
				message = "backend reported failure without a message"
			}
			return nil, fmt.Errorf("video job %s failed: %s", jobID, message)
		default:
			// queued or in_progress: keep polling
		}
	}

	return nil, fmt.Errorf("%w: video job %s after %d attempts", backend.ErrPollTimeout, jobID, a.pollAttempts)
}

func candidateModels(requested string) []string {
	candidates := make([]string, 0, len(defaultModels)+1)
	seen := make(map[string]struct{}, len(defaultModels)+1)
	for _, model := range append([]string{requested}, defaultModels...) {
		if model == "" {
			continue
		}
		if _, duplicate := seen[model]; duplicate {
			continue
		}
		seen[model] = struct{}{}
		candidates = append(candidates, model)
	}
	return candidates
}
