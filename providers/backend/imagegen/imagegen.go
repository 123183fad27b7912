package imagegen

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
	defaultBaseURL = "https://api.bfl.ai/v1"
	jobsEndpoint   = "/images/jobs"

	// DefaultPollInterval is the fixed wait between job status polls.
	DefaultPollInterval = time.Second
	// DefaultPollAttempts caps the number of status polls per job.
	DefaultPollAttempts = 60
)

// defaultModels are the fallback candidates tried after the requested variant.
var defaultModels = []string{"flux-pro-1.1", "flux-dev"}

// Adapter is the image-generation adapter. Generation runs as a two-phase
// asynchronous job: submit a request, obtain a job id, poll its status on a
// fixed interval up to a bounded number of attempts, then fetch the result.
//
// Submission is capability-sensitive: an ordered list of parameter shapes is
// tried against each model before the model itself is given up on and the
// fallback chain advances.
type Adapter struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
}

var _ backend.Invoker = (*Adapter)(nil)

// New creates an image-generation adapter with default values.
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
// in tests; production jobs keep the 1s/60 defaults.
func (a *Adapter) WithPollPolicy(interval time.Duration, attempts int) *Adapter {
	a.pollInterval = interval
	a.pollAttempts = attempts
	return a
}

// Invoke submits an image job and polls it to completion, returning the
// generated image as a data URL.
func (a *Adapter) Invoke(ctx context.Context, request backend.Request) (*backend.Result, error) {
	if request.APIKey == "" {
		return nil, backend.NewConfigError("image generation API key is not set")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, backend.NewConfigError("image node has an empty prompt")
	}

	jobID, err := a.submit(ctx, request)
	if err != nil {
		return nil, err
	}

	return a.poll(ctx, request.APIKey, jobID)
}

// submit walks the model fallback chain, trying every parameter variant
// against each model before moving on. A parameter rejection advances the
// variant; a model-unavailable failure advances the model; anything else
// surfaces immediately.
func (a *Adapter) submit(ctx context.Context, request backend.Request) (string, error) {
	var lastErr error
	for _, model := range candidateModels(request.Model) {
		for _, variant := range parameterVariants(request, model) {
			submitted, err := utils.DoPostSync[submitResponse](ctx, a.client, a.baseURL+jobsEndpoint, request.APIKey, variant)
			if err == nil {
				if submitted.ID == "" {
					return "", fmt.Errorf("image job submission returned no job id")
				}
				return submitted.ID, nil
			}

			err = backend.AsTaxonomy(err)
			lastErr = err

			if isParameterRejection(err) {
				continue // next parameter shape, same model
			}
			if backend.Classify(err) == backend.ClassRetryable {
				break // next model candidate
			}
			return "", err
		}
	}
	return "", fmt.Errorf("all candidate models failed: %w", lastErr)
}

// poll queries the job status on a fixed interval until it reaches a terminal
// state or the attempt cap is exhausted.
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

		status, err := utils.DoGetSync[jobStatusResponse](ctx, a.client, statusURL, apiKey)
		if err != nil {
			return nil, backend.AsTaxonomy(err)
		}

		switch status.Status {
		case jobStatusSucceeded:
			return a.fetchResult(ctx, apiKey, status)
		case jobStatusFailed:
			return nil, fmt.Errorf("image job %s failed: %s", jobID, status.ErrorMessage())
		default:
			// queued or processing: keep polling
		}
	}

	return nil, fmt.Errorf("%w: image job %s after %d attempts", backend.ErrPollTimeout, jobID, a.pollAttempts)
}

// fetchResult turns a succeeded job into an inline data URL. Inline base64
// payloads are used directly; URL results are downloaded first.
func (a *Adapter) fetchResult(ctx context.Context, apiKey string, status *jobStatusResponse) (*backend.Result, error) {
	mimeType := status.Result.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	if status.Result.B64JSON != "" {
		return &backend.Result{
			Kind: backend.OutputImageDataURL,
			Text: "data:" + mimeType + ";base64," + status.Result.B64JSON,
		}, nil
	}

	if status.Result.URL != "" {
		imageBytes, err := utils.DoGetRaw(ctx, a.client, status.Result.URL, apiKey)
		if err != nil {
			return nil, fmt.Errorf("error downloading image result: %w", backend.AsTaxonomy(err))
		}
		return &backend.Result{
			Kind: backend.OutputImageDataURL,
			Text: utils.DataURL(mimeType, imageBytes),
		}, nil
	}

	return nil, fmt.Errorf("image job succeeded but returned no result payload")
}

// candidateModels returns the ordered fallback chain: the requested variant
// first, then the known-good defaults, without duplicates.
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

// isParameterRejection reports whether the backend refused a parameter shape
// rather than the model or the request itself.
func isParameterRejection(err error) bool {
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "response_modalities") {
		return true
	}
	return strings.Contains(message, "parameter") &&
		(strings.Contains(message, "invalid") || strings.Contains(message, "unknown") || strings.Contains(message, "unsupported"))
}
