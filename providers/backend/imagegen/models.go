package imagegen

import (
	"github.com/pmoura/loom/providers/backend"
)

/*
	##### WIRE FORMAT #####
*/

// submitPayload is the job submission body. ResponseModalities is the
// capability-sensitive field: not every model accepts every shape, so
// submission tries the variants of [parameterVariants] in order.
type submitPayload struct {
	Model              string   `json:"model"`
	Prompt             string   `json:"prompt"`
	ResponseModalities []string `json:"response_modalities,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const (
	jobStatusSucceeded = "succeeded"
	jobStatusFailed    = "failed"
)

type jobStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Result struct {
		B64JSON  string `json:"b64_json"`
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	} `json:"result"`
}

// ErrorMessage returns the backend's failure message, or a placeholder when
// the envelope carried none.
func (r *jobStatusResponse) ErrorMessage() string {
	if r.Error.Message != "" {
		return r.Error.Message
	}
	return "backend reported failure without a message"
}

// parameterVariants returns the ordered parameter shapes tried against one
// model: image-plus-text modalities first, image-only next, then the bare
// request with no modality hint.
func parameterVariants(request backend.Request, model string) []submitPayload {
	base := submitPayload{Model: model, Prompt: request.Prompt}

	withBoth := base
	withBoth.ResponseModalities = []string{"IMAGE", "TEXT"}

	imageOnly := base
	imageOnly.ResponseModalities = []string{"IMAGE"}

	return []submitPayload{withBoth, imageOnly, base}
}
