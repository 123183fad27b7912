package chat

import (
	"github.com/pmoura/loom/providers/backend"
)

/*
	##### WIRE FORMAT #####
*/

// payload is the responses-style request body.
type payload struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	Instructions    string         `json:"instructions,omitempty"`
	Temperature     float64        `json:"temperature,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Tools           []toolSpec     `json:"tools,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type toolSpec struct {
	Type string `json:"type"`
}

// buildPayload maps the generic request onto the wire format for one model
// candidate. Image attachments become input_image parts alongside the prompt.
func buildPayload(request backend.Request, model string, withSearchTool bool) payload {
	content := make([]contentPart, 0, len(request.Images)+1)
	content = append(content, contentPart{Type: "input_text", Text: request.Prompt})
	for _, image := range request.Images {
		content = append(content, contentPart{Type: "input_image", ImageURL: image})
	}

	body := payload{
		Model:           model,
		Input:           []inputMessage{{Role: "user", Content: content}},
		Instructions:    request.SystemPrompt,
		Temperature:     request.Temperature,
		MaxOutputTokens: request.MaxTokens,
	}
	if withSearchTool {
		body.Tools = []toolSpec{{Type: "web_search"}}
	}
	return body
}
