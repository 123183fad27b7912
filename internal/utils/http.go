package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// StatusError is returned by the Do* helpers when a provider responds with a
// non-2xx status code. The raw response body is preserved so callers can
// classify the failure (rate limiting, unknown model, safety rejection)
// from the provider's error envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface. The body is truncated so status
// errors stay readable in logs.
func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateStringDefault(e.Body))
}

// CloseWithLog closes c and logs any close error. It is meant for deferred
// response body cleanup where a close failure must not override the primary
// error returned by the caller.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// DoPostRaw performs a synchronous HTTP POST with a JSON body and returns the
// raw response body bytes. A non-2xx status is reported as a *StatusError so
// callers can inspect the provider's error envelope.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - HTTP transport errors return the error unchanged
//   - Response body close errors are logged but don't override primary errors
func DoPostRaw(ctx context.Context, client *http.Client, url string, apiKey string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRequest(client, req, apiKey)
}

// DoGetRaw performs a synchronous HTTP GET and returns the raw response body
// bytes. Non-2xx statuses are reported as *StatusError, matching [DoPostRaw].
func DoGetRaw(ctx context.Context, client *http.Client, url string, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	return doRequest(client, req, apiKey)
}

// DoPostSync performs a POST request and parses the JSON response into
// OutputStruct. JSON parsing errors include a response preview for debugging.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any) (*OutputStruct, error) {
	respBody, err := DoPostRaw(ctx, client, url, apiKey, body)
	if err != nil {
		return nil, err
	}
	return unmarshalResponse[OutputStruct](respBody)
}

// DoGetSync performs a GET request and parses the JSON response into
// OutputStruct.
func DoGetSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string) (*OutputStruct, error) {
	respBody, err := DoGetRaw(ctx, client, url, apiKey)
	if err != nil {
		return nil, err
	}
	return unmarshalResponse[OutputStruct](respBody)
}

func doRequest(client *http.Client, req *http.Request, apiKey string) ([]byte, error) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func unmarshalResponse[OutputStruct any](respBody []byte) (*OutputStruct, error) {
	var resStruct OutputStruct
	if err := json.Unmarshal(respBody, &resStruct); err != nil {
		return nil, fmt.Errorf("error unmarshaling response body: %w\nResponse preview: %s", err, TruncateString(string(respBody), 500))
	}
	return &resStruct, nil
}
