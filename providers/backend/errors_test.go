package backend

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/pmoura/loom/internal/utils"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected FailureClass
	}{
		{"nil", nil, ClassNone},
		{"model unavailable", ErrModelUnavailable, ClassRetryable},
		{"wrapped model unavailable", fmt.Errorf("call failed: %w", ErrModelUnavailable), ClassRetryable},
		{"rate limited", ErrRateLimited, ClassFatal},
		{"safety blocked", ErrSafetyBlocked, ClassFatal},
		{"poll timeout", ErrPollTimeout, ClassFatal},
		{"config error", NewConfigError("missing key"), ClassFatal},
		{"arbitrary", errors.New("boom"), ClassFatal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.expected {
				t.Errorf("Expected class %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestClassifyHTTP(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{
			"429 is rate limited",
			http.StatusTooManyRequests,
			`{"error":{"message":"slow down"}}`,
			ErrRateLimited,
		},
		{
			"rate limit message without 429",
			http.StatusForbidden,
			`{"error":{"message":"rate limit reached for this key"}}`,
			ErrRateLimited,
		},
		{
			"safety rejection",
			http.StatusBadRequest,
			`{"error":{"message":"rejected by content_policy"}}`,
			ErrSafetyBlocked,
		},
		{
			"model not found",
			http.StatusNotFound,
			`{"error":{"message":"The model gpt-9 does not exist","code":"model_not_found"}}`,
			ErrModelUnavailable,
		},
		{
			"404 mentioning model",
			http.StatusNotFound,
			`{"error":{"message":"no such model"}}`,
			ErrModelUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ClassifyHTTP(&utils.StatusError{StatusCode: tc.status, Body: tc.body})
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("Expected %v, got %v", tc.sentinel, err)
			}
		})
	}
}

func TestClassifyHTTPGenericFailure(t *testing.T) {
	err := ClassifyHTTP(&utils.StatusError{StatusCode: http.StatusInternalServerError, Body: "oops"})

	if Classify(err) != ClassFatal {
		t.Errorf("Expected fatal class for generic failure, got %v", Classify(err))
	}
	if errors.Is(err, ErrModelUnavailable) {
		t.Error("Generic failure must not be retryable")
	}
}

func TestAsTaxonomyPassthrough(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	if got := AsTaxonomy(plain); got != plain {
		t.Errorf("Expected transport error unchanged, got %v", got)
	}

	status := &utils.StatusError{StatusCode: http.StatusTooManyRequests, Body: "{}"}
	wrapped := fmt.Errorf("request failed: %w", status)
	if !errors.Is(AsTaxonomy(wrapped), ErrRateLimited) {
		t.Error("Expected wrapped status error to be classified")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := NewConfigError("voice %q does not exist", "ghost")
	expected := `configuration error: voice "ghost" does not exist`
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
