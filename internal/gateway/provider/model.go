package provider

import (
	"context"
	"errors"
	"fmt"
)

type ChatPayload struct {
	System     string
	User       string
	ExpectJSON bool
	MaxTokens  int
	// Purpose tags the call in LLM dumps, e.g. "QuantAgent" or "debate".
	Purpose string
}

// ModelProvider is one configured chat model.
type ModelProvider interface {
	ID() string
	Enabled() bool
	ExpectsJSON() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}

// StatusError is a non-2xx answer from the completion endpoint.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.Status, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.Status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

var (
	ErrEmptyChoices  = errors.New("empty choices")
	ErrUnknownModel  = errors.New("unknown model")
	ErrModelDisabled = errors.New("model disabled")
)
