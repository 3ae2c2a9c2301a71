// Package llm defines the minimal client surface the description and
// evaluation agents need from a language model provider. Concrete
// implementations live under internal/ and differ only in authentication
// and request encoding.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Client is a vision-capable language model endpoint.
type Client interface {
	// Name returns the provider name, e.g. "openai" or "gemini".
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string

	// Generate sends one request and returns the text of the response.
	// It returns an error wrapping ErrEmptyResponse when the provider
	// answered without usable text content.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single completion request. SystemPrompt and Image are
// optional, UserPrompt is not.
type Request struct {
	UserPrompt   string
	SystemPrompt string
	Image        []byte // PNG or JPEG bytes
}

var (
	ErrEmptyPrompt   = errors.New("llm: user prompt is empty")
	ErrEmptyResponse = errors.New("llm: empty response content")
)

// Validate checks the invariants shared by every provider. Running it
// before the network call avoids spending quota on requests that cannot
// produce a useful answer.
func (r Request) Validate() error {
	if strings.TrimSpace(r.UserPrompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}
