// Package stratus generates accessible natural-language descriptions of
// weather chart images for blind and low-vision scientists, and refines
// them through a bounded generate-evaluate feedback loop.
package stratus

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sethvargo/go-envconfig"

	"github.com/mgaillard/stratus/internal/claudellm"
	"github.com/mgaillard/stratus/internal/geminillm"
	"github.com/mgaillard/stratus/internal/openaillm"
	"github.com/mgaillard/stratus/llm"
)

// Config carries the provider credentials, read from the environment.
type Config struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GroqAPIKey      string `env:"GROQ_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
}

// LoadConfig reads provider credentials from the process environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("stratus: reading environment: %w", err)
	}
	return &cfg, nil
}

// InitOptions selects exactly one LLM provider.
type InitOptions struct {
	OpenAI bool
	Groq   bool
	Gemini bool
	Claude bool

	// Model overrides the provider's default model when non-empty.
	Model string

	// APIKey for the selected provider.
	APIKey string

	HTTPClient *http.Client // if nil uses http.DefaultClient
}

// Stratus wraps the selected provider client.
type Stratus struct {
	llm.Client
}

// Init validates the provider selection and constructs the client.
// Exactly one provider must be selected.
func Init(ctx context.Context, opts InitOptions) (*Stratus, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var n int
	for _, selected := range []bool{opts.OpenAI, opts.Groq, opts.Gemini, opts.Claude} {
		if selected {
			n++
		}
	}
	switch n {
	case 0:
		return nil, fmt.Errorf("no provider selected")
	case 1:
		// no-op
	default:
		return nil, fmt.Errorf("multiple providers selected, only one allowed")
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("no API key provided for the selected provider")
	}

	s := &Stratus{}
	var err error
	switch {
	case opts.OpenAI:
		s.Client = openaillm.Init(opts.APIKey, opts.Model, httpClient)
	case opts.Groq:
		s.Client = openaillm.InitGroq(opts.APIKey, opts.Model, httpClient)
	case opts.Gemini:
		s.Client, err = geminillm.Init(ctx, opts.APIKey, opts.Model)
	case opts.Claude:
		s.Client = claudellm.Init(opts.APIKey, opts.Model)
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}
