// Package geminillm implements the llm.Client contract on top of the
// Gemini API via the google.golang.org/genai SDK.
package geminillm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mgaillard/stratus/internal/ratelimit"
	"github.com/mgaillard/stratus/internal/retry"
	"github.com/mgaillard/stratus/llm"
)

const DefaultModel = "gemini-2.0-flash"

type client struct {
	gc       *genai.Client
	model    string
	rl       *ratelimit.Limiter
	retryCfg retry.Config
}

var _ llm.Client = (*client)(nil)

// Init returns a client for the Gemini API.
func Init(ctx context.Context, apiKey, model string) (llm.Client, error) {
	if model == "" {
		model = DefaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &client{
		gc:       gc,
		model:    model,
		rl:       ratelimit.New(15, time.Minute),
		retryCfg: retry.Default(),
	}, nil
}

func (c *client) Name() string  { return "gemini" }
func (c *client) Model() string { return c.model }

func (c *client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}

	var parts []*genai.Part
	if len(req.Image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: req.Image},
		})
	}
	parts = append(parts, genai.NewPartFromText(req.UserPrompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: s}}},
		}
	}

	resp, err := retry.Do(ctx, c.retryCfg, "gemini generate content", isRetryable,
		func() (*genai.GenerateContentResponse, error) {
			return c.gc.Models.GenerateContent(ctx, c.model, contents, config)
		})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	text := collectText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// isRetryable matches the error strings the Gemini API uses for quota
// and transient server conditions. The SDK does not expose a stable
// typed error for these.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "RESOURCE_EXHAUSTED") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "quota exceeded") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "Overloaded") ||
		strings.Contains(s, "Internal error") ||
		strings.Contains(s, "server error")
}
