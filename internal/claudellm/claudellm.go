// Package claudellm implements the llm.Client contract on top of the
// Anthropic Messages API.
package claudellm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mgaillard/stratus/internal/ratelimit"
	"github.com/mgaillard/stratus/internal/retry"
	"github.com/mgaillard/stratus/llm"
)

const (
	DefaultModel = "claude-sonnet-4-5"

	// maxTokens bounds the response; descriptions plus working notes fit
	// comfortably.
	maxTokens = 4096
)

type client struct {
	ac       anthropic.Client
	model    string
	rl       *ratelimit.Limiter
	retryCfg retry.Config
}

var _ llm.Client = (*client)(nil)

// Init returns a client for the Anthropic API.
func Init(apiKey, model string) llm.Client {
	if model == "" {
		model = DefaultModel
	}
	return &client{
		ac:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		rl:       ratelimit.New(20, time.Minute),
		retryCfg: retry.Default(),
	}
}

func (c *client) Name() string  { return "claude" }
func (c *client) Model() string { return c.model }

func (c *client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}

	var blocks []anthropic.ContentBlockParamUnion
	if len(req.Image) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			"image/png", base64.StdEncoding.EncodeToString(req.Image)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.UserPrompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			{Role: anthropic.MessageParamRoleUser, Content: blocks},
		},
	}
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}

	msg, err := retry.Do(ctx, c.retryCfg, "claude message", isRetryable,
		func() (*anthropic.Message, error) {
			return c.ac.Messages.New(ctx, params)
		})
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("claude: %w", llm.ErrEmptyResponse)
	}
	return sb.String(), nil
}

// isRetryable reports rate limit, overloaded, and transient server
// errors.
func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 503, 504, 529:
			return true
		}
	}
	return false
}
