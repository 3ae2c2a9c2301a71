// Package openaillm implements the llm.Client contract on top of the
// OpenAI chat completions API. The same implementation serves any
// OpenAI-compatible endpoint, Groq in particular, by swapping the base
// URL.
package openaillm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oagc "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgaillard/stratus/internal/ratelimit"
	"github.com/mgaillard/stratus/internal/retry"
	"github.com/mgaillard/stratus/llm"
)

// GroqBaseURL is the OpenAI-compatible endpoint of the Groq API.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGroqModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

type client struct {
	oac      oagc.Client
	name     string
	model    string
	rl       *ratelimit.Limiter
	retryCfg retry.Config
}

var _ llm.Client = (*client)(nil)

// Init returns a client for the OpenAI API.
func Init(apiKey, model string, httpClient *http.Client) llm.Client {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newClient("openai", model, []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	})
}

// InitGroq returns a client for the Groq API.
func InitGroq(apiKey, model string, httpClient *http.Client) llm.Client {
	if model == "" {
		model = DefaultGroqModel
	}
	return newClient("groq", model, []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(GroqBaseURL),
		option.WithHTTPClient(httpClient),
	})
}

func newClient(name, model string, opts []option.RequestOption) *client {
	return &client{
		oac:      oagc.NewClient(opts...),
		name:     name,
		model:    model,
		rl:       ratelimit.New(20, time.Minute),
		retryCfg: retry.Default(),
	}
}

func (c *client) Name() string  { return c.name }
func (c *client) Model() string { return c.model }

func (c *client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}

	var msgs []oagc.ChatCompletionMessageParamUnion
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		msgs = append(msgs, oagc.SystemMessage(s))
	}
	if len(req.Image) > 0 {
		msgs = append(msgs, oagc.UserMessage([]oagc.ChatCompletionContentPartUnionParam{
			oagc.TextContentPart(req.UserPrompt),
			oagc.ImageContentPart(oagc.ChatCompletionContentPartImageImageURLParam{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image),
			}),
		}))
	} else {
		msgs = append(msgs, oagc.UserMessage(req.UserPrompt))
	}

	resp, err := retry.Do(ctx, c.retryCfg, c.name+" chat completion", isRetryable,
		func() (*oagc.ChatCompletion, error) {
			return c.oac.Chat.Completions.New(ctx, oagc.ChatCompletionNewParams{
				Model:    oagc.ChatModel(c.model),
				Messages: msgs,
			})
		})
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", c.name, llm.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// isRetryable reports rate limit and transient server errors.
func isRetryable(err error) bool {
	var apiErr *oagc.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
