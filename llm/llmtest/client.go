// Package llmtest provides a scripted in-memory Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/mgaillard/stratus/llm"
)

// Client replays canned responses in order. Once the script is exhausted
// the last entry repeats. It records every request it receives.
type Client struct {
	mu        sync.Mutex
	responses []Response
	calls     int

	// Requests holds every request received, in order.
	Requests []llm.Request
}

// Response is one scripted reply.
type Response struct {
	Text string
	Err  error
}

// New returns a client that replays the given responses.
func New(responses ...Response) *Client {
	return &Client{responses: responses}
}

func (c *Client) Name() string  { return "fake" }
func (c *Client) Model() string { return "fake-model" }

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	if len(c.responses) == 0 {
		return "", llm.ErrEmptyResponse
	}
	i := c.calls
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	c.calls++
	r := c.responses[i]
	return r.Text, r.Err
}

// Calls returns how many times Generate was invoked.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
