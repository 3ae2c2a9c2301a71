// Package generate produces chart descriptions by driving a vision LLM
// through a fixed multi-step prompt and parsing its tagged output.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/llm"
	"github.com/mgaillard/stratus/prompts"
	"github.com/mgaillard/stratus/tagtext"
)

// Output is the parsed structure of one generation response: four
// working-note steps and the final description.
type Output struct {
	Step1            string
	Step2            string
	Step3            string
	Step4            string
	FinalDescription string
}

var outputFields = []tagtext.Field{
	{Name: "step_1", Kind: tagtext.String, Required: true},
	{Name: "step_2", Kind: tagtext.String, Required: true},
	{Name: "step_3", Kind: tagtext.String, Required: true},
	{Name: "step_4", Kind: tagtext.String, Required: true},
	{Name: "final_description", Kind: tagtext.String, Required: true},
}

// MissingFields returns the names of unset fields, in prompt order.
func (o Output) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"step_1", o.Step1},
		{"step_2", o.Step2},
		{"step_3", o.Step3},
		{"step_4", o.Step4},
		{"final_description", o.FinalDescription},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether every field is set.
func (o Output) Complete() bool { return len(o.MissingFields()) == 0 }

// Generator owns one accumulated user prompt and an LLM client. It is
// not safe for concurrent use; the orchestrator drives it sequentially.
type Generator struct {
	client       llm.Client
	systemPrompt string
	blocks       []string
}

// New builds a Generator. An empty userPrompt is rejected since it can
// never produce a useful request. Pass prompts.GeneratorUser and
// prompts.GeneratorSystem for the defaults.
func New(client llm.Client, systemPrompt, userPrompt string) (*Generator, error) {
	if client == nil {
		return nil, errors.New("generate: nil llm client")
	}
	if strings.TrimSpace(userPrompt) == "" {
		return nil, errors.New("generate: user prompt is empty")
	}
	return &Generator{
		client:       client,
		systemPrompt: systemPrompt,
		blocks:       []string{strings.TrimSpace(userPrompt)},
	}, nil
}

// NewDefault builds a Generator with the stock prompts.
func NewDefault(client llm.Client) (*Generator, error) {
	return New(client, prompts.GeneratorSystem, prompts.GeneratorUser)
}

// AppendUserPrompt adds a context block to the end of the user prompt.
// Blocks accumulate for the lifetime of the Generator and are joined by
// blank lines on use. Empty text is ignored.
func (g *Generator) AppendUserPrompt(text string) {
	if t := strings.TrimSpace(text); t != "" {
		g.blocks = append(g.blocks, t)
	}
}

// UserPrompt returns the current accumulated user prompt.
func (g *Generator) UserPrompt() string {
	return strings.Join(g.blocks, "\n\n")
}

// Generate runs one LLM call against the chart and returns the final
// description. Figure metadata, when present, becomes a permanent prompt
// block before the call. An incomplete response fails with the missing
// field names; recovery by re-prompting is the caller's decision.
func (g *Generator) Generate(ctx context.Context, in chart.Input) (string, error) {
	img, meta, err := in.Resolve()
	if err != nil {
		return "", err
	}
	if meta != nil {
		g.AppendUserPrompt(meta.PromptBlock())
	}

	resp, err := g.client.Generate(ctx, llm.Request{
		UserPrompt:   g.UserPrompt(),
		SystemPrompt: g.systemPrompt,
		Image:        img,
	})
	if err != nil {
		return "", fmt.Errorf("generate: llm call failed: %w", err)
	}

	out, err := parseOutput(ctx, resp)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if missing := out.MissingFields(); len(missing) > 0 {
		return "", fmt.Errorf("generate: response missing required fields: %s", strings.Join(missing, ", "))
	}
	return out.FinalDescription, nil
}

// parseOutput extracts the tagged fields from a raw response. Conversion
// problems on individual fields are logged and the field left unset;
// completeness is judged by the caller.
func parseOutput(ctx context.Context, response string) (Output, error) {
	doc, err := tagtext.Parse(response, outputFields)
	if err != nil {
		return Output{}, err
	}
	log := clog.FromContext(ctx)
	for _, perr := range doc.Errs() {
		log.With("error", perr.Error()).Warn("ignoring malformed generator output field")
	}
	return Output{
		Step1:            doc.String("step_1"),
		Step2:            doc.String("step_2"),
		Step3:            doc.String("step_3"),
		Step4:            doc.String("step_4"),
		FinalDescription: doc.String("final_description"),
	}, nil
}
