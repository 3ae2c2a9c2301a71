// Package evaluate scores candidate chart descriptions against a closed
// set of quality criteria, one LLM call per criterion.
package evaluate

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

// Criterion names one quality dimension. Only the four declared
// constants are valid; anything else is rejected at construction time.
type Criterion string

const (
	Coherence   Criterion = "coherence"
	Fluency     Criterion = "fluency"
	Consistency Criterion = "consistency"
	Relevance   Criterion = "relevance"
)

// Criteria returns every supported criterion in canonical order.
func Criteria() []Criterion {
	return []Criterion{Coherence, Fluency, Consistency, Relevance}
}

// Valid reports whether c is one of the supported criteria.
func (c Criterion) Valid() bool {
	switch c {
	case Coherence, Fluency, Consistency, Relevance:
		return true
	}
	return false
}

// Score bounds. Scores outside this range never leave the package.
const (
	MinScore = 0
	MaxScore = 5
)

// Result is one criterion's verdict on a description. The criterion is
// stamped by the scorer that produced it, never parsed from model text.
type Result struct {
	Criterion Criterion
	Score     int
	Reasoning string
}

// NewResult validates the score range at construction. An out-of-range
// score is an error, not a clamp; a model that answers 7 is broken and
// its verdict cannot be trusted.
func NewResult(criterion Criterion, score int, reasoning string) (Result, error) {
	if score < MinScore || score > MaxScore {
		return Result{}, fmt.Errorf("evaluate: score %d for %s outside [%d, %d]", score, criterion, MinScore, MaxScore)
	}
	return Result{Criterion: criterion, Score: score, Reasoning: reasoning}, nil
}

var scoreFields = []tagtext.Field{
	{Name: "score", Kind: tagtext.Int, Required: true},
	{Name: "reasoning", Kind: tagtext.String},
}

// Scorer grades descriptions against exactly one criterion. Like the
// generator it owns an appendable prompt and is driven sequentially.
type Scorer struct {
	criterion Criterion
	client    llm.Client
	blocks    []string
}

// NewScorer builds a scorer for one criterion using its stock prompt.
func NewScorer(criterion Criterion, client llm.Client) (*Scorer, error) {
	if client == nil {
		return nil, errors.New("evaluate: nil llm client")
	}
	if !criterion.Valid() {
		return nil, fmt.Errorf("evaluate: unknown criterion %q", criterion)
	}
	prompt, err := prompts.CriterionUser(string(criterion))
	if err != nil {
		return nil, err
	}
	return &Scorer{
		criterion: criterion,
		client:    client,
		blocks:    []string{prompt},
	}, nil
}

// Criterion returns the criterion this scorer grades.
func (s *Scorer) Criterion() Criterion { return s.criterion }

// AppendUserPrompt adds a context block to the scorer's prompt. Empty
// text is ignored.
func (s *Scorer) AppendUserPrompt(text string) {
	if t := strings.TrimSpace(text); t != "" {
		s.blocks = append(s.blocks, t)
	}
}

// Evaluate grades one description. The description and any figure
// metadata are appended to the request transiently; only
// AppendUserPrompt mutates the scorer's own state.
func (s *Scorer) Evaluate(ctx context.Context, description string, in chart.Input) (Result, error) {
	if strings.TrimSpace(description) == "" {
		return Result{}, errors.New("evaluate: description is empty")
	}
	img, meta, err := in.Resolve()
	if err != nil {
		return Result{}, err
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(s.blocks, "\n\n"))
	if meta != nil {
		if block := meta.PromptBlock(); block != "" {
			sb.WriteString("\n\n")
			sb.WriteString(block)
		}
	}
	sb.WriteString("\n\n# DESCRIPTION TO EVALUATE\n\n")
	sb.WriteString(description)
	sb.WriteString("\n\nProvide your evaluation of this description against the criterion.")

	resp, err := s.client.Generate(ctx, llm.Request{
		UserPrompt:   sb.String(),
		SystemPrompt: prompts.EvaluatorSystem,
		Image:        img,
	})
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %s scorer: llm call failed: %w", s.criterion, err)
	}
	return s.parseResponse(ctx, resp)
}

func (s *Scorer) parseResponse(ctx context.Context, response string) (Result, error) {
	doc, err := tagtext.Parse(response, scoreFields)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %s scorer: %w", s.criterion, err)
	}
	log := clog.FromContext(ctx).With("criterion", string(s.criterion))
	for _, perr := range doc.Errs() {
		log.With("error", perr.Error()).Warn("malformed evaluator output field")
	}
	if missing := doc.Missing(scoreFields); len(missing) > 0 {
		return Result{}, fmt.Errorf("evaluate: %s scorer: response missing required fields: %s",
			s.criterion, strings.Join(missing, ", "))
	}
	score, _ := doc.Int("score")
	return NewResult(s.criterion, score, doc.String("reasoning"))
}

// Evaluator runs a fixed list of scorers against one description and
// collects their independent verdicts.
type Evaluator struct {
	scorers []*Scorer
}

// New builds an Evaluator for the given criteria, in the given order.
// Unknown criteria fail here, before any LLM call is spent.
func New(client llm.Client, criteria []Criterion) (*Evaluator, error) {
	if len(criteria) == 0 {
		return nil, errors.New("evaluate: no criteria configured")
	}
	scorers := make([]*Scorer, 0, len(criteria))
	for _, c := range criteria {
		s, err := NewScorer(c, client)
		if err != nil {
			return nil, err
		}
		scorers = append(scorers, s)
	}
	return &Evaluator{scorers: scorers}, nil
}

// NewDefault builds an Evaluator over the full criterion set.
func NewDefault(client llm.Client) (*Evaluator, error) {
	return New(client, Criteria())
}

// Evaluate grades the description against every configured criterion,
// sequentially and in configured order. Any scorer failure aborts the
// round; there are no partial results.
func (e *Evaluator) Evaluate(ctx context.Context, description string, in chart.Input) ([]Result, error) {
	results := make([]Result, 0, len(e.scorers))
	for _, s := range e.scorers {
		r, err := s.Evaluate(ctx, description, in)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// AppendUserPrompt fans the same context block out to every scorer.
func (e *Evaluator) AppendUserPrompt(text string) {
	for _, s := range e.scorers {
		s.AppendUserPrompt(text)
	}
}

// Criteria returns the configured criteria in evaluation order.
func (e *Evaluator) Criteria() []Criterion {
	cs := make([]Criterion, len(e.scorers))
	for i, s := range e.scorers {
		cs[i] = s.criterion
	}
	return cs
}
