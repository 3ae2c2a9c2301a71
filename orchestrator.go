package stratus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/evaluate"
	"github.com/mgaillard/stratus/extract"
	"github.com/mgaillard/stratus/generate"
	"github.com/mgaillard/stratus/prompts"
)

const (
	// DefaultMaxIterations bounds the generate-evaluate loop.
	DefaultMaxIterations = 3

	// DefaultThreshold is the minimum per-criterion score a description
	// needs to pass.
	DefaultThreshold = 4
)

// Orchestrator drives the generate-evaluate feedback loop: generate a
// description, score it per criterion, and either accept it or feed the
// failures back into the generator for another attempt.
type Orchestrator struct {
	generator *generate.Generator
	evaluator *evaluate.Evaluator

	maxIterations int
	threshold     int

	extractors       []extract.Extractor
	feedbackTemplate string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithExtractors registers best-effort enrichment collaborators that run
// once against auxiliary grid data before the first iteration.
func WithExtractors(extractors ...extract.Extractor) Option {
	return func(o *Orchestrator) { o.extractors = append(o.extractors, extractors...) }
}

// WithFeedbackTemplate overrides the feedback block template. The same
// placeholders as prompts.FeedbackTemplate are substituted.
func WithFeedbackTemplate(tmpl string) Option {
	return func(o *Orchestrator) { o.feedbackTemplate = tmpl }
}

// NewOrchestrator builds the loop controller. maxIterations must be at
// least 1 and threshold must lie within the score range.
func NewOrchestrator(g *generate.Generator, e *evaluate.Evaluator, maxIterations, threshold int, opts ...Option) (*Orchestrator, error) {
	if g == nil || e == nil {
		return nil, errors.New("stratus: generator and evaluator are required")
	}
	if maxIterations < 1 {
		return nil, fmt.Errorf("stratus: max iterations must be at least 1, got %d", maxIterations)
	}
	if threshold < evaluate.MinScore || threshold > evaluate.MaxScore {
		return nil, fmt.Errorf("stratus: threshold %d outside [%d, %d]", threshold, evaluate.MinScore, evaluate.MaxScore)
	}

	o := &Orchestrator{
		generator:        g,
		evaluator:        e,
		maxIterations:    maxIterations,
		threshold:        threshold,
		feedbackTemplate: prompts.FeedbackTemplate,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Outcome is the result of a completed run. A run that exhausts its
// iterations without passing is still a successful run; Passed and
// Caveats record the degraded quality, the description text is never
// edited to carry warnings.
type Outcome struct {
	// Description is the last generated description.
	Description string

	// Evaluation holds the final round's per-criterion results, in
	// evaluator order.
	Evaluation []evaluate.Result

	// Passed reports whether every criterion met the threshold.
	Passed bool

	// Iterations is how many generate-evaluate rounds ran.
	Iterations int

	// Caveats names the quality dimensions that never met the threshold.
	// Empty when Passed.
	Caveats []string
}

// Run executes the loop against one chart. Auxiliary grid data, when
// supplied, is summarized by the configured extractors and shared with
// both agents before the first generation. Threshold misses are not
// errors; only generation or evaluation failures abort the run.
func (o *Orchestrator) Run(ctx context.Context, in chart.Input, grids ...extract.Grid) (*Outcome, error) {
	log := clog.FromContext(ctx)

	o.enrich(ctx, grids)

	var (
		description string
		evaluation  []evaluate.Result
	)
	for i := 1; i <= o.maxIterations; i++ {
		log.With("iteration", i).With("max_iterations", o.maxIterations).Info("generating description")
		desc, err := o.generator.Generate(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("stratus: iteration %d: %w", i, err)
		}
		description = desc

		evaluation, err = o.evaluator.Evaluate(ctx, description, in)
		if err != nil {
			return nil, fmt.Errorf("stratus: iteration %d: %w", i, err)
		}

		failed := belowThreshold(evaluation, o.threshold)
		if len(failed) == 0 {
			log.With("iteration", i).Info("description passed evaluation")
			return &Outcome{
				Description: description,
				Evaluation:  evaluation,
				Passed:      true,
				Iterations:  i,
			}, nil
		}

		log.With("iteration", i).With("failed_criteria", criterionNames(failed)).
			Info("description failed evaluation")
		if i < o.maxIterations {
			o.generator.AppendUserPrompt(o.feedbackBlock(i, description, failed))
		}
	}

	failed := belowThreshold(evaluation, o.threshold)
	caveats := caveatsFor(failed)
	log.With("max_iterations", o.maxIterations).
		Warn("iteration budget exhausted without passing evaluation")
	for _, c := range caveats {
		log.Warn(c)
	}

	return &Outcome{
		Description: description,
		Evaluation:  evaluation,
		Passed:      false,
		Iterations:  o.maxIterations,
		Caveats:     caveats,
	}, nil
}

// enrich runs each extractor against each grid and shares the summaries
// with both agents. Extraction is best-effort: a failing extractor is
// logged and skipped, never fatal.
func (o *Orchestrator) enrich(ctx context.Context, grids []extract.Grid) {
	log := clog.FromContext(ctx)
	for _, g := range grids {
		for _, ex := range o.extractors {
			features, err := ex.Extract(g)
			if err != nil {
				log.With("extractor", ex.Name()).With("variable", g.Variable).
					With("error", err.Error()).Warn("feature extraction failed, skipping")
				continue
			}
			block, err := ex.Format(features)
			if err != nil {
				log.With("extractor", ex.Name()).With("variable", g.Variable).
					With("error", err.Error()).Warn("feature formatting failed, skipping")
				continue
			}
			if strings.TrimSpace(block) == "" {
				continue
			}
			o.generator.AppendUserPrompt(block)
			o.evaluator.AppendUserPrompt(block)
		}
	}
}

// feedbackBlock fills the feedback template for one failed round.
// iteration is 1-based.
func (o *Orchestrator) feedbackBlock(iteration int, description string, failed []evaluate.Result) string {
	var scores, reasoning []string
	for _, r := range failed {
		scores = append(scores, fmt.Sprintf("- %s: %d/%d", r.Criterion, r.Score, evaluate.MaxScore))
		reason := r.Reasoning
		if strings.TrimSpace(reason) == "" {
			reason = "No reasoning available."
		}
		reasoning = append(reasoning, fmt.Sprintf("- %s: %s", r.Criterion, reason))
	}

	return strings.NewReplacer(
		"{evaluation_id}", fmt.Sprintf("%d", iteration),
		"{criteria_scores}", strings.Join(scores, "\n"),
		"{criteria_reasoning}", strings.Join(reasoning, "\n"),
		"{description}", description,
	).Replace(o.feedbackTemplate)
}

func belowThreshold(results []evaluate.Result, threshold int) []evaluate.Result {
	var failed []evaluate.Result
	for _, r := range results {
		if r.Score < threshold {
			failed = append(failed, r)
		}
	}
	return failed
}

func criterionNames(results []evaluate.Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = string(r.Criterion)
	}
	return names
}

// caveatsFor maps each failed criterion to the warning surfaced in the
// Outcome.
func caveatsFor(failed []evaluate.Result) []string {
	warnings := map[evaluate.Criterion]string{
		evaluate.Coherence:   "The logical flow and organization of this description may be unclear.",
		evaluate.Fluency:     "This description may contain linguistic issues.",
		evaluate.Consistency: "This description may contain inaccuracies relative to the source chart.",
		evaluate.Relevance:   "This description may not adequately emphasize the most meteorologically significant patterns.",
	}
	var caveats []string
	for _, r := range failed {
		if w, ok := warnings[r.Criterion]; ok {
			caveats = append(caveats, w)
		}
	}
	return caveats
}
