package stratus

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/evaluate"
	"github.com/mgaillard/stratus/extract"
	"github.com/mgaillard/stratus/generate"
	"github.com/mgaillard/stratus/llm/llmtest"
)

var testImage = chart.FromImage([]byte{0x89, 'P', 'N', 'G'})

// generatorResponse builds a complete five-field response whose final
// description is marked with the attempt number.
func generatorResponse(attempt int) llmtest.Response {
	return llmtest.Response{Text: fmt.Sprintf(
		"<step_1>s1</step_1><step_2>s2</step_2><step_3>s3</step_3><step_4>s4</step_4>"+
			"<final_description>description attempt %d</final_description>", attempt)}
}

func scoreResponse(score int, reasoning string) llmtest.Response {
	return llmtest.Response{Text: fmt.Sprintf(
		"<reasoning>%s</reasoning><score>%d</score>", reasoning, score)}
}

// newAgents wires a generator and a full four-criterion evaluator onto
// separate scripted clients.
func newAgents(t *testing.T, genClient, evalClient *llmtest.Client) (*generate.Generator, *evaluate.Evaluator) {
	t.Helper()
	g, err := generate.NewDefault(genClient)
	if err != nil {
		t.Fatal(err)
	}
	e, err := evaluate.NewDefault(evalClient)
	if err != nil {
		t.Fatal(err)
	}
	return g, e
}

func TestNewOrchestrator(t *testing.T) {
	g, e := newAgents(t, llmtest.New(), llmtest.New())

	if _, err := NewOrchestrator(nil, e, 3, 4); err == nil {
		t.Error("nil generator should be rejected")
	}
	if _, err := NewOrchestrator(g, e, 0, 4); err == nil {
		t.Error("zero max iterations should be rejected")
	}
	if _, err := NewOrchestrator(g, e, -1, 4); err == nil {
		t.Error("negative max iterations should be rejected")
	}
	if _, err := NewOrchestrator(g, e, 3, 6); err == nil {
		t.Error("threshold above the score range should be rejected")
	}
	if _, err := NewOrchestrator(g, e, 3, -1); err == nil {
		t.Error("threshold below the score range should be rejected")
	}
	if _, err := NewOrchestrator(g, e, 1, 0); err != nil {
		t.Errorf("boundary values should be accepted: %v", err)
	}
}

func TestRunPassesFirstIteration(t *testing.T) {
	genClient := llmtest.New(generatorResponse(1))
	evalClient := llmtest.New(scoreResponse(5, "good")) // repeats for all criteria
	g, e := newAgents(t, genClient, evalClient)

	o, err := NewOrchestrator(g, e, 3, 4)
	if err != nil {
		t.Fatal(err)
	}

	out, err := o.Run(t.Context(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Passed {
		t.Error("expected a passing outcome")
	}
	if out.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", out.Iterations)
	}
	if out.Description != "description attempt 1" {
		t.Errorf("Description = %q", out.Description)
	}
	if len(out.Evaluation) != 4 {
		t.Errorf("Evaluation has %d results, want 4", len(out.Evaluation))
	}
	if len(out.Caveats) != 0 {
		t.Errorf("Caveats = %v, want none", out.Caveats)
	}
	if genClient.Calls() != 1 {
		t.Errorf("generator called %d times, want 1", genClient.Calls())
	}
}

func TestRunRetriesUntilPass(t *testing.T) {
	genClient := llmtest.New(
		generatorResponse(1), generatorResponse(2), generatorResponse(3))

	// Criteria are scored in order coherence, fluency, consistency,
	// relevance. Coherence fails the first two rounds.
	var script []llmtest.Response
	for round := 0; round < 2; round++ {
		script = append(script, scoreResponse(2, "disjointed paragraphs"))
		for i := 0; i < 3; i++ {
			script = append(script, scoreResponse(5, "fine"))
		}
	}
	for i := 0; i < 4; i++ {
		script = append(script, scoreResponse(5, "fine"))
	}
	evalClient := llmtest.New(script...)

	g, e := newAgents(t, genClient, evalClient)
	o, err := NewOrchestrator(g, e, 3, 4)
	if err != nil {
		t.Fatal(err)
	}

	out, err := o.Run(t.Context(), testImage)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Passed {
		t.Error("expected a passing outcome on the third round")
	}
	if out.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", out.Iterations)
	}
	if out.Description != "description attempt 3" {
		t.Errorf("Description = %q, want the third attempt", out.Description)
	}
	if genClient.Calls() != 3 {
		t.Errorf("generator called %d times, want 3", genClient.Calls())
	}

	// Two feedback blocks were appended, each naming only the failed
	// criterion.
	finalPrompt := g.UserPrompt()
	if n := strings.Count(finalPrompt, "# EVALUATOR FEEDBACK"); n != 2 {
		t.Errorf("found %d feedback blocks, want 2", n)
	}
	if !strings.Contains(finalPrompt, "- coherence: 2/5") {
		t.Error("feedback should name the failing criterion and score")
	}
	if strings.Contains(finalPrompt, "- fluency") {
		t.Error("feedback must not mention passing criteria")
	}
	if !strings.Contains(finalPrompt, "disjointed paragraphs") {
		t.Error("feedback should carry the reasoning")
	}
	if !strings.Contains(finalPrompt, "description attempt 2") {
		t.Error("feedback should quote the evaluated description")
	}
	if !strings.Contains(finalPrompt, "Evaluation number: 1") ||
		!strings.Contains(finalPrompt, "Evaluation number: 2") {
		t.Error("feedback blocks should be numbered by iteration")
	}
}

func TestRunExhaustsIterations(t *testing.T) {
	genClient := llmtest.New(generatorResponse(1))
	evalClient := llmtest.New(scoreResponse(1, "")) // every criterion fails forever
	g, e := newAgents(t, genClient, evalClient)

	o, err := NewOrchestrator(g, e, 2, 4)
	if err != nil {
		t.Fatal(err)
	}

	out, err := o.Run(t.Context(), testImage)
	if err != nil {
		t.Fatalf("exhaustion is not an error: %v", err)
	}
	if out.Passed {
		t.Error("expected a degraded outcome")
	}
	if out.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", out.Iterations)
	}
	if out.Description != "description attempt 1" {
		t.Errorf("Description = %q, must be returned unmodified", out.Description)
	}
	if strings.Contains(out.Description, "Warning") {
		t.Error("caveats must not be attached to the description text")
	}
	if len(out.Caveats) != 4 {
		t.Errorf("Caveats = %v, want one per failed criterion", out.Caveats)
	}
	// No feedback after the final round, it would never be read.
	if n := strings.Count(g.UserPrompt(), "# EVALUATOR FEEDBACK"); n != 1 {
		t.Errorf("found %d feedback blocks, want 1", n)
	}
}

func TestRunPropagatesGenerationErrors(t *testing.T) {
	boom := errors.New("provider down")
	g, e := newAgents(t, llmtest.New(llmtest.Response{Err: boom}), llmtest.New())

	o, err := NewOrchestrator(g, e, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(t.Context(), testImage); !errors.Is(err, boom) {
		t.Errorf("err = %v, want the provider error", err)
	}
}

func TestRunPropagatesEvaluationErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	g, e := newAgents(t,
		llmtest.New(generatorResponse(1)),
		llmtest.New(llmtest.Response{Err: boom}))

	o, err := NewOrchestrator(g, e, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(t.Context(), testImage); !errors.Is(err, boom) {
		t.Errorf("err = %v, want the provider error", err)
	}
}

// failingExtractor always errors, to prove enrichment is best-effort.
type failingExtractor struct{}

func (failingExtractor) Name() string                                    { return "failing" }
func (failingExtractor) Extract(extract.Grid) ([]extract.Feature, error) { return nil, errors.New("nope") }
func (failingExtractor) Format([]extract.Feature) (string, error)        { return "", nil }

func TestRunEnrichment(t *testing.T) {
	genClient := llmtest.New(generatorResponse(1))
	evalClient := llmtest.New(scoreResponse(5, "fine"))
	g, e := newAgents(t, genClient, evalClient)

	o, err := NewOrchestrator(g, e, 3, 4,
		WithExtractors(failingExtractor{}, extract.NewPressureExtractor()))
	if err != nil {
		t.Fatal(err)
	}

	grid := pressureGrid()
	out, err := o.Run(t.Context(), testImage, grid)
	if err != nil {
		t.Fatalf("a failing extractor must not abort the run: %v", err)
	}
	if !out.Passed {
		t.Error("expected a passing outcome")
	}

	genPrompt := genClient.Requests[0].UserPrompt
	if !strings.Contains(genPrompt, "# PRESSURE CENTERS") {
		t.Error("generator prompt should carry the extracted features")
	}
	for _, req := range evalClient.Requests {
		if !strings.Contains(req.UserPrompt, "# PRESSURE CENTERS") {
			t.Error("evaluator prompts should carry the extracted features")
			break
		}
	}
}

// pressureGrid is a small field with one pronounced low.
func pressureGrid() extract.Grid {
	g := extract.Grid{Variable: "msl"}
	const n = 20
	g.Lats = make([]float64, n)
	g.Lons = make([]float64, n)
	g.Values = make([][]float64, n)
	for i := 0; i < n; i++ {
		g.Lats[i] = 30 + 2.5*float64(i)
		g.Lons[i] = -20 + 2.5*float64(i)
	}
	for i := range g.Values {
		g.Values[i] = make([]float64, n)
		for j := range g.Values[i] {
			d2 := float64((i-10)*(i-10) + (j-10)*(j-10))
			g.Values[i][j] = 1013 - 30*math.Exp(-d2/4)
		}
	}
	return g
}
