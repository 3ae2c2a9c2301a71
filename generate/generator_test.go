package generate

import (
	"errors"
	"strings"
	"testing"

	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/llm/llmtest"
	"github.com/mgaillard/stratus/prompts"
)

const fullResponse = `<step_1>Surface analysis, MSLP, North Atlantic.</step_1>
<step_2>Deep low of 965 hPa near Iceland, ridge of 1032 hPa over the Azores.</step_2>
<step_3>The Icelandic low dominates; the ridge steers the flow northeast.</step_3>
<step_4>Draft text.</step_4>
<final_description>A deep 965 hPa low sits near Iceland while a 1032 hPa ridge holds over the Azores.</final_description>`

var testImage = chart.FromImage([]byte{0xff, 0xd8, 0xff})

func TestNew(t *testing.T) {
	if _, err := New(nil, "", "prompt"); err == nil {
		t.Error("nil client should be rejected")
	}
	if _, err := New(llmtest.New(), "sys", "  \n "); err == nil {
		t.Error("blank user prompt should be rejected")
	}
	if _, err := NewDefault(llmtest.New()); err != nil {
		t.Errorf("NewDefault: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	t.Run("returns final description", func(t *testing.T) {
		client := llmtest.New(llmtest.Response{Text: fullResponse})
		g, err := NewDefault(client)
		if err != nil {
			t.Fatal(err)
		}
		desc, err := g.Generate(t.Context(), testImage)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(desc, "A deep 965 hPa low") {
			t.Errorf("description = %q", desc)
		}
		req := client.Requests[0]
		if req.SystemPrompt != prompts.GeneratorSystem {
			t.Error("system prompt not forwarded")
		}
		if len(req.Image) == 0 {
			t.Error("image bytes not forwarded")
		}
	})

	t.Run("incomplete output names missing fields", func(t *testing.T) {
		client := llmtest.New(llmtest.Response{Text: "<step_1>only this</step_1>"})
		g, _ := NewDefault(client)
		_, err := g.Generate(t.Context(), testImage)
		if err == nil {
			t.Fatal("expected error for incomplete output")
		}
		for _, want := range []string{"step_2", "step_3", "step_4", "final_description"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q should name %s", err, want)
			}
		}
		if strings.Contains(err.Error(), "step_1,") {
			t.Errorf("error %q should not name present fields", err)
		}
	})

	t.Run("llm failure propagates", func(t *testing.T) {
		boom := errors.New("provider down")
		client := llmtest.New(llmtest.Response{Err: boom})
		g, _ := NewDefault(client)
		if _, err := g.Generate(t.Context(), testImage); !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped provider error", err)
		}
	})

	t.Run("no input", func(t *testing.T) {
		g, _ := NewDefault(llmtest.New())
		if _, err := g.Generate(t.Context(), chart.Input{}); !errors.Is(err, chart.ErrNoInput) {
			t.Errorf("err = %v, want chart.ErrNoInput", err)
		}
	})
}

func TestAppendUserPrompt(t *testing.T) {
	g, err := New(llmtest.New(), "", "base prompt")
	if err != nil {
		t.Fatal(err)
	}
	g.AppendUserPrompt("feedback block")
	g.AppendUserPrompt("   ")
	g.AppendUserPrompt("feature block")

	want := "base prompt\n\nfeedback block\n\nfeature block"
	if got := g.UserPrompt(); got != want {
		t.Errorf("UserPrompt = %q, want %q", got, want)
	}
}

func TestParseOutputPartial(t *testing.T) {
	out, err := parseOutput(t.Context(), "<step_1>A</step_1><step_2>B</step_2>")
	if err != nil {
		t.Fatal(err)
	}
	if out.Step1 != "A" || out.Step2 != "B" {
		t.Errorf("out = %+v", out)
	}
	if out.Complete() {
		t.Error("partial output must not be complete")
	}
	missing := out.MissingFields()
	want := []string{"step_3", "step_4", "final_description"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, missing[i], want[i])
		}
	}
}
