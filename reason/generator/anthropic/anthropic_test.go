package anthropic

import (
	"errors"
	"strings"
	"testing"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/reason"
	"github.com/antigravity/decision-support/snapshot"
)

func TestParsePhrasing_PlainJSON(t *testing.T) {
	p, err := parsePhrasing(`{"top_risks":["aftershocks"],"recommended_actions":["evacuate"],"explanation":"In similar cases..."}`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(p.TopRisks) != 1 || p.TopRisks[0] != "aftershocks" {
		t.Errorf("Unexpected risks: %v", p.TopRisks)
	}
}

func TestParsePhrasing_FencedJSON(t *testing.T) {
	text := "```json\n{\"top_risks\":[],\"recommended_actions\":[],\"explanation\":\"ok\"}\n```"
	p, err := parsePhrasing(text)
	if err != nil {
		t.Fatalf("Failed to parse fenced output: %v", err)
	}
	if p.Explanation != "ok" {
		t.Errorf("Unexpected explanation: %q", p.Explanation)
	}
}

func TestParsePhrasing_Garbage(t *testing.T) {
	_, err := parsePhrasing("Sure! Here is my analysis of the situation.")
	if !errors.Is(err, core.ErrProvider) {
		t.Errorf("Expected provider error for unparseable output, got %v", err)
	}
}

func TestBuildPrompt_IncludesEvidence(t *testing.T) {
	bundle := &reason.EvidenceBundle{
		Narrative: "fire near the depot",
		Risks:     []reason.Candidate{{Text: "fire spread", Weight: 0.9}},
		Basis: []snapshot.HistoricalBasisEntry{{
			CaseStudyID: "kobe_1995",
			Excerpt:     "fires spread among collapsed houses",
		}},
	}
	prompt, err := buildPrompt(bundle)
	if err != nil {
		t.Fatalf("Failed to build prompt: %v", err)
	}
	for _, want := range []string{"fire near the depot", "kobe_1995", "fire spread", "top_risks"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}
