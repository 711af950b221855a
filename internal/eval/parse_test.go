package eval

import (
	"errors"
	"testing"

	"github.com/castsift/castsift/internal/cast"
)

func TestParseDecision_CleanJSON(t *testing.T) {
	d, err := ParseDecision(`{"decision":"recommend","rationale":"on topic","score":0.9,"message":"new cast"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != cast.DecisionRecommend {
		t.Errorf("decision = %q, want recommend", d.Decision)
	}
	if d.Score != 0.9 {
		t.Errorf("score = %v, want 0.9", d.Score)
	}
}

func TestParseDecision_EmbeddedInProse(t *testing.T) {
	raw := `Sure! Based on the criteria, here is my verdict:
{"decision":"inappropriate","rationale":"spam","score":0.1,"message":"skip"}
Let me know if you need anything else.`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != cast.DecisionInappropriate {
		t.Errorf("decision = %q, want inappropriate", d.Decision)
	}
}

func TestParseDecision_PreambleStripped(t *testing.T) {
	raw := `Here is the output: {"decision":"stop","rationale":"unclear"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != cast.DecisionStop {
		t.Errorf("decision = %q, want stop", d.Decision)
	}
}

func TestParseDecision_SubstringBetweenBraces(t *testing.T) {
	// Nested braces: extraction spans the first '{' through the last '}'.
	raw := `prefix {"decision":"recommend","message":"has {braces} inside"} suffix`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Message != "has {braces} inside" {
		t.Errorf("message = %q", d.Message)
	}
}

func TestParseDecision_NoBraces(t *testing.T) {
	_, err := ParseDecision("the model refused to answer")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseDecision_OnlyOpeningBrace(t *testing.T) {
	_, err := ParseDecision(`{"decision":"recommend"`)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseDecision_InvalidSubstring(t *testing.T) {
	_, err := ParseDecision(`{not json at all}`)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
