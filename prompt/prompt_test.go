package prompt

import (
	"strings"
	"testing"

	"ducky/config"
)

func TestSystemPersonaOnly(t *testing.T) {
	got := System(nil, "", 0, 0.6)
	if !strings.Contains(got, "Rubber Duck Assistant") {
		t.Error("persona missing")
	}
	if strings.Contains(got, "Kontekst projektu") {
		t.Error("project section present without a project")
	}
}

func TestSystemProjectContext(t *testing.T) {
	p := &config.Project{
		Name:                "sklep",
		Description:         "platforma e-commerce",
		TechStack:           []string{"Go", "PostgreSQL"},
		BusinessAssumptions: "B2C",
	}
	got := System(p, "", 0, 0.6)

	for _, want := range []string{
		"Projekt: sklep",
		"Opis: platforma e-commerce",
		"Stack technologiczny: Go, PostgreSQL",
		"Założenia biznesowe: B2C",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in system prompt", want)
		}
	}
	if strings.Contains(got, "Dodatkowy kontekst") {
		t.Error("empty fields should be omitted")
	}
}

func TestSentimentGatedOnConfidence(t *testing.T) {
	// Below the threshold the instruction must not appear.
	got := System(nil, "negative", 0.5, 0.6)
	if strings.Contains(got, "sfrustrowany") {
		t.Error("low-confidence sentiment leaked into prompt")
	}

	// Equal to the threshold still does not pass.
	got = System(nil, "negative", 0.6, 0.6)
	if strings.Contains(got, "sfrustrowany") {
		t.Error("threshold-equal sentiment leaked into prompt")
	}

	got = System(nil, "negative", 0.8, 0.6)
	if !strings.Contains(got, "sfrustrowany") {
		t.Error("confident negative sentiment missing from prompt")
	}

	got = System(nil, "positive", 0.8, 0.6)
	if !strings.Contains(got, "pozytywnie nastawiony") {
		t.Error("confident positive sentiment missing from prompt")
	}
}

func TestNeutralSentimentAddsNothing(t *testing.T) {
	plain := System(nil, "", 0, 0.6)
	neutral := System(nil, "neutral", 0.99, 0.6)
	if plain != neutral {
		t.Error("neutral sentiment changed the prompt")
	}
}
