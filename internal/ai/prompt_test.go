package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/engramdev/engram/internal/capsule"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"title":"x"}`, `{"title":"x"}`},
		{"json fence", "```json\n{\"title\":\"x\"}\n```", `{"title":"x"}`},
		{"plain fence", "```\n{\"title\":\"x\"}\n```", `{"title":"x"}`},
		{"surrounding whitespace", "  {\"title\":\"x\"}  ", `{"title":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSummary_Complete(t *testing.T) {
	s, err := ParseSummary("```json\n{\"title\":\"Auth refactor\",\"goal\":\"Unify token checks\",\"keyActions\":[\"a\",\"b\",\"c\"]}\n```")
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if s.Title != "Auth refactor" || s.Goal != "Unify token checks" {
		t.Errorf("parsed = %+v", s)
	}
	if len(s.KeyActions) != 3 {
		t.Errorf("KeyActions = %v", s.KeyActions)
	}
}

func TestParseSummary_MissingFieldsDefaulted(t *testing.T) {
	s, err := ParseSummary(`{"title":"","goal":""}`)
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if s.Title != FallbackTitle || s.Goal != FallbackGoal {
		t.Errorf("defaults not applied: %+v", s)
	}
	if len(s.KeyActions) == 0 {
		t.Error("KeyActions should be defaulted")
	}
}

func TestParseSummary_Malformed(t *testing.T) {
	if _, err := ParseSummary("I worked on the parser today."); err == nil {
		t.Error("ParseSummary should fail on non-JSON output")
	}
}

func TestBuildAnswerPrompt(t *testing.T) {
	sub := "Frontend"
	results := []capsule.SearchResult{
		{
			Capsule: &capsule.Capsule{
				Title:      "Dashboard polish",
				Goal:       "Finish the timeline view",
				TimeStart:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
				TimeEnd:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
				KeyActions: []string{"Added zooming", "Fixed tooltips"},
				Artifacts:  []string{"src/components/Timeline.tsx"},
				Subsystem:  &sub,
			},
			Score: 0.87,
		},
	}

	prompt := BuildAnswerPrompt("what happened with the timeline?", results)
	for _, want := range []string{
		"[Score: 0.87] Dashboard polish",
		"Goal: Finish the timeline view",
		"Actions: Added zooming, Fixed tooltips",
		"Artifacts: src/components/Timeline.tsx",
		"User question: what happened with the timeline?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
