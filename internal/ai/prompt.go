package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/engramdev/engram/internal/capsule"
)

// RenderEventLog formats an event group for the summarization prompt, one
// event per line as "[source] object - inferred_intent".
func RenderEventLog(events []capsule.RawEvent) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		line := fmt.Sprintf("[%s] %s", e.Source, e.Object)
		if e.InferredIntent != "" {
			line += " - " + e.InferredIntent
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// BuildSummaryPrompt constructs the session-summarization prompt. Git events
// are highlighted separately because commit messages carry the strongest
// intent signal.
func BuildSummaryPrompt(events []capsule.RawEvent) string {
	var gitObjects []string
	for _, e := range events {
		if e.Source == capsule.SourceGit {
			gitObjects = append(gitObjects, e.Object)
		}
	}

	var b strings.Builder
	b.WriteString("You are analyzing a developer's work session. Based on these events, identify the primary focus and synthesize a Context Capsule.\n\n")
	b.WriteString("Events from this session:\n")
	b.WriteString(RenderEventLog(events))
	b.WriteString("\n")
	if len(gitObjects) > 0 {
		b.WriteString("\nGit commits (prioritize for intent):\n")
		b.WriteString(strings.Join(gitObjects, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(`
Output a JSON object with:
- "title": A concise title for this focus session (max 10 words)
- "goal": What the developer was trying to achieve (1-2 sentences)
- "keyActions": Array of 3 key actions/accomplishments from this session

Respond ONLY with valid JSON, no markdown.`)
	return b.String()
}

// ParseSummary parses a model response into a Summary, stripping any
// surrounding markdown fences first. Missing fields fall back to the
// deterministic defaults so a partially valid response still yields a
// complete summary.
func ParseSummary(response string) (capsule.Summary, error) {
	jsonStr := StripFences(response)

	var parsed capsule.Summary
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return capsule.Summary{}, fmt.Errorf("parse summary response: %w", err)
	}

	if parsed.Title == "" {
		parsed.Title = FallbackTitle
	}
	if parsed.Goal == "" {
		parsed.Goal = FallbackGoal
	}
	if len(parsed.KeyActions) == 0 {
		parsed.KeyActions = []string{"Reviewed files", "Made changes", "Tested code"}
	}
	return parsed, nil
}

// StripFences removes surrounding ```json / ``` markers from a model
// response, leaving the payload intact.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// BuildAnswerPrompt constructs the answer-synthesis prompt from the query
// and the ranked, hydrated matches.
func BuildAnswerPrompt(query string, results []capsule.SearchResult) string {
	summaries := make([]string, 0, len(results))
	for _, r := range results {
		c := r.Capsule
		summaries = append(summaries, fmt.Sprintf(
			"[Score: %.2f] %s\nTime: %s to %s\nGoal: %s\nActions: %s\nArtifacts: %s",
			r.Score, c.Title,
			c.TimeStart.Format("2006-01-02 15:04"), c.TimeEnd.Format("2006-01-02 15:04"),
			c.Goal,
			strings.Join(c.KeyActions, ", "),
			strings.Join(c.Artifacts, ", "),
		))
	}

	var b strings.Builder
	b.WriteString("Based on these past work sessions, answer the user's question.\n\n")
	b.WriteString("Past sessions:\n")
	b.WriteString(strings.Join(summaries, "\n\n"))
	b.WriteString("\n\nUser question: ")
	b.WriteString(query)
	b.WriteString("\n\nProvide a helpful, concise answer based on the context. If the information isn't available, say so.")
	return b.String()
}
