// Package capsule defines the Engram domain model: raw activity events,
// focus sessions (context capsules) derived from them, and the decisions
// users attach to sessions.
package capsule

import "time"

// Source identifies the kind of activity that produced a raw event.
type Source string

const (
	SourceGit      Source = "git"
	SourceFile     Source = "file"
	SourceBrowser  Source = "browser"
	SourceTerminal Source = "terminal"
	SourceMeeting  Source = "meeting"
	SourceManual   Source = "manual"
)

// KnownSources lists all valid event sources.
var KnownSources = []Source{
	SourceGit, SourceFile, SourceBrowser,
	SourceTerminal, SourceMeeting, SourceManual,
}

// ValidSource reports whether s is a known event source.
func ValidSource(s Source) bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

// RawEvent is an observed activity atom. Events are immutable once recorded.
type RawEvent struct {
	ID             string         `json:"id,omitempty"`
	Time           time.Time      `json:"time"`
	Source         Source         `json:"source"`
	Object         string         `json:"object"`
	InferredIntent string         `json:"inferred_intent,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`
}

// Capsule is a focus session: a derived aggregate over a contiguous run of
// raw events. TimeStart and TimeEnd are the min/max timestamps of the
// constituent events, so TimeStart <= TimeEnd always holds.
type Capsule struct {
	ID         string    `json:"id"`
	TimeStart  time.Time `json:"time_start"`
	TimeEnd    time.Time `json:"time_end"`
	Title      string    `json:"title"`
	Goal       string    `json:"goal"`
	KeyActions []string  `json:"key_actions"`
	Artifacts  []string  `json:"artifacts"`
	Subsystem  *string   `json:"subsystem,omitempty"`
	VectorID   *string   `json:"vector_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// EmbeddingText returns the textual representation of a capsule used for
// embedding: title, goal, and key actions joined by sentence breaks.
func (c *Capsule) EmbeddingText() string {
	text := c.Title + ". " + c.Goal
	for _, a := range c.KeyActions {
		text += ". " + a
	}
	return text
}

// SearchText returns the lowercase-searchable text of a capsule
// (title + goal + key actions), used by the lexical fallback.
func (c *Capsule) SearchText() string {
	text := c.Title + " " + c.Goal
	for _, a := range c.KeyActions {
		text += " " + a
	}
	return text
}

// DecisionKind classifies a decision record.
type DecisionKind string

const (
	DecisionMade       DecisionKind = "made"
	DecisionTradeoff   DecisionKind = "tradeoff"
	DecisionRejected   DecisionKind = "rejected"
	DecisionAssumption DecisionKind = "assumption"
)

// ValidDecisionKind reports whether k is one of the four decision kinds.
func ValidDecisionKind(k DecisionKind) bool {
	switch k {
	case DecisionMade, DecisionTradeoff, DecisionRejected, DecisionAssumption:
		return true
	}
	return false
}

// Decision is a user-authored annotation attached to exactly one capsule.
// Decisions are immutable; they can only be created and deleted.
type Decision struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Content   string       `json:"content"`
	Kind      DecisionKind `json:"decision_type"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// SearchResult pairs a capsule with a relevance score and its decisions.
// It is an ephemeral projection, never persisted.
type SearchResult struct {
	Capsule   *Capsule   `json:"capsule"`
	Score     float64    `json:"score"`
	Decisions []Decision `json:"decisions,omitempty"`
}

// Summary is the structured output of the session summarizer: a short title,
// a one-to-two sentence goal, and exactly three key actions when produced by
// the live capability.
type Summary struct {
	Title      string   `json:"title"`
	Goal       string   `json:"goal"`
	KeyActions []string `json:"keyActions"`
}
