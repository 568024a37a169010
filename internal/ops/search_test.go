package ops

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/vector"
)

// stubIndex returns canned matches, so hydration can be exercised against
// index entries that have no backing session row.
type stubIndex struct {
	matches []vector.Match
}

func (s *stubIndex) Upsert(context.Context, string, []float32, vector.Metadata) error { return nil }

func (s *stubIndex) Query(context.Context, []float32, int) ([]vector.Match, error) {
	return s.matches, nil
}

func (s *stubIndex) Delete(context.Context, string) error { return nil }

func seedSession(t *testing.T, env *Env, id, title, goal string, actions []string) *capsule.Capsule {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	s := &capsule.Capsule{
		ID:         id,
		TimeStart:  now.Add(-time.Hour),
		TimeEnd:    now,
		Title:      title,
		Goal:       goal,
		KeyActions: actions,
		Artifacts:  []string{},
		CreatedAt:  now,
	}
	if err := db.InsertSession(env.DB, s); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	return s
}

func TestSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := Search(context.Background(), env, SearchInput{Query: "   "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSearch_QueryTooLong(t *testing.T) {
	env := newTestEnv(t)

	_, err := Search(context.Background(), env, SearchInput{Query: strings.Repeat("x", MaxQueryLength+1)})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSearch_DisabledProviderLexicalMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", []string{"Moved handlers"})
	seedSession(t, env, "s2", "Database tuning", "Speed up queries", []string{"Added index"})

	out, err := Search(ctx, env, SearchInput{Query: "authentication work"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !out.Fallback {
		t.Error("Fallback = false, want true with disabled provider")
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 lexical match, got %d", len(out.Results))
	}
	if out.Results[0].Capsule.ID != "s1" {
		t.Errorf("matched session = %s, want s1", out.Results[0].Capsule.ID)
	}
	if out.Results[0].Score != 0.5 {
		t.Errorf("Score = %f, want 0.5", out.Results[0].Score)
	}
	if out.Answer == "" {
		t.Error("Answer must not be empty")
	}
}

func TestSearch_LexicalNoMatchShowsRecent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", nil)
	seedSession(t, env, "s2", "Database tuning", "Speed up queries", nil)

	out, err := Search(ctx, env, SearchInput{Query: "kubernetes migration"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !out.Fallback {
		t.Error("Fallback = false, want true")
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", len(out.Results))
	}
	for _, r := range out.Results {
		if r.Score != 0.3 {
			t.Errorf("Score = %f, want 0.3", r.Score)
		}
	}
	want := "No exact matches found. Showing 2 recent sessions."
	if out.Note != want {
		t.Errorf("Note = %q, want %q", out.Note, want)
	}
}

func TestSearch_LexicalIgnoresShortTerms(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, "s1", "Fix CI", "Go CI is red", nil)

	// "go" and "ci" are too short to count as terms, so nothing matches
	// and the recent-sessions path kicks in.
	out, err := Search(context.Background(), env, SearchInput{Query: "go ci"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if out.Note == "" {
		t.Error("expected recent-sessions note when every term is too short")
	}
}

func TestSearch_VectorPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.AI = &stubProvider{
		answer:    "You refactored authentication.",
		embedding: []float32{1, 0, 0, 0},
		dims:      4,
	}

	s := seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", []string{"Moved handlers"})
	if err := env.Index.Upsert(ctx, s.ID, []float32{1, 0, 0, 0}, vectorMetadataFor(s)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	out, err := Search(ctx, env, SearchInput{Query: "what did I do with auth"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if out.Fallback {
		t.Error("Fallback = true, want false on the vector path")
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	if out.Results[0].Capsule.Title != "Authentication refactor" {
		t.Errorf("Title = %q", out.Results[0].Capsule.Title)
	}
	if out.Answer != "You refactored authentication." {
		t.Errorf("Answer = %q", out.Answer)
	}
}

func TestSearch_VectorPathAttachesDecisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.AI = &stubProvider{
		answer:    "ok",
		embedding: []float32{1, 0, 0, 0},
		dims:      4,
	}

	s := seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", nil)
	if err := env.Index.Upsert(ctx, s.ID, []float32{1, 0, 0, 0}, vectorMetadataFor(s)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := RecordDecision(ctx, env, RecordDecisionInput{
		SessionID: s.ID,
		Content:   "Chose cookie sessions over JWTs",
		Kind:      capsule.DecisionTradeoff,
	}); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	out, err := Search(ctx, env, SearchInput{Query: "auth session storage"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	if len(out.Results[0].Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(out.Results[0].Decisions))
	}
	if out.Results[0].Decisions[0].Kind != capsule.DecisionTradeoff {
		t.Errorf("Kind = %q, want tradeoff", out.Results[0].Decisions[0].Kind)
	}
}

func TestSearch_StaleIndexEntryRebuiltFromMetadata(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	env.AI = &stubProvider{
		answer:    "ok",
		embedding: []float32{1, 0, 0, 0},
		dims:      4,
	}
	env.Index = &stubIndex{matches: []vector.Match{{
		ID:    "gone",
		Score: 0.91,
		Metadata: vector.Metadata{
			Title:     "Authentication refactor",
			Goal:      "Restructure login flow",
			TimeStart: start.Unix(),
			TimeEnd:   start.Add(time.Hour).Unix(),
			Subsystem: "Auth",
		},
	}}}

	out, err := Search(context.Background(), env, SearchInput{Query: "auth work"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if out.Fallback {
		t.Error("Fallback = true, want false: metadata should stand in for the missing row")
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}

	c := out.Results[0].Capsule
	if c.ID != "gone" {
		t.Errorf("ID = %q, want gone", c.ID)
	}
	if c.Title != "Authentication refactor" || c.Goal != "Restructure login flow" {
		t.Errorf("Title/Goal = %q/%q, want metadata values", c.Title, c.Goal)
	}
	if c.Subsystem == nil || *c.Subsystem != "Auth" {
		t.Errorf("Subsystem = %v, want Auth", c.Subsystem)
	}
	if !c.TimeStart.Equal(start) {
		t.Errorf("TimeStart = %v, want %v", c.TimeStart, start)
	}
	if len(c.KeyActions) != 0 || len(c.Artifacts) != 0 {
		t.Errorf("KeyActions/Artifacts = %v/%v, want empty", c.KeyActions, c.Artifacts)
	}
}

func TestSearch_EmbedErrorFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.AI = &stubProvider{
		answer:   "fallback answer",
		embedErr: fmt.Errorf("quota exceeded"),
		dims:     4,
	}
	seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", nil)

	out, err := Search(context.Background(), env, SearchInput{Query: "authentication"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !out.Fallback {
		t.Error("Fallback = false, want true after embed error")
	}
	if len(out.Results) == 0 {
		t.Error("expected lexical results after embed error")
	}
}

func TestSearch_EmptyIndexFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.AI = &stubProvider{
		answer:    "nothing indexed yet",
		embedding: []float32{1, 0, 0, 0},
		dims:      4,
	}
	seedSession(t, env, "s1", "Authentication refactor", "Restructure login flow", nil)

	out, err := Search(context.Background(), env, SearchInput{Query: "authentication"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !out.Fallback {
		t.Error("Fallback = false, want true when the index is empty")
	}
}

func TestSearch_NoSessionsAtAll(t *testing.T) {
	env := newTestEnv(t)

	out, err := Search(context.Background(), env, SearchInput{Query: "anything at all"})
	if err != nil {
		t.Fatalf("Search must not fail on an empty store: %v", err)
	}
	if out.Answer == "" {
		t.Error("Answer must not be empty even with no data")
	}
	if out.Results == nil {
		t.Error("Results must be an empty slice, not nil")
	}
}

func TestQueryTerms(t *testing.T) {
	terms := queryTerms("How did I Fix the DB?")
	want := []string{"how", "did", "fix", "the", "db?"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}
