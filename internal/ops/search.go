package ops

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/engramdev/engram/internal/ai"
	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/vector"
)

// Search limits
const (
	DefaultTopK    = 5
	MaxTopK        = 20
	MaxQueryLength = 1000
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string // required
	TopK  int    // default: from config, max: 20
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Results  []capsule.SearchResult `json:"results"`
	Answer   string                 `json:"answer"`
	Fallback bool                   `json:"fallback,omitempty"`
	Note     string                 `json:"note,omitempty"`
}

// Search answers a natural-language question over stored sessions. The
// happy path embeds the query and runs a vector similarity search; any
// failure along that path drops to a lexical scan of recent sessions, and
// a failing lexical scan still produces an empty result set with an
// explanatory answer. Search returns a non-nil error only for an invalid
// query.
func Search(ctx context.Context, env *Env, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if len(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	topK := clampLimit(input.TopK, env.Config.TopK, MaxTopK)
	if topK <= 0 {
		topK = DefaultTopK
	}

	results, ok := vectorSearch(ctx, env, query, topK)
	if !ok {
		return lexicalFallback(ctx, env, query, topK), nil
	}

	out := &SearchOutput{Results: results}
	answer := ai.Answer(ctx, env.AI, query, results)
	out.Answer = answer.Value
	return out, nil
}

// vectorSearch runs the embedding and similarity stages. The second return
// is false whenever the lexical fallback should take over.
func vectorSearch(ctx context.Context, env *Env, query string, topK int) ([]capsule.SearchResult, bool) {
	embedded := ai.Embed(ctx, env.AI, query)
	if embedded.Fallback || ai.IsZero(embedded.Value) {
		return nil, false
	}

	matches, err := env.Index.Query(ctx, embedded.Value, topK)
	if err != nil {
		log.Printf("search: vector query failed: %v", err)
		return nil, false
	}
	if len(matches) == 0 {
		return nil, false
	}

	results, err := hydrate(ctx, env, matches)
	if err != nil {
		log.Printf("search: hydrate failed: %v", err)
		return nil, false
	}
	return results, true
}

// hydrate turns vector matches into full search results. Sessions are
// loaded from the database in one pass; a match whose session record is
// gone is reconstructed from the vector metadata so a stale index entry
// still yields a usable result.
func hydrate(ctx context.Context, env *Env, matches []vector.Match) ([]capsule.SearchResult, error) {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	sessions, err := db.SessionsByIDs(ctx, env.DB, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*capsule.Capsule, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	decisions, err := db.DecisionsForSessions(ctx, env.DB, ids)
	if err != nil {
		return nil, err
	}

	results := make([]capsule.SearchResult, 0, len(matches))
	for _, m := range matches {
		c, found := byID[m.ID]
		if !found {
			c = capsuleFromMetadata(m)
		}
		results = append(results, capsule.SearchResult{
			Capsule:   c,
			Score:     m.Score,
			Decisions: decisions[m.ID],
		})
	}
	return results, nil
}

func capsuleFromMetadata(m vector.Match) *capsule.Capsule {
	c := &capsule.Capsule{
		ID:        m.ID,
		Title:     m.Metadata.Title,
		Goal:      m.Metadata.Goal,
		TimeStart: unixTime(m.Metadata.TimeStart),
		TimeEnd:   unixTime(m.Metadata.TimeEnd),
	}
	if m.Metadata.Subsystem != "" {
		sub := m.Metadata.Subsystem
		c.Subsystem = &sub
	}
	return c
}

// lexicalFallback scans recent sessions for query-term substring matches.
// Matches score 0.5; when nothing matches, the most recent sessions are
// returned at 0.3 with a note saying so. This path cannot fail the
// request: a database error degrades to an empty result set.
func lexicalFallback(ctx context.Context, env *Env, query string, topK int) *SearchOutput {
	out := &SearchOutput{Results: []capsule.SearchResult{}, Fallback: true}

	recent, err := db.RecentSessions(ctx, env.DB, env.Config.LexicalScanLimit)
	if err != nil {
		log.Printf("search: lexical scan failed: %v", err)
		out.Answer = "Search is temporarily unavailable. Try again shortly."
		return out
	}

	terms := queryTerms(query)
	matched := make([]capsule.SearchResult, 0, len(recent))
	for _, s := range recent {
		if matchesTerms(s, terms) {
			matched = append(matched, capsule.SearchResult{Capsule: s, Score: 0.5})
		}
	}

	if len(matched) == 0 {
		if len(recent) > topK {
			recent = recent[:topK]
		}
		for _, s := range recent {
			out.Results = append(out.Results, capsule.SearchResult{Capsule: s, Score: 0.3})
		}
		out.Note = fmt.Sprintf("No exact matches found. Showing %d recent sessions.", len(out.Results))
	} else {
		if len(matched) > topK {
			matched = matched[:topK]
		}
		out.Results = matched
	}

	attachDecisions(ctx, env, out.Results)

	answer := ai.Answer(ctx, env.AI, query, out.Results)
	out.Answer = answer.Value
	return out
}

// queryTerms lowercases the query and keeps words longer than two runes.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func matchesTerms(s *capsule.Capsule, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	text := strings.ToLower(s.SearchText())
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func attachDecisions(ctx context.Context, env *Env, results []capsule.SearchResult) {
	if len(results) == 0 {
		return
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Capsule.ID
	}
	decisions, err := db.DecisionsForSessions(ctx, env.DB, ids)
	if err != nil {
		log.Printf("search: decisions lookup failed: %v", err)
		return
	}
	for i := range results {
		results[i].Decisions = decisions[results[i].Capsule.ID]
	}
}
