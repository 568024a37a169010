package ops

import (
	"context"
	"log"
	"time"

	"github.com/engramdev/engram/internal/ai"
	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/vector"
)

// ClusterInput contains parameters for the Cluster operation.
type ClusterInput struct {
	HoursBack  int // default: 24, max: one year
	GapMinutes int // default: from config
}

// ClusterOutput contains the result of the Cluster operation.
type ClusterOutput struct {
	EventsProcessed int `json:"events_processed"`
	// ClustersFound counts every time-gap cluster, singletons included;
	// SessionsCreated counts only the groups that became sessions.
	ClustersFound   int                `json:"clusters_found"`
	SessionsCreated int                `json:"sessions_created"`
	Degraded        bool               `json:"degraded,omitempty"`
	Sessions        []*capsule.Capsule `json:"sessions"`
}

// Cluster groups recent events into focus sessions. Events are split on
// time gaps, single-event runs are discarded, and each remaining run is
// summarized, persisted, and indexed. A failing AI capability degrades a
// session to the template summary; a failing vector upsert leaves the
// session unindexed. Neither aborts the run.
func Cluster(ctx context.Context, env *Env, input ClusterInput) (*ClusterOutput, error) {
	hoursBack := input.HoursBack
	if hoursBack <= 0 {
		hoursBack = 24
	}
	if hoursBack > MaxHoursBack {
		return nil, errors.NewInvalidRequest("hours_back too large")
	}

	gap := time.Duration(env.Config.GapMinutes) * time.Minute
	if input.GapMinutes > 0 {
		gap = time.Duration(input.GapMinutes) * time.Minute
	}

	now := time.Now().UTC()
	events, err := db.EventsBetween(ctx, env.DB, now.Add(-time.Duration(hoursBack)*time.Hour), now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ClusterOutput{EventsProcessed: len(events), Sessions: []*capsule.Capsule{}}
	if len(events) == 0 {
		return out, nil
	}

	groups := capsule.Split(events, gap)
	out.ClustersFound = len(groups)

	for _, group := range groups {
		// A lone event is noise, not a session.
		if len(group) < 2 {
			continue
		}

		session, degraded, err := buildSession(ctx, env, group)
		if err != nil {
			log.Printf("cluster: session for %d events skipped: %v", len(group), err)
			continue
		}
		if degraded {
			out.Degraded = true
		}
		out.SessionsCreated++
		out.Sessions = append(out.Sessions, session)
	}
	return out, nil
}

// buildSession summarizes, persists, and indexes one event group. The
// returned bool reports whether the summary came from the fallback
// template rather than the live capability.
func buildSession(ctx context.Context, env *Env, group []capsule.RawEvent) (*capsule.Capsule, bool, error) {
	id, err := generateULID()
	if err != nil {
		return nil, false, err
	}

	outcome := ai.Summarize(ctx, env.AI, group)
	start, end := capsule.Bounds(group)
	artifacts := capsule.ExtractArtifacts(group)

	session := &capsule.Capsule{
		ID:         id,
		TimeStart:  start,
		TimeEnd:    end,
		Title:      outcome.Value.Title,
		Goal:       outcome.Value.Goal,
		KeyActions: outcome.Value.KeyActions,
		Artifacts:  artifacts,
		Subsystem:  capsule.InferSubsystem(artifacts),
		CreatedAt:  time.Now().UTC(),
	}

	if err := db.InsertSession(env.DB, session); err != nil {
		return nil, false, err
	}

	indexSession(ctx, env, session)
	return session, outcome.Fallback, nil
}

// indexSession embeds the session and registers it in the vector index.
// Indexing is best effort: the all-zero vector a disabled or failing
// embedder returns is never upserted, and upsert failures only log.
func indexSession(ctx context.Context, env *Env, session *capsule.Capsule) {
	outcome := ai.Embed(ctx, env.AI, session.EmbeddingText())
	if ai.IsZero(outcome.Value) {
		return
	}

	meta := vector.Metadata{
		Title:     session.Title,
		Goal:      session.Goal,
		TimeStart: session.TimeStart.Unix(),
		TimeEnd:   session.TimeEnd.Unix(),
	}
	if session.Subsystem != nil {
		meta.Subsystem = *session.Subsystem
	}

	if err := env.Index.Upsert(ctx, session.ID, outcome.Value, meta); err != nil {
		log.Printf("cluster: vector upsert for session %s failed: %v", session.ID, err)
		return
	}
	if err := db.AttachVectorRef(env.DB, session.ID, session.ID); err != nil {
		log.Printf("cluster: vector ref for session %s failed: %v", session.ID, err)
		return
	}
	session.VectorID = &session.ID
}
