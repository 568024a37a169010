package ops

import (
	"context"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
)

// TimelineInput contains parameters for the Timeline operation.
type TimelineInput struct {
	SessionLimit int // default: 30, max: 100
	EventLimit   int // default: 50, max: 500
}

// TimelineSession pairs a session with its decisions for display.
type TimelineSession struct {
	*capsule.Capsule
	Decisions []capsule.Decision `json:"decisions"`
}

// TimelineOutput contains the result of the Timeline operation.
type TimelineOutput struct {
	Sessions []TimelineSession  `json:"sessions"`
	Events   []capsule.RawEvent `json:"events"`
}

// Timeline returns recent sessions with their decisions plus the latest
// raw events, both newest first.
func Timeline(ctx context.Context, env *Env, input TimelineInput) (*TimelineOutput, error) {
	sessionLimit := clampLimit(input.SessionLimit, DefaultSessionLimit, MaxSessionLimit)
	eventLimit := clampLimit(input.EventLimit, DefaultEventListLimit, MaxEventListLimit)

	sessions, err := db.RecentSessions(ctx, env.DB, sessionLimit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	decisions, err := db.DecisionsForSessions(ctx, env.DB, ids)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	events, err := db.RecentEvents(ctx, env.DB, eventLimit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &TimelineOutput{
		Sessions: make([]TimelineSession, 0, len(sessions)),
		Events:   events,
	}
	for _, s := range sessions {
		d := decisions[s.ID]
		if d == nil {
			d = []capsule.Decision{}
		}
		out.Sessions = append(out.Sessions, TimelineSession{Capsule: s, Decisions: d})
	}
	return out, nil
}

// ListSessionsInput contains parameters for the ListSessions operation.
type ListSessionsInput struct {
	Limit int // default: 30, max: 100
}

// ListSessionsOutput contains the result of the ListSessions operation.
type ListSessionsOutput struct {
	Sessions []*capsule.Capsule `json:"sessions"`
	Count    int                `json:"count"`
}

// ListSessions returns recent focus sessions, newest first.
func ListSessions(ctx context.Context, env *Env, input ListSessionsInput) (*ListSessionsOutput, error) {
	limit := clampLimit(input.Limit, DefaultSessionLimit, MaxSessionLimit)

	sessions, err := db.RecentSessions(ctx, env.DB, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ListSessionsOutput{Sessions: sessions, Count: len(sessions)}, nil
}
