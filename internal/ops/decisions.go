package ops

import (
	"context"
	"strings"
	"time"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
)

// RecordDecisionInput contains parameters for the RecordDecision operation.
type RecordDecisionInput struct {
	SessionID string               // required
	Content   string               // required
	Kind      capsule.DecisionKind // default: made
}

// RecordDecisionOutput contains the result of the RecordDecision operation.
type RecordDecisionOutput struct {
	Decision *capsule.Decision `json:"decision"`
}

// RecordDecision attaches a decision to an existing session.
func RecordDecision(ctx context.Context, env *Env, input RecordDecisionInput) (*RecordDecisionOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, errors.NewInvalidRequest("session_id is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	kind := input.Kind
	if kind == "" {
		kind = capsule.DecisionMade
	}
	if !capsule.ValidDecisionKind(kind) {
		return nil, errors.NewInvalidKind(string(kind))
	}

	exists, err := db.SessionExists(ctx, env.DB, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !exists {
		return nil, errors.NewNotFound(sessionID)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	d := &capsule.Decision{
		ID:        id,
		SessionID: sessionID,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.InsertDecision(env.DB, d); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &RecordDecisionOutput{Decision: d}, nil
}

// ListDecisionsInput contains parameters for the ListDecisions operation.
type ListDecisionsInput struct {
	SessionID string // optional: restrict to one session
	Limit     int    // default: 100
}

// ListDecisionsOutput contains the result of the ListDecisions operation.
type ListDecisionsOutput struct {
	Decisions []capsule.Decision `json:"decisions"`
	Count     int                `json:"count"`
}

// ListDecisions returns decisions newest first. With a session identifier
// it lists that session's decisions; without one it lists recent decisions
// across all sessions.
func ListDecisions(ctx context.Context, env *Env, input ListDecisionsInput) (*ListDecisionsOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID != "" {
		exists, err := db.SessionExists(ctx, env.DB, sessionID)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if !exists {
			return nil, errors.NewNotFound(sessionID)
		}
	}

	limit := clampLimit(input.Limit, MaxDecisionLimit, MaxDecisionLimit)
	decisions, err := db.RecentDecisions(ctx, env.DB, sessionID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ListDecisionsOutput{Decisions: decisions, Count: len(decisions)}, nil
}

// DeleteDecisionInput contains parameters for the DeleteDecision operation.
type DeleteDecisionInput struct {
	ID string // required
}

// DeleteDecisionOutput contains the result of the DeleteDecision operation.
type DeleteDecisionOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteDecision removes a decision by identifier.
func DeleteDecision(ctx context.Context, env *Env, input DeleteDecisionInput) (*DeleteDecisionOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	if err := db.DeleteDecision(env.DB, id); err != nil {
		return nil, err
	}
	return &DeleteDecisionOutput{Deleted: true, ID: id}, nil
}
