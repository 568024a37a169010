package ops

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/db"
	"github.com/engramdev/engram/internal/errors"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Events []capsule.RawEvent // required, non-empty after filtering
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
}

// Ingest records a batch of raw events. Events missing a timestamp or
// carrying an unknown source are skipped; a batch where every event is
// invalid is rejected outright.
func Ingest(ctx context.Context, env *Env, input IngestInput) (*IngestOutput, error) {
	if len(input.Events) == 0 {
		return nil, errors.NewInvalidRequest("events must not be empty")
	}

	valid := make([]capsule.RawEvent, 0, len(input.Events))
	for _, e := range input.Events {
		if e.Time.IsZero() {
			continue
		}
		if !capsule.ValidSource(e.Source) {
			continue
		}
		if strings.TrimSpace(e.Object) == "" {
			continue
		}
		valid = append(valid, e)
	}

	if len(valid) == 0 {
		return nil, errors.NewInvalidRequest("no valid events in batch: each event needs a timestamp, a known source, and an object")
	}

	out := &IngestOutput{Skipped: len(input.Events) - len(valid)}
	for i := range valid {
		e := &valid[i]
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		e.ID = id
		e.CreatedAt = time.Now().UTC()

		if err := db.InsertEvent(env.DB, e); err != nil {
			log.Printf("ingest: insert event %s failed: %v", e.ID, err)
			out.Skipped++
			continue
		}
		out.Ingested++
	}

	if out.Ingested == 0 {
		return nil, errors.NewInternal(fmt.Errorf("no events could be stored"))
	}
	return out, nil
}

// ListEventsInput contains parameters for the ListEvents operation.
type ListEventsInput struct {
	Limit int // default: 50, max: 500
}

// ListEventsOutput contains the result of the ListEvents operation.
type ListEventsOutput struct {
	Events []capsule.RawEvent `json:"events"`
	Count  int                `json:"count"`
}

// ListEvents returns the most recently recorded events, newest first.
func ListEvents(ctx context.Context, env *Env, input ListEventsInput) (*ListEventsOutput, error) {
	limit := clampLimit(input.Limit, DefaultEventListLimit, MaxEventListLimit)

	events, err := db.RecentEvents(ctx, env.DB, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ListEventsOutput{Events: events, Count: len(events)}, nil
}
