package db

import (
	"context"
	"testing"
	"time"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/errors"
)

func testEvent(id string, at time.Time) *capsule.RawEvent {
	return &capsule.RawEvent{
		ID:        id,
		Time:      at,
		Source:    capsule.SourceFile,
		Object:    "src/db/queries.go",
		CreatedAt: at,
	}
}

func testSession(id string, start time.Time) *capsule.Capsule {
	return &capsule.Capsule{
		ID:         id,
		TimeStart:  start,
		TimeEnd:    start.Add(20 * time.Minute),
		Title:      "Session " + id,
		Goal:       "Test goal",
		KeyActions: []string{"did a thing"},
		Artifacts:  []string{"src/a.go"},
		CreatedAt:  start,
	}
}

func TestInsertAndFetchEvents(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	e := testEvent("ev1", base)
	e.InferredIntent = "refactoring"
	e.Metadata = map[string]any{"branch": "main"}
	if err := InsertEvent(database, e); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := InsertEvent(database, testEvent("ev2", base.Add(5*time.Minute))); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	events, err := EventsBetween(context.Background(), database, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("EventsBetween failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].ID != "ev1" || events[1].ID != "ev2" {
		t.Error("events not in ascending time order")
	}
	if events[0].InferredIntent != "refactoring" {
		t.Errorf("InferredIntent = %q", events[0].InferredIntent)
	}
	if events[0].Metadata["branch"] != "main" {
		t.Errorf("Metadata = %v", events[0].Metadata)
	}
}

func TestEventsBetween_WindowExcludes(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := InsertEvent(database, testEvent("inside", base)); err != nil {
		t.Fatal(err)
	}
	if err := InsertEvent(database, testEvent("outside", base.Add(-2*time.Hour))); err != nil {
		t.Fatal(err)
	}

	events, err := EventsBetween(context.Background(), database, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("EventsBetween failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "inside" {
		t.Errorf("events = %v, want only the in-window event", events)
	}
}

func TestRecentEvents(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := InsertEvent(database, testEvent(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	events, err := RecentEvents(context.Background(), database, 2)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].ID != "c" {
		t.Errorf("first = %q, want newest", events[0].ID)
	}
}

func TestInsertSessionRoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sub := "Frontend"
	s := testSession("s1", start)
	s.Subsystem = &sub
	if err := InsertSession(database, s); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	got, err := SessionsByIDs(context.Background(), database, []string{"s1"})
	if err != nil {
		t.Fatalf("SessionsByIDs failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "Session s1" || got[0].Goal != "Test goal" {
		t.Error("session fields not round-tripped")
	}
	if got[0].Subsystem == nil || *got[0].Subsystem != "Frontend" {
		t.Error("subsystem not round-tripped")
	}
	if got[0].VectorID != nil {
		t.Error("vector_id should be nil before AttachVectorRef")
	}
	if !got[0].TimeStart.Equal(start) {
		t.Errorf("TimeStart = %v, want %v", got[0].TimeStart, start)
	}
}

func TestAttachVectorRef(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	start := time.Now().UTC().Truncate(time.Second)
	if err := InsertSession(database, testSession("s1", start)); err != nil {
		t.Fatal(err)
	}

	if err := AttachVectorRef(database, "s1", "s1"); err != nil {
		t.Fatalf("AttachVectorRef failed: %v", err)
	}

	got, err := SessionsByIDs(context.Background(), database, []string{"s1"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].VectorID == nil || *got[0].VectorID != "s1" {
		t.Error("vector_id not attached")
	}

	// Unknown session is a 404, not a silent no-op.
	err = AttachVectorRef(database, "nope", "v")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("AttachVectorRef(nope) = %v, want NOT_FOUND", err)
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := InsertSession(database, testSession(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := RecentSessions(context.Background(), database, 2)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("order = %s,%s, want new,mid", got[0].ID, got[1].ID)
	}
}

func TestDecisionLifecycle(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := InsertSession(database, testSession("s1", start)); err != nil {
		t.Fatal(err)
	}

	exists, err := SessionExists(context.Background(), database, "s1")
	if err != nil || !exists {
		t.Fatalf("SessionExists(s1) = %v, %v", exists, err)
	}
	exists, err = SessionExists(context.Background(), database, "nope")
	if err != nil || exists {
		t.Fatalf("SessionExists(nope) = %v, %v", exists, err)
	}

	d := &capsule.Decision{
		ID:        "d1",
		SessionID: "s1",
		Content:   "Chose sqlite over postgres",
		Kind:      capsule.DecisionMade,
		CreatedAt: start,
	}
	if err := InsertDecision(database, d); err != nil {
		t.Fatalf("InsertDecision failed: %v", err)
	}

	bySession, err := DecisionsForSessions(context.Background(), database, []string{"s1"})
	if err != nil {
		t.Fatalf("DecisionsForSessions failed: %v", err)
	}
	if len(bySession["s1"]) != 1 || bySession["s1"][0].Kind != capsule.DecisionMade {
		t.Errorf("decisions = %v", bySession)
	}

	list, err := RecentDecisions(context.Background(), database, "s1", 50)
	if err != nil || len(list) != 1 {
		t.Fatalf("RecentDecisions = %v, %v", list, err)
	}

	if err := DeleteDecision(database, "d1"); err != nil {
		t.Fatalf("DeleteDecision failed: %v", err)
	}
	err = DeleteDecision(database, "d1")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete = %v, want NOT_FOUND", err)
	}
}

func TestSessionsByIDs_Empty(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	got, err := SessionsByIDs(context.Background(), database, nil)
	if err != nil {
		t.Fatalf("SessionsByIDs(nil) failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
