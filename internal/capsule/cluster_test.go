package capsule

import (
	"testing"
	"time"
)

func eventAt(minutes int) RawEvent {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return RawEvent{
		Time:   base.Add(time.Duration(minutes) * time.Minute),
		Source: SourceFile,
		Object: "src/main.go",
	}
}

func TestSplit_Empty(t *testing.T) {
	groups := Split(nil, DefaultGap)
	if len(groups) != 0 {
		t.Errorf("Split(nil) = %d groups, want 0", len(groups))
	}
}

func TestSplit_SingleEvent(t *testing.T) {
	groups := Split([]RawEvent{eventAt(0)}, DefaultGap)
	if len(groups) != 1 {
		t.Fatalf("Split = %d groups, want 1", len(groups))
	}
	if len(groups[0]) != 1 {
		t.Errorf("group size = %d, want 1", len(groups[0]))
	}
}

func TestSplit_GapBoundary(t *testing.T) {
	// Events at t=0,5,40,45 with a 30-minute threshold: the 35-minute gap
	// between 5 and 40 splits the sequence into two groups.
	events := []RawEvent{eventAt(0), eventAt(5), eventAt(40), eventAt(45)}
	groups := Split(events, 30*time.Minute)
	if len(groups) != 2 {
		t.Fatalf("Split = %d groups, want 2", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 2 {
		t.Errorf("group sizes = %d,%d, want 2,2", len(groups[0]), len(groups[1]))
	}
	if !groups[1][0].Time.Equal(eventAt(40).Time) {
		t.Error("second group should start at t=40")
	}
}

func TestSplit_GapExactlyThreshold(t *testing.T) {
	// A gap equal to the threshold does not split; only strictly greater does.
	events := []RawEvent{eventAt(0), eventAt(30)}
	groups := Split(events, 30*time.Minute)
	if len(groups) != 1 {
		t.Errorf("Split = %d groups, want 1 (gap == threshold must not split)", len(groups))
	}
}

func TestSplit_PreservesOrderAndPartition(t *testing.T) {
	events := []RawEvent{
		eventAt(0), eventAt(10), eventAt(50), eventAt(55), eventAt(120),
	}
	groups := Split(events, 30*time.Minute)

	// Concatenating all groups must reproduce the input exactly.
	var flat []RawEvent
	for _, g := range groups {
		if len(g) == 0 {
			t.Fatal("Split produced an empty group")
		}
		flat = append(flat, g...)
	}
	if len(flat) != len(events) {
		t.Fatalf("partition lost events: %d != %d", len(flat), len(events))
	}
	for i := range events {
		if !flat[i].Time.Equal(events[i].Time) {
			t.Errorf("event %d out of order", i)
		}
	}

	// Every inter-group boundary gap must exceed the threshold.
	for i := 1; i < len(groups); i++ {
		prev := groups[i-1][len(groups[i-1])-1]
		next := groups[i][0]
		if next.Time.Sub(prev.Time) <= 30*time.Minute {
			t.Errorf("boundary %d gap %v not > threshold", i, next.Time.Sub(prev.Time))
		}
	}

	// Every intra-group consecutive gap must be within the threshold.
	for gi, g := range groups {
		for i := 1; i < len(g); i++ {
			if g[i].Time.Sub(g[i-1].Time) > 30*time.Minute {
				t.Errorf("group %d has internal gap > threshold", gi)
			}
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	events := []RawEvent{eventAt(0), eventAt(5), eventAt(40), eventAt(45)}
	first := Split(events, 30*time.Minute)
	second := Split(events, 30*time.Minute)
	if len(first) != len(second) {
		t.Fatalf("group counts differ: %d != %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i]) != len(second[i]) {
			t.Errorf("group %d sizes differ", i)
		}
	}
}

func TestBounds(t *testing.T) {
	events := []RawEvent{eventAt(0), eventAt(5), eventAt(12)}
	start, end := Bounds(events)
	if !start.Equal(eventAt(0).Time) || !end.Equal(eventAt(12).Time) {
		t.Errorf("Bounds = %v..%v, want t=0..t=12", start, end)
	}
	if start.After(end) {
		t.Error("start must not be after end")
	}
}
