package capsule

import "time"

// DefaultGap is the idle-gap threshold that separates focus sessions.
const DefaultGap = 30 * time.Minute

// Split partitions a chronologically sorted event sequence into contiguous
// groups separated by idle gaps exceeding the threshold. Within a group,
// consecutive events are at most gap apart; between adjacent groups the
// boundary gap exceeds it.
//
// An empty input yields no groups. A single event yields one group of size 1;
// callers decide whether singleton groups are worth summarizing.
func Split(events []RawEvent, gap time.Duration) [][]RawEvent {
	if len(events) == 0 {
		return nil
	}

	groups := make([][]RawEvent, 0, 1)
	current := []RawEvent{events[0]}

	for i := 1; i < len(events); i++ {
		if events[i].Time.Sub(events[i-1].Time) > gap {
			groups = append(groups, current)
			current = []RawEvent{events[i]}
		} else {
			current = append(current, events[i])
		}
	}

	return append(groups, current)
}

// Bounds returns the min and max timestamps of a non-empty event group.
// The group is assumed chronologically sorted, as produced by Split.
func Bounds(events []RawEvent) (start, end time.Time) {
	return events[0].Time, events[len(events)-1].Time
}
