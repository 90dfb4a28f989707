package journey

import (
	"sort"
	"time"
)

// Timeline is the ordered, read-only projection of one contact's touchpoints.
type Timeline struct {
	Events           []TimelineEvent
	FirstTouch       *time.Time
	LastTouch        *time.Time
	TotalTouchpoints int
	Sources          map[Source]int
}

// BuildTimeline stable-sorts events by timestamp (ties broken by ID ascending)
// and derives the boundary facts. Empty input yields nil touch boundaries and
// an empty sources map, never an error.
func BuildTimeline(events []TimelineEvent) Timeline {
	ordered := make([]TimelineEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	t := Timeline{
		Events:           ordered,
		TotalTouchpoints: len(ordered),
		Sources:          make(map[Source]int, 3),
	}
	for _, event := range ordered {
		t.Sources[event.Source]++
	}
	if len(ordered) > 0 {
		first := ordered[0].Timestamp
		last := ordered[len(ordered)-1].Timestamp
		t.FirstTouch = &first
		t.LastTouch = &last
	}
	return t
}

// FilterEvents keeps events matching the scope's date range and user filter.
func FilterEvents(events []TimelineEvent, scope Scope) []TimelineEvent {
	filtered := make([]TimelineEvent, 0, len(events))
	for _, event := range events {
		if !scope.Range.Contains(event.Timestamp) {
			continue
		}
		if scope.UserID != "" && event.UserID != "" && event.UserID != scope.UserID {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// JourneyLengthDays returns last minus first touch in days; nil with fewer
// than one event. Never negative by construction.
func (t Timeline) JourneyLengthDays() *float64 {
	if t.FirstTouch == nil || t.LastTouch == nil {
		return nil
	}
	days := t.LastTouch.Sub(*t.FirstTouch).Hours() / 24
	return &days
}

// AvgDaysBetweenTouches returns the mean gap between consecutive touchpoints;
// nil with fewer than two events.
func (t Timeline) AvgDaysBetweenTouches() *float64 {
	if len(t.Events) < 2 {
		return nil
	}
	total := t.LastTouch.Sub(*t.FirstTouch).Hours() / 24
	avg := total / float64(len(t.Events)-1)
	return &avg
}

// AssignedUsers returns the distinct user names seen on the timeline, in order
// of first appearance.
func (t Timeline) AssignedUsers() []string {
	seen := make(map[string]struct{}, 4)
	var users []string
	for _, event := range t.Events {
		name := event.UserName
		if name == "" {
			name = event.UserID
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		users = append(users, name)
	}
	return users
}
