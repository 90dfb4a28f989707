package journey

import (
	"testing"
	"time"
)

func eventAt(id string, source Source, ts time.Time) TimelineEvent {
	return TimelineEvent{ID: id, Type: EventActivity, Source: source, Timestamp: ts}
}

func TestBuildTimelineOrdersAndDerivesBoundaries(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []TimelineEvent{
		eventAt("c", SourceClose, base.Add(48*time.Hour)),
		eventAt("a", SourceTypeform, base),
		eventAt("b", SourceCalendly, base.Add(24*time.Hour)),
	}
	timeline := BuildTimeline(events)

	if timeline.TotalTouchpoints != 3 {
		t.Fatalf("expected 3 touchpoints, got %d", timeline.TotalTouchpoints)
	}
	if timeline.Events[0].ID != "a" || timeline.Events[2].ID != "c" {
		t.Fatalf("expected chronological order, got %#v", timeline.Events)
	}
	if !timeline.FirstTouch.Equal(base) || !timeline.LastTouch.Equal(base.Add(48*time.Hour)) {
		t.Fatalf("unexpected boundaries: first=%v last=%v", timeline.FirstTouch, timeline.LastTouch)
	}
	if timeline.Sources[SourceClose] != 1 || timeline.Sources[SourceCalendly] != 1 || timeline.Sources[SourceTypeform] != 1 {
		t.Fatalf("unexpected source counts: %#v", timeline.Sources)
	}
}

func TestBuildTimelineBreaksTiesByID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeline := BuildTimeline([]TimelineEvent{
		eventAt("zz", SourceClose, ts),
		eventAt("aa", SourceClose, ts),
	})
	if timeline.Events[0].ID != "aa" || timeline.Events[1].ID != "zz" {
		t.Fatalf("expected id tie-break, got %#v", timeline.Events)
	}
}

func TestBuildTimelineIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []TimelineEvent{
		eventAt("b", SourceClose, ts),
		eventAt("a", SourceClose, ts),
		eventAt("c", SourceCalendly, ts.Add(time.Hour)),
	}
	first := BuildTimeline(events)
	second := BuildTimeline([]TimelineEvent{events[2], events[0], events[1]})
	for i := range first.Events {
		if first.Events[i].ID != second.Events[i].ID {
			t.Fatalf("expected identical order regardless of input order, got %v vs %v",
				first.Events[i].ID, second.Events[i].ID)
		}
	}
}

func TestBuildTimelineEmptyInput(t *testing.T) {
	timeline := BuildTimeline(nil)
	if timeline.FirstTouch != nil || timeline.LastTouch != nil {
		t.Fatal("expected nil boundaries for empty timeline")
	}
	if timeline.Sources == nil {
		t.Fatal("expected non-nil sources map")
	}
	if timeline.JourneyLengthDays() != nil {
		t.Fatal("expected nil journey length")
	}
	if timeline.AvgDaysBetweenTouches() != nil {
		t.Fatal("expected nil avg gap")
	}
}

func TestFilterEventsByScope(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []TimelineEvent{
		eventAt("before", SourceClose, base.AddDate(0, 0, -10)),
		eventAt("inside", SourceClose, base),
		eventAt("after", SourceClose, base.AddDate(0, 0, 10)),
	}
	events[1].UserID = "u1"

	scope := Scope{Range: DateRange{From: base.AddDate(0, 0, -1), To: base.AddDate(0, 0, 1)}}
	got := FilterEvents(events, scope)
	if len(got) != 1 || got[0].ID != "inside" {
		t.Fatalf("expected only the in-range event, got %#v", got)
	}

	scope.UserID = "u2"
	if got := FilterEvents(events, scope); len(got) != 0 {
		t.Fatalf("expected user filter to drop attributed events, got %#v", got)
	}

	// Events without a user id survive user filtering.
	events[1].UserID = ""
	if got := FilterEvents(events, scope); len(got) != 1 {
		t.Fatalf("expected unattributed event to pass, got %#v", got)
	}
}

func TestTimelineTemporalMetrics(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	timeline := BuildTimeline([]TimelineEvent{
		eventAt("a", SourceClose, base),
		eventAt("b", SourceClose, base.AddDate(0, 0, 2)),
		eventAt("c", SourceClose, base.AddDate(0, 0, 6)),
	})

	length := timeline.JourneyLengthDays()
	if length == nil || *length != 6 {
		t.Fatalf("expected 6 day journey, got %v", length)
	}
	avg := timeline.AvgDaysBetweenTouches()
	if avg == nil || *avg != 3 {
		t.Fatalf("expected 3 day average gap, got %v", avg)
	}
}

func TestAssignedUsersFirstAppearanceOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []TimelineEvent{
		{ID: "1", Timestamp: base, UserName: "Dana"},
		{ID: "2", Timestamp: base.Add(time.Hour), UserID: "u-lee"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), UserName: "Dana"},
		{ID: "4", Timestamp: base.Add(3 * time.Hour)},
	}
	timeline := BuildTimeline(events)
	users := timeline.AssignedUsers()
	if len(users) != 2 || users[0] != "Dana" || users[1] != "u-lee" {
		t.Fatalf("expected [Dana u-lee], got %#v", users)
	}
}
