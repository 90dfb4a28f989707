package journey

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventParsesCloseKinds(t *testing.T) {
	cases := []struct {
		kind    string
		want    EventType
		title   string
	}{
		{kind: "deal", want: EventDeal, title: "Deal Updated"},
		{kind: "opportunity", want: EventDeal, title: "Deal Updated"},
		{kind: "note", want: EventNote, title: "Note"},
		{kind: "call", want: EventActivity, title: "Call"},
		{kind: "email", want: EventActivity, title: "CRM Activity"},
	}
	for _, tc := range cases {
		event, err := NormalizeEvent(RawRecord{
			ID:        "rec-1",
			Source:    SourceClose,
			Kind:      tc.kind,
			Timestamp: "2026-03-01T10:00:00Z",
		})
		if err != nil {
			t.Fatalf("NormalizeEvent(%s) returned error: %v", tc.kind, err)
		}
		if event.Type != tc.want {
			t.Fatalf("kind %s: expected type %s, got %s", tc.kind, tc.want, event.Type)
		}
		if event.Title != tc.title {
			t.Fatalf("kind %s: expected title %q, got %q", tc.kind, tc.title, event.Title)
		}
	}
}

func TestNormalizeEventCalendlyDefaultsToTriage(t *testing.T) {
	event, err := NormalizeEvent(RawRecord{
		ID:        "mtg-1",
		Source:    SourceCalendly,
		Timestamp: "2026-03-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}
	if event.Type != EventMeeting || event.Subtype != MeetingTriage {
		t.Fatalf("expected triage meeting, got %s/%s", event.Type, event.Subtype)
	}
	if event.Title != "Triage Call" {
		t.Fatalf("expected default triage title, got %q", event.Title)
	}
}

func TestNormalizeEventRejectsUnknownSource(t *testing.T) {
	_, err := NormalizeEvent(RawRecord{ID: "x", Source: "hubspot", Timestamp: "2026-03-01T10:00:00Z"})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) || malformed.Source != "hubspot" {
		t.Fatalf("expected typed error carrying the source, got %#v", err)
	}
}

func TestNormalizeEventRejectsBadTimestamp(t *testing.T) {
	_, err := NormalizeEvent(RawRecord{ID: "x", Source: SourceClose, Timestamp: "yesterday"})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if errors.Is(err, ErrUnknownSource) {
		t.Fatal("a bad payload is not an unknown source")
	}
}

func TestNormalizeEventGeneratesIDWhenMissing(t *testing.T) {
	event, err := NormalizeEvent(RawRecord{Source: SourceTypeform, Timestamp: "2026-03-01"})
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}
	if event.ID == "" {
		t.Fatal("expected generated event id")
	}
}

func TestNormalizeEventFallbackIDIsDeterministic(t *testing.T) {
	record := RawRecord{Source: SourceTypeform, Kind: "intake", Timestamp: "2026-03-01T09:00:00Z", Title: "Intake"}

	first, err := NormalizeEvent(record)
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}
	second, err := NormalizeEvent(record)
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same record must yield the same id, got %q and %q", first.ID, second.ID)
	}

	other := record
	other.Title = "Follow-up"
	third, err := NormalizeEvent(other)
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("different content must yield a different id")
	}
}

func TestNormalizeBatchDropsAndCounts(t *testing.T) {
	records := []RawRecord{
		{ID: "ok-1", Source: SourceClose, Kind: "call", Timestamp: "2026-03-01T10:00:00Z"},
		{ID: "bad-1", Source: SourceClose, Kind: "call", Timestamp: "not-a-time"},
		{ID: "ok-2", Source: SourceTypeform, Timestamp: "2026-03-02T10:00:00Z"},
		{ID: "bad-2", Source: "unknown", Timestamp: "2026-03-02T10:00:00Z"},
	}
	events, stats := NormalizeBatch(records)
	if len(events) != 2 || stats.Accepted != 2 {
		t.Fatalf("expected 2 accepted events, got %d (stats %+v)", len(events), stats)
	}
	if stats.Rejected != 2 || len(stats.Errors) != 2 {
		t.Fatalf("expected 2 rejections with errors, got %+v", stats)
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2026-03-01T10:30:00Z":      time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01T10:30:00":       time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01 10:30:00":       time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01":                time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"1767225600":                time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"1767225600000":             time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"2026-03-01T05:30:00-05:00": time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := parseTimestamp(input)
		if err != nil {
			t.Fatalf("parseTimestamp(%q) returned error: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parseTimestamp(%q) = %s, want %s", input, got, want)
		}
	}
}
