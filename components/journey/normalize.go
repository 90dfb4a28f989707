package journey

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// normalizeFunc converts one raw platform record into a TimelineEvent.
type normalizeFunc func(raw RawRecord, ts time.Time) TimelineEvent

// sourceAdapters dispatches by source tag. Adding a platform means adding one
// entry here, not touching the pipeline.
var sourceAdapters = map[Source]normalizeFunc{
	SourceClose:    normalizeClose,
	SourceCalendly: normalizeCalendly,
	SourceTypeform: normalizeTypeform,
}

// BatchStats tallies the outcome of a NormalizeBatch run.
type BatchStats struct {
	Accepted int
	Rejected int
	Errors   []error
}

// NormalizeEvent converts a raw record into the canonical event shape. It
// returns a MalformedRecordError when the source is unrecognized or the
// timestamp cannot be parsed.
func NormalizeEvent(raw RawRecord) (TimelineEvent, error) {
	adapter, ok := sourceAdapters[raw.Source]
	if !ok {
		return TimelineEvent{}, &MalformedRecordError{
			RecordID: raw.ID,
			Source:   raw.Source,
			Reason:   "unrecognized source",
			cause:    ErrUnknownSource,
		}
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return TimelineEvent{}, &MalformedRecordError{
			RecordID: raw.ID,
			Source:   raw.Source,
			Reason:   "unparseable timestamp " + strconv.Quote(raw.Timestamp),
		}
	}
	event := adapter(raw, ts)
	if event.ID == "" {
		event.ID = fallbackEventID(raw, ts)
	}
	return event, nil
}

// fallbackEventID derives a stable id for records the platform shipped without
// one. Content-addressed so rebuilding the same bundle yields identical events
// and the id tie-break in the timeline sort stays deterministic.
func fallbackEventID(raw RawRecord, ts time.Time) string {
	seed := strings.Join([]string{
		string(raw.Source),
		raw.Kind,
		ts.Format(time.RFC3339Nano),
		raw.Title,
		raw.Body,
		raw.UserID,
	}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// NormalizeBatch converts every record it can and drops the rest, counting
// rejections instead of aborting the batch.
func NormalizeBatch(records []RawRecord) ([]TimelineEvent, BatchStats) {
	events := make([]TimelineEvent, 0, len(records))
	var stats BatchStats
	for _, raw := range records {
		event, err := NormalizeEvent(raw)
		if err != nil {
			stats.Rejected++
			stats.Errors = append(stats.Errors, err)
			continue
		}
		stats.Accepted++
		events = append(events, event)
	}
	return events, stats
}

func normalizeClose(raw RawRecord, ts time.Time) TimelineEvent {
	kind := strings.ToLower(strings.TrimSpace(raw.Kind))
	eventType := EventActivity
	subtype := kind
	title := raw.Title
	switch kind {
	case "deal", "opportunity":
		eventType = EventDeal
		if title == "" {
			title = "Deal Updated"
		}
	case "note":
		eventType = EventNote
		if title == "" {
			title = "Note"
		}
	case "call":
		subtype = "call"
		if title == "" {
			title = "Call"
		}
	default:
		if title == "" {
			title = "CRM Activity"
		}
	}
	return TimelineEvent{
		ID:          raw.ID,
		Type:        eventType,
		Subtype:     subtype,
		Title:       title,
		Description: raw.Body,
		Timestamp:   ts,
		Source:      SourceClose,
		SourceID:    raw.ID,
		UserID:      raw.UserID,
		UserName:    raw.UserName,
	}
}

func normalizeCalendly(raw RawRecord, ts time.Time) TimelineEvent {
	subtype := strings.ToLower(strings.TrimSpace(raw.Kind))
	title := raw.Title
	if subtype == "" {
		// Untyped meetings default to the top of the call funnel.
		subtype = MeetingTriage
	}
	if title == "" {
		switch subtype {
		case MeetingSolution:
			title = "Solution Call"
		default:
			title = "Triage Call"
		}
	}
	return TimelineEvent{
		ID:          raw.ID,
		Type:        EventMeeting,
		Subtype:     subtype,
		Title:       title,
		Description: raw.Body,
		Timestamp:   ts,
		Source:      SourceCalendly,
		SourceID:    raw.ID,
		UserID:      raw.UserID,
		UserName:    raw.UserName,
	}
}

func normalizeTypeform(raw RawRecord, ts time.Time) TimelineEvent {
	title := raw.Title
	if title == "" {
		title = "Form Submission"
	}
	return TimelineEvent{
		ID:          raw.ID,
		Type:        EventForm,
		Subtype:     strings.ToLower(strings.TrimSpace(raw.Kind)),
		Title:       title,
		Description: raw.Body,
		Timestamp:   ts,
		Source:      SourceTypeform,
		SourceID:    raw.ID,
		UserID:      raw.UserID,
		UserName:    raw.UserName,
	}
}

// timestampLayouts are tried in order. Every parse result is converted to UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, &time.ParseError{Value: value, Message: "empty timestamp"}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), nil
		}
	}
	// Epoch seconds or milliseconds, as some webhook payloads deliver.
	if unix, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if unix > 1e12 {
			return time.UnixMilli(unix).UTC(), nil
		}
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, &time.ParseError{Value: value, Message: "no matching layout"}
}
