package journey

import (
	"strings"
	"time"
)

// StageTransition records one lead-status change. DaysInStage measures the
// time spent in FromStage: since the previous transition, or since journey
// start for the first entry.
type StageTransition struct {
	FromStage   string    `json:"fromStage"`
	ToStage     string    `json:"toStage"`
	DaysInStage float64   `json:"daysInStage"`
	Timestamp   time.Time `json:"timestamp"`
}

// defaultClosedWonStatuses terminate the sales cycle.
var defaultClosedWonStatuses = []string{"closed-won", "won", "customer"}

func isClosedWonStatus(status string, closedWon []string) bool {
	if len(closedWon) == 0 {
		closedWon = defaultClosedWonStatuses
	}
	normalized := normalizeStage(status)
	for _, terminal := range closedWon {
		if normalized == normalizeStage(terminal) {
			return true
		}
	}
	return false
}

func normalizeStage(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// TrackStages walks the ordered status changes and emits one transition per
// change. salesCycleDays is the span from journey start to the first
// closed-won transition, nil when that status was never reached.
//
// Input must be monotonic in time: an out-of-order change yields an
// OutOfOrderTransitionError rather than a silent reorder, because reordering
// would corrupt the days-in-stage arithmetic.
func TrackStages(contactID string, journeyStart *time.Time, changes []StatusChange, closedWon []string) ([]StageTransition, *float64, error) {
	if len(changes) == 0 {
		return nil, nil, nil
	}

	transitions := make([]StageTransition, 0, len(changes))
	var salesCycleDays *float64

	prevStage := ""
	prevAt := changes[0].At
	if journeyStart != nil && journeyStart.Before(changes[0].At) {
		prevAt = *journeyStart
	}

	for i, change := range changes {
		if i > 0 && change.At.Before(changes[i-1].At) {
			return nil, nil, &OutOfOrderTransitionError{
				ContactID: contactID,
				Previous:  changes[i-1].At,
				Next:      change.At,
			}
		}
		transitions = append(transitions, StageTransition{
			FromStage:   prevStage,
			ToStage:     normalizeStage(change.Status),
			DaysInStage: change.At.Sub(prevAt).Hours() / 24,
			Timestamp:   change.At,
		})
		if salesCycleDays == nil && isClosedWonStatus(change.Status, closedWon) {
			start := change.At
			if journeyStart != nil {
				start = *journeyStart
			} else {
				start = changes[0].At
			}
			days := change.At.Sub(start).Hours() / 24
			salesCycleDays = &days
		}
		prevStage = normalizeStage(change.Status)
		prevAt = change.At
	}

	return transitions, salesCycleDays, nil
}

// CurrentStage returns the stage a contact sits in after the final transition.
func CurrentStage(transitions []StageTransition) string {
	if len(transitions) == 0 {
		return ""
	}
	return transitions[len(transitions)-1].ToStage
}
