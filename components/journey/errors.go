package journey

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Typed errors below match them via errors.Is.
var (
	ErrMalformedRecord       = errors.New("journey: malformed record")
	ErrOutOfOrderTransition  = errors.New("journey: out-of-order stage transition")
	ErrUnknownSource         = errors.New("journey: unknown record source")
	errMissingContactID      = errors.New("journey: contact id is required")
	errMissingFormula        = errors.New("journey: formula id or expression is required")
	errFormulaDisabled       = errors.New("journey: formula is disabled")
	errInvalidFieldID        = errors.New("journey: field id is required")
	errInvalidFormulaID      = errors.New("journey: formula id is required")
)

// MalformedRecordError marks a record the normalizer rejected. Rejections are
// recoverable: the record is dropped and counted, the batch keeps going.
type MalformedRecordError struct {
	RecordID string
	Source   Source
	Reason   string
	cause    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("journey: malformed %s record %q: %s", e.Source, e.RecordID, e.Reason)
}

// Is lets callers match the error against ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Unwrap exposes the rejection class, so callers can tell an unrecognized
// source (ErrUnknownSource) apart from a bad payload.
func (e *MalformedRecordError) Unwrap() error { return e.cause }

// OutOfOrderTransitionError marks a status-change sequence that regressed in
// time. Reordering would corrupt days-in-stage, so the caller gets the error
// as a per-contact data-quality flag instead.
type OutOfOrderTransitionError struct {
	ContactID string
	Previous  time.Time
	Next      time.Time
}

func (e *OutOfOrderTransitionError) Error() string {
	return fmt.Sprintf("journey: contact %s: status change at %s precedes %s",
		e.ContactID, e.Next.Format(time.RFC3339), e.Previous.Format(time.RFC3339))
}

// Is lets callers match the error against ErrOutOfOrderTransition.
func (e *OutOfOrderTransitionError) Is(target error) bool {
	return target == ErrOutOfOrderTransition
}
