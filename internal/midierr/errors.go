// Package midierr declares the sentinel error kinds shared by the codec,
// time map, and player. Call sites wrap these with fmt.Errorf("...: %w", Err...)
// so callers can still errors.Is/errors.As against the kind.
package midierr

import "errors"

var (
	// ErrIO covers file open/read/write failures from the underlying os calls.
	ErrIO = errors.New("midi: i/o error")

	// ErrTruncated means the buffer or chunk ended before decoding finished.
	ErrTruncated = errors.New("midi: truncated data")

	// ErrBadHeader means MThd is missing, duplicated, the wrong size, or
	// conflicts with format 0 (which requires exactly one track).
	ErrBadHeader = errors.New("midi: bad header chunk")

	// ErrUnknownEventType means a status byte has no decoder; fatal for the
	// track currently being decoded.
	ErrUnknownEventType = errors.New("midi: unknown event type")

	// ErrMalformedVLQ means a variable-length quantity ran past the buffer
	// or exceeded the 28-bit / 4-byte SMF limit.
	ErrMalformedVLQ = errors.New("midi: malformed variable-length quantity")

	// ErrLengthMismatch means a meta-event's declared length contradicts its
	// fixed size. Fatal only for SetTempo/SequenceNumber, whose width is
	// semantic; callers decide whether to treat it as fatal.
	ErrLengthMismatch = errors.New("midi: meta-event length mismatch")

	// ErrInvariantViolation covers cross-cutting invariant breaks, e.g.
	// transposing across a major/minor key boundary.
	ErrInvariantViolation = errors.New("midi: invariant violation")
)
