package processing

import "github.com/pkg/errors"

var (
	// ErrMalformedRange is returned when range end precedes range start or bucket size is not usable.
	ErrMalformedRange = errors.New("malformed range")
	// ErrUnresolvedSchemaReference is returned when an event references a schema which wasn't carried by an earlier event of the batch.
	ErrUnresolvedSchemaReference = errors.New("unresolved schema reference")
	// ErrSeriesAlignmentMismatch is returned when parallel sequences (results and options, timestamps and values) differ in length.
	ErrSeriesAlignmentMismatch = errors.New("series alignment mismatch")
	// ErrMalformedTimestamp is returned when a distribution key , event timestamp or result time cell can't be parsed.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrInvalidRollUp is returned when roll-up multiplier is less than 1.
	ErrInvalidRollUp = errors.New("invalid roll-up parameters")
)
