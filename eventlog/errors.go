package eventlog

import "fmt"

// ErrWrongOffset is surfaced by the auxiliary raw segment log variant
// (package rawlog) on reopen mismatch; kept here so callers that
// type-switch across both packages share one taxonomy.
type ErrWrongOffset struct {
	Expected, Found uint64
}

func (e *ErrWrongOffset) Error() string {
	return fmt.Sprintf("eventlog: wrong offset: expected %d, found %d", e.Expected, e.Found)
}

// ErrNumericOverflow indicates a size computation would not fit its
// target type, e.g. a compressed leaf exceeding uint32 length.
type ErrNumericOverflow struct{ Message string }

func (e *ErrNumericOverflow) Error() string {
	return fmt.Sprintf("eventlog: numeric overflow: %s", e.Message)
}

// ErrWriteBeyondEnd indicates an attempt to write past the current file
// end without first growing the staging area.
type ErrWriteBeyondEnd struct{ Offset, Len uint64 }

func (e *ErrWriteBeyondEnd) Error() string {
	return fmt.Sprintf("eventlog: write beyond end: offset %d len %d", e.Offset, e.Len)
}
