package mmapfile

import "fmt"

// ErrDataCorruption indicates the mapping's bytes do not match what the
// format requires at a given offset: wrong magic, misalignment, or a
// record reaching past the mapped region.
type ErrDataCorruption struct {
	Message  string
	Found    uint64
	Expected uint64
}

func (e *ErrDataCorruption) Error() string {
	return fmt.Sprintf("mmapfile: data corruption: %s (found %d, expected %d)", e.Message, e.Found, e.Expected)
}

// ErrDataNotPresent indicates a stream-region request fell outside
// [start_offset, end_offset).
type ErrDataNotPresent struct {
	Message  string
	Offset   uint64
	Boundary uint64
}

func (e *ErrDataNotPresent) Error() string {
	return fmt.Sprintf("mmapfile: data not present: %s (offset %d, boundary %d)", e.Message, e.Offset, e.Boundary)
}

// ErrWrongStreamVersion indicates the header's stream_version does not
// match what this package writes.
type ErrWrongStreamVersion struct{ Found uint32 }

func (e *ErrWrongStreamVersion) Error() string {
	return fmt.Sprintf("mmapfile: wrong stream version: found %d, want %d", e.Found, StreamVersion)
}

// ErrWrongUserVersion indicates the header's user_version does not match
// the version the caller opened with.
type ErrWrongUserVersion struct {
	Expected uint32
	Found    uint32
}

func (e *ErrWrongUserVersion) Error() string {
	return fmt.Sprintf("mmapfile: wrong user version: found %d, want %d", e.Found, e.Expected)
}

// ErrNumericOverflow indicates an arithmetic precondition (e.g. from <= to)
// was violated by the caller.
type ErrNumericOverflow struct{ Message string }

func (e *ErrNumericOverflow) Error() string {
	return fmt.Sprintf("mmapfile: numeric overflow: %s", e.Message)
}
