package rawlog

import (
	"fmt"
	"io"
	"iter"
	"os"
)

// Frame is one decoded record from a raw segment file.
type Frame struct {
	Index     uint64
	Signature []byte
	Data      []byte
}

// Reader reads frames back out of a single raw segment file, in order,
// for recovery tooling - the auxiliary log exists precisely so this
// reading can happen without touching the compressed mmap engine.
type Reader struct {
	f *os.File
}

// OpenReader opens a raw segment file at path for sequential reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rawlog: open %s: %w", path, err)
	}
	return &Reader{f: f}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// All yields every frame in the segment, starting at Index == the
// segment's header offset. Decode errors other than io.EOF are yielded
// once, paired with a zero Frame, and terminate the sequence.
func (r *Reader) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		if _, err := r.f.Seek(segmentHeaderLen, io.SeekStart); err != nil {
			yield(Frame{}, err)
			return
		}
		var hdr [segmentHeaderLen]byte
		if _, err := r.f.ReadAt(hdr[:], 0); err != nil {
			yield(Frame{}, err)
			return
		}
		var index uint64
		for i := 0; i < 8; i++ {
			index = index<<8 | uint64(hdr[i])
		}

		for {
			var lenBuf [frameHeaderLen]byte
			if _, err := io.ReadFull(r.f, lenBuf[:]); err != nil {
				if err == io.EOF {
					return
				}
				yield(Frame{}, err)
				return
			}
			paddedLen := uint32(lenBuf[0])<<24 | uint32(lenBuf[1])<<16 | uint32(lenBuf[2])<<8 | uint32(lenBuf[3])
			packed := uint16(lenBuf[4])<<8 | uint16(lenBuf[5])
			sigLen := packed >> 2
			padding := packed & 3

			rest := make([]byte, int(paddedLen)-frameHeaderLen)
			if _, err := io.ReadFull(r.f, rest); err != nil {
				yield(Frame{}, err)
				return
			}
			dataLen := len(rest) - int(padding) - int(sigLen)

			frame := Frame{
				Index:     index,
				Signature: rest[:sigLen],
				Data:      rest[sigLen : sigLen+uint16(dataLen)],
			}
			if !yield(frame, nil) {
				return
			}
			index++
		}
	}
}
