// Package codec wraps the block compression collaborator the event log
// uses to shrink finalized leaves before they are written into the
// stream region (branch index arrays are written uncompressed). Compression is one-shot from the caller's
// point of view (a whole block's bytes go in, a whole compressed blob
// comes out) but streams internally, matching the teacher pack's own use
// of klauspost/compress for bulk data (distr1-distri).
package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// encoderOpts controls the compression/speed tradeoff; the event log
// always compresses whole, already-buffered blocks, so a higher level
// than zstd's SpeedDefault is worth the latency.
var encoderOpts = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedBetterCompression)}

// Compress encodes src as a single zstd frame.
func Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, encoderOpts...)
	if err != nil {
		return nil, fmt.Errorf("codec: new encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

// Decompress inflates a single zstd frame produced by Compress.
func Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: new decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	return out, nil
}
