package eventlog

import (
	"math"

	"github.com/flashlog/eventlog/codec"
	"github.com/flashlog/eventlog/format"
)

// Append stores event at the next event index. It may trigger a
// compression flush (and, transitively, a branch cascade) if the staging
// area has accumulated enough events or bytes. Not safe for concurrent
// use - see Appender for a serialized wrapper.
func (ef *EventFile) Append(event []byte) error {
	hdr, err := ef.stagingHeader()
	if err != nil {
		return err
	}
	count := hdr.Count()
	capacity := hdr.Capacity()

	offset, err := ef.readJumpSlot(count)
	if err != nil {
		return err
	}

	eventStart := leafEventStart(capacity)
	start := eventStart + int(offset)
	newEnd := offset + uint32(len(event))

	if err := ef.mf.EnsureStagingLen(start + len(event)); err != nil {
		return err
	}
	if err := ef.mf.StagingWrite(start, event); err != nil {
		return err
	}
	if err := ef.writeJumpSlot(count+1, newEnd); err != nil {
		return err
	}

	hdr, err = ef.stagingHeader()
	if err != nil {
		return err
	}
	hdr.SetCount(count + 1)

	if count+2 >= capacity || newEnd >= uint32(ef.compressionThreshold) {
		return ef.compress()
	}
	return nil
}

func (ef *EventFile) compress() error {
	hdr, err := ef.stagingHeader()
	if err != nil {
		return err
	}
	lastBlock := hdr.LastBlock()
	startIdx := hdr.StartIdx()
	count := hdr.Count()
	capacity := hdr.Capacity()

	jumpBytes, err := ef.mf.StagingBytes(format.StagingHeaderLen, format.StagingHeaderLen+4*int(count+1))
	if err != nil {
		return err
	}
	lastJump, err := ef.readJumpSlot(count)
	if err != nil {
		return err
	}
	eventStart := leafEventStart(capacity)
	eventBytes, err := ef.mf.StagingBytes(eventStart, eventStart+int(lastJump))
	if err != nil {
		return err
	}

	uncompressed := make([]byte, 0, len(jumpBytes)+len(eventBytes))
	uncompressed = append(uncompressed, jumpBytes...)
	uncompressed = append(uncompressed, eventBytes...)

	compressed, err := codec.Compress(uncompressed)
	if err != nil {
		return err
	}
	length := format.LeafHeaderLen + len(compressed)
	if length > math.MaxUint32 {
		return &ErrNumericOverflow{Message: "compressed leaf length exceeds uint32"}
	}

	current := ef.mf.EndOffset()

	if err := ef.mf.StreamAppend(format.MagicBlockHeader, format.BlockHeaderPayloadLen, func(buf []byte) {
		format.NewBlockHeader(buf, lastBlock, 0, uint32(length))
	}); err != nil {
		return err
	}
	if err := ef.mf.StreamAppend(format.MagicLeafHeader, format.LeafHeaderPayloadLen, func(buf []byte) {
		format.NewLeafHeader(buf, startIdx, count)
	}); err != nil {
		return err
	}
	if err := ef.mf.StreamAppendBytes(compressed); err != nil {
		return err
	}

	newLastBlock, err := ef.cascade(current)
	if err != nil {
		return err
	}

	return ef.prepStaging(newLastBlock, startIdx+uint64(count))
}
