package eventlog

import (
	"encoding/binary"

	"github.com/flashlog/eventlog/format"
)

// prepStaging clears and re-initializes the staging area after a
// compression flush (or at creation of a fresh file).
func (ef *EventFile) prepStaging(lastBlock, startIdx uint64) error {
	ef.mf.ClearStaging()

	need := format.StagingHeaderLen + 4*int(ef.blockEventLimit) + ef.compressionThreshold
	if err := ef.mf.EnsureStagingLen(need); err != nil {
		return err
	}

	if err := ef.mf.StagingPut(0, format.MagicStagingHeader, format.StagingHeaderPayloadLen, func(buf []byte) {
		format.NewStagingHeader(buf, lastBlock, startIdx, 0, ef.blockEventLimit)
	}); err != nil {
		return err
	}
	return ef.mf.Flush()
}

func (ef *EventFile) stagingHeader() (format.StagingHeader, error) {
	return ef.mf.StagingStagingHeaderAt(0)
}

// jumpSlotOffset is the staging-relative byte offset of jump-table slot i.
func jumpSlotOffset(i uint32) int {
	return format.StagingHeaderLen + 4*int(i)
}

func (ef *EventFile) readJumpSlot(i uint32) (uint32, error) {
	off := jumpSlotOffset(i)
	b, err := ef.mf.StagingBytes(off, off+4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (ef *EventFile) writeJumpSlot(i, value uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], value)
	return ef.mf.StagingWrite(jumpSlotOffset(i), buf[:])
}

// blockSpan returns the [start_idx, end_idx) event-index interval
// covered by the subtree rooted at the block at offset, whether it is a
// leaf or a branch.
func (ef *EventFile) blockSpan(offset uint64) (startIdx, endIdx uint64, err error) {
	block, err := ef.mf.StreamBlockHeaderAt(offset)
	if err != nil {
		return 0, 0, err
	}
	if block.Level() == 0 {
		leaf, err := ef.mf.StreamLeafHeaderAt(offset + format.BlockHeaderLen)
		if err != nil {
			return 0, 0, err
		}
		return leaf.StartIdx(), leaf.StartIdx() + uint64(leaf.Count()), nil
	}
	branch, err := ef.mf.StreamBranchHeaderAt(offset + format.BlockHeaderLen)
	if err != nil {
		return 0, 0, err
	}
	firstChild, err := ef.mf.StreamIndexEntryAt(offset + format.BlockHeaderLen + format.BranchHeaderLen)
	if err != nil {
		return 0, 0, err
	}
	return firstChild.StartIdx(), branch.EndIdx(), nil
}
