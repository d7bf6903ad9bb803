package eventlog

import (
	"github.com/flashlog/eventlog/format"
)

// cascade builds branch blocks over runs of FanOut consecutive
// equal-level blocks, starting from the block just appended at current
// (a freshly flushed leaf). It repeats at increasing levels until a run
// of fewer than FanOut blocks is found, and returns the offset of the
// newest block that now exists in the chain - current itself if no
// branch was built, or the topmost emitted branch otherwise.
func (ef *EventFile) cascade(current uint64) (uint64, error) {
	level := uint32(1)

	for {
		type child struct {
			offset, startIdx uint64
		}
		var children []child
		var firstEndIdx uint64
		prevIdx := format.NoPrevBlock

		first := true
		for entry, err := range searchIter(ef.mf, current) {
			if err != nil {
				return 0, err
			}
			if entry.Header.Level() >= level {
				prevIdx = entry.Offset
				break
			}

			startIdx, endIdx, err := ef.blockSpan(entry.Offset)
			if err != nil {
				return 0, err
			}
			if first {
				firstEndIdx = endIdx
				first = false
			}
			children = append(children, child{offset: entry.Offset, startIdx: startIdx})
		}

		if len(children) < FanOut {
			return current, nil
		}

		// children were collected newest-first; store ascending by start_idx.
		for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
			children[i], children[j] = children[j], children[i]
		}

		nextCurrent := ef.mf.EndOffset()
		length := format.BranchHeaderLen + FanOut*format.IndexEntryLen

		if err := ef.mf.StreamAppend(format.MagicBlockHeader, format.BlockHeaderPayloadLen, func(buf []byte) {
			format.NewBlockHeader(buf, current, level, uint32(length))
		}); err != nil {
			return 0, err
		}
		if err := ef.mf.StreamAppend(format.MagicBranchHeader, format.BranchHeaderPayloadLen, func(buf []byte) {
			format.NewBranchHeader(buf, prevIdx, firstEndIdx)
		}); err != nil {
			return 0, err
		}

		indexBytes := make([]byte, FanOut*format.IndexEntryLen)
		for i, c := range children {
			format.NewIndexEntry(indexBytes[i*format.IndexEntryLen:(i+1)*format.IndexEntryLen], c.offset, c.startIdx)
		}
		if err := ef.mf.StreamAppendBytes(indexBytes); err != nil {
			return 0, err
		}

		current = nextCurrent
		level++
	}
}
