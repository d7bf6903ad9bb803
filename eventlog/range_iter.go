package eventlog

import (
	"encoding/binary"

	"github.com/flashlog/eventlog/cache"
	"github.com/flashlog/eventlog/codec"
	"github.com/flashlog/eventlog/format"
)

// LeafSlice is a window over one block's (or the staging area's)
// decoded event bytes, restricted to [startIdx, endIdx] relative to that
// block's own jump table.
type LeafSlice struct {
	bytes           []byte
	base            int
	startIdx, endIdx, count uint32
}

// Events returns the slice's events in index order. Each returned slice
// aliases the decompressed (or staging) buffer and must not be retained
// past the next call that may evict it from the cache.
func (l LeafSlice) Events() [][]byte {
	if l.count == 0 || l.startIdx > l.endIdx {
		return nil
	}
	out := make([][]byte, 0, l.endIdx-l.startIdx+1)
	for pos := l.startIdx; pos <= l.endIdx; pos++ {
		jumpPos := 4 * int(pos)
		from := binary.BigEndian.Uint32(l.bytes[jumpPos : jumpPos+4])
		to := binary.BigEndian.Uint32(l.bytes[jumpPos+4 : jumpPos+8])
		out = append(out, l.bytes[l.base+int(from):l.base+int(to)])
	}
	return out
}

// RangeIter yields LeafSlices covering a requested, inclusive event-index
// range, oldest first. Construct with EventFile.Iter or EventFile.IterAll.
type RangeIter struct {
	ef                   *EventFile
	fromReq, toReq       uint64
	todo                 []uint64
	stagingDone          bool
	done                 bool
	err                  error
}

// Iter builds a range iterator over the inclusive event-index interval
// [from, to]. An empty or inverted range yields no slices.
func (ef *EventFile) Iter(from, to uint64) (*RangeIter, error) {
	r := &RangeIter{ef: ef, fromReq: from, toReq: to}
	if from > to {
		r.done = true
		return r, nil
	}

	hdr, err := ef.stagingHeader()
	if err != nil {
		return nil, err
	}

	for entry, err := range searchIter(ef.mf, hdr.LastBlock()) {
		if err != nil {
			return nil, err
		}
		startIdx, endIdx, err := ef.blockSpan(entry.Offset)
		if err != nil {
			return nil, err
		}
		if startIdx <= to && from < endIdx {
			r.todo = append(r.todo, entry.Offset)
		}
	}
	return r, nil
}

// IterAll is shorthand for the full event-index range.
func (ef *EventFile) IterAll() (*RangeIter, error) {
	return ef.Iter(0, ^uint64(0))
}

// Err returns the first error encountered, if Next ever returned false
// before the iterator was exhausted by reaching the end of the range.
func (r *RangeIter) Err() error { return r.err }

// Next returns the next LeafSlice in ascending event-index order, or
// ok=false once the range is exhausted (check Err for failure).
func (r *RangeIter) Next() (LeafSlice, bool) {
	if r.done {
		return LeafSlice{}, false
	}
	if r.fromReq > r.toReq {
		r.done = true
		return LeafSlice{}, false
	}

	for {
		if len(r.todo) == 0 {
			return r.stagingSlice()
		}

		offset := r.todo[len(r.todo)-1]
		block, err := r.ef.mf.StreamBlockHeaderAt(offset)
		if err != nil {
			r.fail(err)
			return LeafSlice{}, false
		}

		if block.Level() == 0 {
			r.todo = r.todo[:len(r.todo)-1]
			slice, err := r.leafSlice(offset, block)
			if err != nil {
				r.fail(err)
				return LeafSlice{}, false
			}
			return slice, true
		}

		branch, err := r.ef.mf.StreamBranchHeaderAt(offset + format.BlockHeaderLen)
		if err != nil {
			r.fail(err)
			return LeafSlice{}, false
		}
		if branch.EndIdx() <= r.fromReq {
			r.todo = r.todo[:len(r.todo)-1]
			continue
		}

		childCount := (int(block.Length()) - format.BranchHeaderPayloadLen) / format.IndexEntryLen
		entryBase := offset + format.BlockHeaderLen + format.BranchHeaderLen
		chosen, err := r.ef.mf.StreamIndexEntryAt(entryBase)
		if err != nil {
			r.fail(err)
			return LeafSlice{}, false
		}
		for i := 1; i < childCount; i++ {
			next, err := r.ef.mf.StreamIndexEntryAt(entryBase + uint64(i*format.IndexEntryLen))
			if err != nil {
				r.fail(err)
				return LeafSlice{}, false
			}
			if next.StartIdx() > r.fromReq {
				break
			}
			chosen = next
		}
		// The branch stays on the stack beneath its child and is popped
		// once its end_idx is no longer above fromReq.
		r.todo = append(r.todo, chosen.Offset())
	}
}

func (r *RangeIter) fail(err error) {
	r.err = err
	r.done = true
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func (r *RangeIter) leafSlice(offset uint64, block format.BlockHeader) (LeafSlice, error) {
	leaf, err := r.ef.mf.StreamLeafHeaderAt(offset + format.BlockHeaderLen)
	if err != nil {
		return LeafSlice{}, err
	}
	bytes, err := r.ef.decompressLeaf(offset, block, leaf)
	if err != nil {
		return LeafSlice{}, err
	}

	count := leaf.Count()
	startIdx := saturatingSub(r.fromReq, leaf.StartIdx())
	endIdx := saturatingSub(r.toReq, leaf.StartIdx())
	if count > 0 && endIdx > uint64(count-1) {
		endIdx = uint64(count - 1)
	}

	r.fromReq = leaf.StartIdx() + uint64(count)

	return LeafSlice{
		bytes:    bytes,
		base:     (int(count) + 1) * 4,
		startIdx: uint32(startIdx),
		endIdx:   uint32(endIdx),
		count:    count,
	}, nil
}

func (r *RangeIter) stagingSlice() (LeafSlice, bool) {
	r.done = true
	if r.stagingDone {
		return LeafSlice{}, false
	}
	r.stagingDone = true

	hdr, err := r.ef.stagingHeader()
	if err != nil {
		r.err = err
		return LeafSlice{}, false
	}
	count := hdr.Count()
	stagingStart := hdr.StartIdx()
	if r.fromReq < stagingStart || r.fromReq >= stagingStart+uint64(count) {
		return LeafSlice{}, false
	}

	capacity := hdr.Capacity()
	bytes, err := r.ef.mf.StagingBytes(format.StagingHeaderLen, r.ef.mf.StagingLen())
	if err != nil {
		r.err = err
		return LeafSlice{}, false
	}

	startIdx := saturatingSub(r.fromReq, stagingStart)
	endIdx := saturatingSub(r.toReq, stagingStart)
	if count > 0 && endIdx > uint64(count-1) {
		endIdx = uint64(count - 1)
	}

	return LeafSlice{
		bytes:    bytes,
		base:     int(capacity) * 4,
		startIdx: uint32(startIdx),
		endIdx:   uint32(endIdx),
		count:    count,
	}, true
}

func (ef *EventFile) decompressLeaf(offset uint64, block format.BlockHeader, leaf format.LeafHeader) ([]byte, error) {
	key := cache.Key{FileID: ef.id, Offset: offset}
	if v, ok := ef.cache.Get(key); ok {
		return v, nil
	}

	compressedLen := int(block.Length()) - format.LeafHeaderLen
	start := offset + format.BlockHeaderLen + format.LeafHeaderLen
	compressed, err := ef.mf.StreamBytes(start, start+uint64(compressedLen))
	if err != nil {
		return nil, err
	}
	decompressed, err := codec.Decompress(compressed)
	if err != nil {
		return nil, err
	}
	ef.cache.Put(key, decompressed, false)
	return decompressed, nil
}
