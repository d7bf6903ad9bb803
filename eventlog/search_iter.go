package eventlog

import (
	"iter"

	"github.com/flashlog/eventlog/format"
	"github.com/flashlog/eventlog/mmapfile"
)

// SearchEntry pairs a block's stream offset with its decoded header,
// yielded while walking the reverse-linked block chain.
type SearchEntry struct {
	Offset uint64
	Header format.BlockHeader
}

// searchIter walks the reverse-linked block chain starting at offset,
// newest to oldest. A leaf's link back is its own BlockHeader.PrevBlock;
// a branch instead follows its BranchHeader.PrevOffset, the skip-list
// pointer to the previous block of equal or higher level - this is what
// keeps the walk from re-descending into a branch's own children. On any
// read error the sequence yields the error once, paired with a zero
// SearchEntry, and stops - mirroring the teacher's wal/wal_reader.go
// Iter() pattern of yielding a final (zero, err) before returning.
func searchIter(mf *mmapfile.MmapFile, offset uint64) iter.Seq2[SearchEntry, error] {
	return func(yield func(SearchEntry, error) bool) {
		next := offset
		for next != format.NoPrevBlock {
			header, err := mf.StreamBlockHeaderAt(next)
			if err != nil {
				yield(SearchEntry{}, err)
				return
			}
			entry := SearchEntry{Offset: next, Header: header}

			var after uint64
			if header.Level() == 0 {
				after = header.PrevBlock()
			} else {
				branch, err := mf.StreamBranchHeaderAt(next + format.BlockHeaderLen)
				if err != nil {
					yield(SearchEntry{}, err)
					return
				}
				after = branch.PrevOffset()
			}

			if !yield(entry, nil) {
				return
			}
			next = after
		}
	}
}
