package eventlog

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/flashlog/eventlog/format"
)

// Dump renders a human-readable, diagnostic-only view of the file: the
// header, every block in file order (leaves hex-dumped event by event,
// branches listing their children), and finally the staging area. Errors
// are localized to the offending block - printed inline - and dumping
// continues with the next one, matching the teacher pack's tolerant
// diagnostic tooling rather than aborting on the first bad record.
func (ef *EventFile) Dump(w io.Writer) error {
	hdr, err := ef.stagingHeader()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "EventFile id=%d start_offset=%d end_offset=%d\n", ef.id, ef.mf.StartOffset(), ef.mf.EndOffset())

	// Follow prev_block (the immediate predecessor) so that blocks already
	// summarized by a branch are listed too, then print oldest first.
	var offsets []uint64
	var blocks []format.BlockHeader
	for next := hdr.LastBlock(); next != format.NoPrevBlock; {
		block, err := ef.mf.StreamBlockHeaderAt(next)
		if err != nil {
			fmt.Fprintf(w, "  <error walking chain: %v>\n", err)
			break
		}
		offsets = append(offsets, next)
		blocks = append(blocks, block)
		next = block.PrevBlock()
	}
	for i := len(offsets) - 1; i >= 0; i-- {
		ef.dumpBlock(w, offsets[i], blocks[i])
	}

	ef.dumpStaging(w, hdr)
	return nil
}

func (ef *EventFile) dumpBlock(w io.Writer, offset uint64, block format.BlockHeader) {
	fmt.Fprintf(w, "block @%d %s\n", offset, block)

	if block.Level() == 0 {
		leaf, err := ef.mf.StreamLeafHeaderAt(offset + format.BlockHeaderLen)
		if err != nil {
			fmt.Fprintf(w, "  <error reading leaf header: %v>\n", err)
			return
		}
		fmt.Fprintf(w, "  %s\n", leaf)

		bytes, err := ef.decompressLeaf(offset, block, leaf)
		if err != nil {
			fmt.Fprintf(w, "  <error decompressing leaf: %v>\n", err)
			return
		}
		base := (int(leaf.Count()) + 1) * 4
		for i := uint32(0); i < leaf.Count(); i++ {
			jumpPos := 4 * int(i)
			from := be32(bytes[jumpPos : jumpPos+4])
			to := be32(bytes[jumpPos+4 : jumpPos+8])
			event := bytes[base+int(from) : base+int(to)]
			fmt.Fprintf(w, "  event[%d]: %s\n", leaf.StartIdx()+uint64(i), hex.Dump(event))
		}
		return
	}

	branch, err := ef.mf.StreamBranchHeaderAt(offset + format.BlockHeaderLen)
	if err != nil {
		fmt.Fprintf(w, "  <error reading branch header: %v>\n", err)
		return
	}
	fmt.Fprintf(w, "  %s\n", branch)

	childCount := (int(block.Length()) - format.BranchHeaderPayloadLen) / format.IndexEntryLen
	entryBase := offset + format.BlockHeaderLen + format.BranchHeaderLen
	for i := 0; i < childCount; i++ {
		entry, err := ef.mf.StreamIndexEntryAt(entryBase + uint64(i*format.IndexEntryLen))
		if err != nil {
			fmt.Fprintf(w, "  <error reading index entry %d: %v>\n", i, err)
			continue
		}
		fmt.Fprintf(w, "  %s\n", entry)
	}
}

func (ef *EventFile) dumpStaging(w io.Writer, hdr format.StagingHeader) {
	fmt.Fprintf(w, "staging %s\n", hdr)

	capacity := hdr.Capacity()
	count := hdr.Count()
	bytes, err := ef.mf.StagingBytes(format.StagingHeaderLen, ef.mf.StagingLen())
	if err != nil {
		fmt.Fprintf(w, "  <error reading staging bytes: %v>\n", err)
		return
	}
	base := int(capacity) * 4
	for i := uint32(0); i < count; i++ {
		jumpPos := 4 * int(i)
		from := be32(bytes[jumpPos : jumpPos+4])
		to := be32(bytes[jumpPos+4 : jumpPos+8])
		event := bytes[base+int(from) : base+int(to)]
		fmt.Fprintf(w, "  event[%d]: %s\n", hdr.StartIdx()+uint64(i), hex.Dump(event))
	}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
