// Package format defines the fixed binary records that make up an event
// log file: magic-tagged headers for the mmap file, blocks, leaves,
// branches and staging area, plus the dense (unmagicked) IndexEntry array
// element and the size of a JumpEntry. Every multi-byte field is big-endian on disk, deliberately, so
// that the file remains portable and hex-dumpable regardless of the host's
// native endianness.
//
// Each record type is a thin, fixed-length view over a byte slice — not a
// reinterpreted Go struct — so that callers can wrap a slice of an mmap'd
// file directly without unsafe pointer casts. A view never owns its bytes.
package format

import "encoding/binary"

// Magic values, eight ASCII bytes each, chosen to be readable in a hex
// dump. Every on-disk size that includes a magic (magic + payload) must
// fit into a byte, so that jump-table deltas stay compact.
const (
	MagicMmapFileHeader = "Events01"
	MagicBlockHeader    = "BlockSta"
	MagicLeafHeader     = "LeafHead"
	MagicBranchHeader   = "BranchHd"
	MagicStagingHeader  = "Staging!"

	magicLen = 8
)

// Payload sizes (field bytes only, excluding the magic prefix). Records
// without a magic (IndexEntry, JumpEntry) have PayloadLen == Len.
const (
	MmapFileHeaderPayloadLen = 24 // u32 + u32 + u64 + u64
	BlockHeaderPayloadLen    = 16 // u64 + u32 + u32
	LeafHeaderPayloadLen     = 16 // u64 + u32, padded to keep 8-byte alignment
	BranchHeaderPayloadLen   = 16 // u64 + u64
	StagingHeaderPayloadLen  = 24 // u64 + u64 + u32 + u32
	IndexEntryLen            = 16 // u64 + u64, no magic
	JumpEntryLen             = 4  // u32, no magic

	MmapFileHeaderLen = magicLen + MmapFileHeaderPayloadLen
	BlockHeaderLen    = magicLen + BlockHeaderPayloadLen
	LeafHeaderLen     = magicLen + LeafHeaderPayloadLen
	BranchHeaderLen   = magicLen + BranchHeaderPayloadLen
	StagingHeaderLen  = magicLen + StagingHeaderPayloadLen
)

// NoPrevBlock is the sentinel meaning "no predecessor" for BlockHeader.PrevBlock
// and BranchHeader.PrevOffset.
const NoPrevBlock = ^uint64(0)

// MmapFileHeader is the 4 KiB file's global metadata record, magic
// Events01.
type MmapFileHeader struct{ b []byte }

// NewMmapFileHeader encodes a fresh header into buf, which must have
// length >= MmapFileHeaderPayloadLen.
func NewMmapFileHeader(buf []byte, streamVersion, userVersion uint32, startOffset, endOffset uint64) MmapFileHeader {
	h := MmapFileHeader{b: buf[:MmapFileHeaderPayloadLen]}
	binary.BigEndian.PutUint32(h.b[0:4], streamVersion)
	binary.BigEndian.PutUint32(h.b[4:8], userVersion)
	binary.BigEndian.PutUint64(h.b[8:16], startOffset)
	binary.BigEndian.PutUint64(h.b[16:24], endOffset)
	return h
}

// ViewMmapFileHeader narrows an existing byte slice to an MmapFileHeader view.
func ViewMmapFileHeader(buf []byte) MmapFileHeader {
	return MmapFileHeader{b: buf[:MmapFileHeaderPayloadLen]}
}

func (h MmapFileHeader) Bytes() []byte       { return h.b }
func (h MmapFileHeader) StreamVersion() uint32 { return binary.BigEndian.Uint32(h.b[0:4]) }
func (h MmapFileHeader) UserVersion() uint32   { return binary.BigEndian.Uint32(h.b[4:8]) }
func (h MmapFileHeader) StartOffset() uint64   { return binary.BigEndian.Uint64(h.b[8:16]) }
func (h MmapFileHeader) EndOffset() uint64     { return binary.BigEndian.Uint64(h.b[16:24]) }
func (h MmapFileHeader) SetEndOffset(v uint64) { binary.BigEndian.PutUint64(h.b[16:24], v) }

func (h MmapFileHeader) String() string {
	return structDebug("MmapFileHeader", []field{
		{"stream_version", h.StreamVersion()},
		{"user_version", h.UserVersion()},
		{"start_offset", h.StartOffset()},
		{"end_offset", h.EndOffset()},
	})
}

// BlockHeader starts every block in the stream region, magic BlockSta.
type BlockHeader struct{ b []byte }

func NewBlockHeader(buf []byte, prevBlock uint64, level, length uint32) BlockHeader {
	h := BlockHeader{b: buf[:BlockHeaderPayloadLen]}
	binary.BigEndian.PutUint64(h.b[0:8], prevBlock)
	binary.BigEndian.PutUint32(h.b[8:12], level)
	binary.BigEndian.PutUint32(h.b[12:16], length)
	return h
}

func ViewBlockHeader(buf []byte) BlockHeader { return BlockHeader{b: buf[:BlockHeaderPayloadLen]} }

func (h BlockHeader) Bytes() []byte     { return h.b }
func (h BlockHeader) PrevBlock() uint64 { return binary.BigEndian.Uint64(h.b[0:8]) }
func (h BlockHeader) Level() uint32     { return binary.BigEndian.Uint32(h.b[8:12]) }
func (h BlockHeader) Length() uint32    { return binary.BigEndian.Uint32(h.b[12:16]) }

func (h BlockHeader) String() string {
	return structDebug("BlockHeader", []field{
		{"prev_block", h.PrevBlock()},
		{"level", h.Level()},
		{"length", h.Length()},
	})
}

// LeafHeader immediately follows a level-0 BlockHeader, magic LeafHead.
type LeafHeader struct{ b []byte }

func NewLeafHeader(buf []byte, startIdx uint64, count uint32) LeafHeader {
	h := LeafHeader{b: buf[:LeafHeaderPayloadLen]}
	binary.BigEndian.PutUint64(h.b[0:8], startIdx)
	binary.BigEndian.PutUint32(h.b[8:12], count)
	// bytes [12:16] are reserved padding, kept zero.
	return h
}

func ViewLeafHeader(buf []byte) LeafHeader { return LeafHeader{b: buf[:LeafHeaderPayloadLen]} }

func (h LeafHeader) Bytes() []byte    { return h.b }
func (h LeafHeader) StartIdx() uint64 { return binary.BigEndian.Uint64(h.b[0:8]) }
func (h LeafHeader) Count() uint32    { return binary.BigEndian.Uint32(h.b[8:12]) }

func (h LeafHeader) String() string {
	return structDebug("LeafHeader", []field{
		{"start_idx", h.StartIdx()},
		{"count", h.Count()},
	})
}

// BranchHeader follows a level>0 BlockHeader, magic BranchHd.
type BranchHeader struct{ b []byte }

func NewBranchHeader(buf []byte, prevOffset, endIdx uint64) BranchHeader {
	h := BranchHeader{b: buf[:BranchHeaderPayloadLen]}
	binary.BigEndian.PutUint64(h.b[0:8], prevOffset)
	binary.BigEndian.PutUint64(h.b[8:16], endIdx)
	return h
}

func ViewBranchHeader(buf []byte) BranchHeader {
	return BranchHeader{b: buf[:BranchHeaderPayloadLen]}
}

func (h BranchHeader) Bytes() []byte      { return h.b }
func (h BranchHeader) PrevOffset() uint64 { return binary.BigEndian.Uint64(h.b[0:8]) }
func (h BranchHeader) EndIdx() uint64     { return binary.BigEndian.Uint64(h.b[8:16]) }

func (h BranchHeader) String() string {
	return structDebug("BranchHeader", []field{
		{"prev_offset", h.PrevOffset()},
		{"end_idx", h.EndIdx()},
	})
}

// IndexEntry is a child pointer inside a branch: no magic, dense array.
type IndexEntry struct{ b []byte }

func NewIndexEntry(buf []byte, offset, startIdx uint64) IndexEntry {
	e := IndexEntry{b: buf[:IndexEntryLen]}
	binary.BigEndian.PutUint64(e.b[0:8], offset)
	binary.BigEndian.PutUint64(e.b[8:16], startIdx)
	return e
}

func ViewIndexEntry(buf []byte) IndexEntry { return IndexEntry{b: buf[:IndexEntryLen]} }

func (e IndexEntry) Bytes() []byte     { return e.b }
func (e IndexEntry) Offset() uint64    { return binary.BigEndian.Uint64(e.b[0:8]) }
func (e IndexEntry) StartIdx() uint64  { return binary.BigEndian.Uint64(e.b[8:16]) }

func (e IndexEntry) String() string {
	return structDebug("IndexEntry", []field{
		{"offset", e.Offset()},
		{"start_idx", e.StartIdx()},
	})
}

// StagingHeader describes the mutable staging area, magic Staging!.
type StagingHeader struct{ b []byte }

func NewStagingHeader(buf []byte, lastBlock, startIdx uint64, count, capacity uint32) StagingHeader {
	h := StagingHeader{b: buf[:StagingHeaderPayloadLen]}
	binary.BigEndian.PutUint64(h.b[0:8], lastBlock)
	binary.BigEndian.PutUint64(h.b[8:16], startIdx)
	binary.BigEndian.PutUint32(h.b[16:20], count)
	binary.BigEndian.PutUint32(h.b[20:24], capacity)
	return h
}

func ViewStagingHeader(buf []byte) StagingHeader {
	return StagingHeader{b: buf[:StagingHeaderPayloadLen]}
}

func (h StagingHeader) Bytes() []byte     { return h.b }
func (h StagingHeader) LastBlock() uint64 { return binary.BigEndian.Uint64(h.b[0:8]) }
func (h StagingHeader) StartIdx() uint64  { return binary.BigEndian.Uint64(h.b[8:16]) }
func (h StagingHeader) Count() uint32     { return binary.BigEndian.Uint32(h.b[16:20]) }
func (h StagingHeader) SetCount(v uint32) { binary.BigEndian.PutUint32(h.b[16:20], v) }
func (h StagingHeader) Capacity() uint32  { return binary.BigEndian.Uint32(h.b[20:24]) }

func (h StagingHeader) String() string {
	return structDebug("StagingHeader", []field{
		{"last_block", h.LastBlock()},
		{"start_idx", h.StartIdx()},
		{"count", h.Count()},
		{"capacity", h.Capacity()},
	})
}

// field/structDebug stand in for the teacher-macro's generated Debug
// implementation: every record type decodes its own field values into a
// stable, greppable "Name{field:value, ...}" representation.
type field struct {
	name string
	val  uint64
}

func structDebug(name string, fields []field) string {
	out := name + "{"
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f.name + ":" + itoa(f.val)
	}
	return out + "}"
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
