// Package mmapfile implements the single memory-mapped file that backs an
// event log: a fixed 4 KiB header, a stream region holding
// [start_offset, end_offset) of finalized, 8-byte-aligned records, and a
// mutable staging area occupying the rest of the file.
//
// All stream-region accessors validate the requested object lies within
// [start_offset, end_offset) before touching the mapping; staging
// accessors validate against the current staging length. Growing the
// staging area remaps the file, which invalidates any byte slice
// previously returned by this package - callers must re-fetch after a
// call that may grow the file (stream_append, stream_append_bytes,
// ensure_staging_len).
package mmapfile

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/flashlog/eventlog/format"
)

const headerSize = 4096

// StreamVersion is the on-disk format version this package writes and
// requires on open.
const StreamVersion uint32 = 1

// MmapFile is not safe for concurrent use; the event log above it
// enforces the single-writer model.
type MmapFile struct {
	path        string
	file        *os.File
	mmap        mmap.MMap
	startOffset uint64
	endOffset   uint64
}

// Open creates or opens path, validating the stream version and user
// version recorded in the header. A freshly created file gets a
// zero-length stream and the given userVersion stamped in.
func Open(path string, userVersion uint32) (*MmapFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}
	size := info.Size()

	created := size < headerSize
	if created {
		if size > 0 {
			file.Close()
			return nil, &ErrDataCorruption{Message: "non-empty file is too small", Found: uint64(size), Expected: headerSize}
		}
		if err := file.Truncate(headerSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("mmapfile: truncate %s: %w", path, err)
		}
	}

	m, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmapfile: map %s: %w", path, err)
	}

	mf := &MmapFile{path: path, file: file, mmap: m}

	if created {
		if err := mf.put(0, format.MagicMmapFileHeader, format.MmapFileHeaderPayloadLen, func(buf []byte) {
			format.NewMmapFileHeader(buf, StreamVersion, userVersion, 0, 0)
		}); err != nil {
			mf.Close()
			return nil, err
		}
		if err := mf.Flush(); err != nil {
			mf.Close()
			return nil, err
		}
		return mf, nil
	}

	hdrBytes, err := mf.at(0, format.MagicMmapFileHeader, format.MmapFileHeaderPayloadLen)
	if err != nil {
		mf.Close()
		return nil, err
	}
	hdr := format.ViewMmapFileHeader(hdrBytes)
	if hdr.StreamVersion() != StreamVersion {
		mf.Close()
		return nil, &ErrWrongStreamVersion{Found: hdr.StreamVersion()}
	}
	if hdr.UserVersion() != userVersion {
		mf.Close()
		return nil, &ErrWrongUserVersion{Expected: userVersion, Found: hdr.UserVersion()}
	}
	mf.startOffset = hdr.StartOffset()
	mf.endOffset = hdr.EndOffset()
	return mf, nil
}

// Flush syncs the mapping to disk.
func (m *MmapFile) Flush() error {
	if err := m.mmap.Flush(); err != nil {
		return fmt.Errorf("mmapfile: flush %s: %w", m.path, err)
	}
	return nil
}

// Close unmaps and closes the underlying file.
func (m *MmapFile) Close() error {
	if m.mmap != nil {
		if err := m.mmap.Unmap(); err != nil {
			m.file.Close()
			return fmt.Errorf("mmapfile: unmap %s: %w", m.path, err)
		}
	}
	return m.file.Close()
}

func (m *MmapFile) StartOffset() uint64 { return m.startOffset }
func (m *MmapFile) EndOffset() uint64   { return m.endOffset }

func (m *MmapFile) stagingStart() int {
	return headerSize + int(m.endOffset-m.startOffset)
}

// StagingLen reports how many usable bytes remain after the stream
// region, at the current mapping size.
func (m *MmapFile) StagingLen() int {
	return len(m.mmap) - int(m.endOffset-m.startOffset) - headerSize
}

func align8(n int) int { return (n + 7) &^ 7 }

func (m *MmapFile) validateRange(offset, length int) error {
	if offset&7 != 0 {
		return &ErrDataCorruption{Message: "alignment error", Found: uint64(offset)}
	}
	end := offset + length
	if end > len(m.mmap) {
		return &ErrDataCorruption{Message: "index beyond file end", Found: uint64(end), Expected: uint64(len(m.mmap))}
	}
	return nil
}

// at validates and returns the payload slice (magic already checked) at
// the given physical file offset.
func (m *MmapFile) at(offset int, magic string, payloadLen int) ([]byte, error) {
	if err := m.validateRange(offset, magicLen+payloadLen); err != nil {
		return nil, err
	}
	if string(m.mmap[offset:offset+magicLen]) != magic {
		return nil, &ErrDataCorruption{Message: "magic value not found", Found: uint64(offset)}
	}
	return m.mmap[offset+magicLen : offset+magicLen+payloadLen], nil
}

const magicLen = 8

// put writes magic then invokes fill with the payload slice to encode
// into, at the given physical file offset.
func (m *MmapFile) put(offset int, magic string, payloadLen int, fill func([]byte)) error {
	if err := m.validateRange(offset, magicLen+payloadLen); err != nil {
		return err
	}
	copy(m.mmap[offset:offset+magicLen], []byte(magic))
	fill(m.mmap[offset+magicLen : offset+magicLen+payloadLen])
	return nil
}

func (m *MmapFile) writeBytes(offset int, data []byte) error {
	end := offset + len(data)
	if end > len(m.mmap) {
		return &ErrDataCorruption{Message: "writing beyond end of file", Found: uint64(end), Expected: uint64(len(m.mmap))}
	}
	copy(m.mmap[offset:end], data)
	return nil
}

func (m *MmapFile) setEndOffset(v uint64) {
	binary.BigEndian.PutUint64(m.mmap[16:24], v)
}

// --- stream region accessors ---

func (m *MmapFile) streamAt(offset uint64, magic string, payloadLen int) ([]byte, error) {
	if offset < m.startOffset {
		return nil, &ErrDataNotPresent{Message: "index before start offset", Offset: offset, Boundary: m.startOffset}
	}
	end := offset + uint64(magicLen+payloadLen)
	if end > m.endOffset {
		return nil, &ErrDataNotPresent{Message: "object reaching beyond end offset", Offset: offset, Boundary: m.endOffset}
	}
	return m.at(int(offset-m.startOffset)+headerSize, magic, payloadLen)
}

func (m *MmapFile) StreamBlockHeaderAt(offset uint64) (format.BlockHeader, error) {
	b, err := m.streamAt(offset, format.MagicBlockHeader, format.BlockHeaderPayloadLen)
	if err != nil {
		return format.BlockHeader{}, err
	}
	return format.ViewBlockHeader(b), nil
}

func (m *MmapFile) StreamLeafHeaderAt(offset uint64) (format.LeafHeader, error) {
	b, err := m.streamAt(offset, format.MagicLeafHeader, format.LeafHeaderPayloadLen)
	if err != nil {
		return format.LeafHeader{}, err
	}
	return format.ViewLeafHeader(b), nil
}

func (m *MmapFile) StreamBranchHeaderAt(offset uint64) (format.BranchHeader, error) {
	b, err := m.streamAt(offset, format.MagicBranchHeader, format.BranchHeaderPayloadLen)
	if err != nil {
		return format.BranchHeader{}, err
	}
	return format.ViewBranchHeader(b), nil
}

// StreamIndexEntryAt reads a dense, unmagicked IndexEntry at a byte
// offset relative to the stream start (used for walking a branch's
// children array, which has no embedded magic per element).
func (m *MmapFile) StreamIndexEntryAt(offset uint64) (format.IndexEntry, error) {
	if offset < m.startOffset {
		return format.IndexEntry{}, &ErrDataNotPresent{Message: "index before start offset", Offset: offset, Boundary: m.startOffset}
	}
	end := offset + format.IndexEntryLen
	if end > m.endOffset {
		return format.IndexEntry{}, &ErrDataNotPresent{Message: "object reaching beyond end offset", Offset: offset, Boundary: m.endOffset}
	}
	physical := int(offset-m.startOffset) + headerSize
	if physical+format.IndexEntryLen > len(m.mmap) {
		return format.IndexEntry{}, &ErrDataCorruption{Message: "index beyond file end", Found: uint64(physical + format.IndexEntryLen)}
	}
	return format.ViewIndexEntry(m.mmap[physical : physical+format.IndexEntryLen]), nil
}

// StreamBytes returns the raw stream bytes in [from, to), e.g. a leaf's
// compressed payload following its LeafHeader.
func (m *MmapFile) StreamBytes(from, to uint64) ([]byte, error) {
	if from < m.startOffset {
		return nil, &ErrDataNotPresent{Message: "byte index before start offset", Offset: from, Boundary: m.startOffset}
	}
	if to > m.endOffset {
		return nil, &ErrDataNotPresent{Message: "byte index beyond stream end", Offset: to, Boundary: m.endOffset}
	}
	if from > to {
		return nil, &ErrNumericOverflow{Message: "negative range of stream bytes requested"}
	}
	start := headerSize + int(from-m.startOffset)
	return m.mmap[start : start+int(to-from)], nil
}

// StreamAppend writes a magic-tagged record (magic + payload, filled by
// fill) at the tail of the stream, clobbering the staging area, and
// advances end_offset by magicLen+len(payload) (always 8-aligned by
// construction for every record type in this package).
func (m *MmapFile) StreamAppend(magic string, payloadLen int, fill func([]byte)) error {
	total := magicLen + payloadLen
	if err := m.EnsureStagingLen(total); err != nil {
		return err
	}
	offset := m.stagingStart()
	copy(m.mmap[offset:offset+magicLen], []byte(magic))
	fill(m.mmap[offset+magicLen : offset+total])
	m.endOffset += uint64(total)
	m.setEndOffset(m.endOffset)
	return nil
}

// StreamAppendBytes appends raw bytes (e.g. a leaf's compressed payload)
// at the tail of the stream, clobbering the staging area, rounding the
// new end_offset up to the next 8-byte boundary.
func (m *MmapFile) StreamAppendBytes(data []byte) error {
	if err := m.EnsureStagingLen(len(data)); err != nil {
		return err
	}
	offset := m.stagingStart()
	if err := m.writeBytes(offset, data); err != nil {
		return err
	}
	m.endOffset += uint64(align8(len(data)))
	m.setEndOffset(m.endOffset)
	return nil
}

// --- staging area accessors ---

func (m *MmapFile) ClearStaging() {
	start := m.stagingStart()
	for i := start; i < len(m.mmap); i++ {
		m.mmap[i] = 0
	}
}

func (m *MmapFile) stagingAt(offset, magicPayload int, magic string) ([]byte, error) {
	end := offset + magicLen + magicPayload
	if end > m.StagingLen() {
		return nil, &ErrDataCorruption{Message: "index beyond staging end", Found: uint64(end), Expected: uint64(m.StagingLen())}
	}
	return m.at(offset+m.stagingStart(), magic, magicPayload)
}

func (m *MmapFile) StagingStagingHeaderAt(offset int) (format.StagingHeader, error) {
	b, err := m.stagingAt(offset, format.StagingHeaderPayloadLen, format.MagicStagingHeader)
	if err != nil {
		return format.StagingHeader{}, err
	}
	return format.ViewStagingHeader(b), nil
}

// StagingBytes returns a read-only view of staging bytes in [from, to).
func (m *MmapFile) StagingBytes(from, to int) ([]byte, error) {
	if to > m.StagingLen() {
		return nil, &ErrDataCorruption{Message: "byte index beyond staging end", Found: uint64(to), Expected: uint64(m.StagingLen())}
	}
	if from > to {
		return nil, &ErrNumericOverflow{Message: "negative range of staging bytes requested"}
	}
	start := m.stagingStart() + from
	return m.mmap[start : start+(to-from)], nil
}

// StagingBytesMut returns a writable view of staging bytes in [from, to),
// growing the staging area first if necessary.
func (m *MmapFile) StagingBytesMut(from, to int) ([]byte, error) {
	if err := m.EnsureStagingLen(to); err != nil {
		return nil, err
	}
	start := m.stagingStart() + from
	return m.mmap[start : start+(to-from)], nil
}

// StagingPut writes a magic-tagged record into the staging area at
// offset, filled by fill.
func (m *MmapFile) StagingPut(offset int, magic string, payloadLen int, fill func([]byte)) error {
	if err := m.EnsureStagingLen(offset + magicLen + payloadLen); err != nil {
		return err
	}
	physical := m.stagingStart() + offset
	copy(m.mmap[physical:physical+magicLen], []byte(magic))
	fill(m.mmap[physical+magicLen : physical+magicLen+payloadLen])
	return nil
}

// StagingWrite writes raw bytes into the staging area at offset.
func (m *MmapFile) StagingWrite(offset int, data []byte) error {
	if err := m.EnsureStagingLen(offset + len(data)); err != nil {
		return err
	}
	physical := m.stagingStart() + offset
	return m.writeBytes(physical, data)
}

// EnsureStagingLen grows the file (and remaps it) so that the staging
// area holds at least len usable bytes. Growing invalidates every byte
// slice previously handed out by this MmapFile.
func (m *MmapFile) EnsureStagingLen(length int) error {
	if m.StagingLen() >= length {
		return nil
	}
	fileSize := int64(headerSize) + int64(m.endOffset-m.startOffset) + int64(length)
	if err := m.mmap.Unmap(); err != nil {
		return fmt.Errorf("mmapfile: unmap for grow %s: %w", m.path, err)
	}
	if err := m.file.Truncate(fileSize); err != nil {
		return fmt.Errorf("mmapfile: truncate %s: %w", m.path, err)
	}
	newMap, err := mmap.Map(m.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmapfile: remap %s: %w", m.path, err)
	}
	m.mmap = newMap
	return nil
}
