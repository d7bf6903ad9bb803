package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMmapFileHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, MmapFileHeaderPayloadLen)
	h := NewMmapFileHeader(buf, 1, 7, 100, 200)

	require.Equal(t, uint32(1), h.StreamVersion())
	require.Equal(t, uint32(7), h.UserVersion())
	require.Equal(t, uint64(100), h.StartOffset())
	require.Equal(t, uint64(200), h.EndOffset())

	h.SetEndOffset(9999)
	require.Equal(t, uint64(9999), h.EndOffset())

	view := ViewMmapFileHeader(buf)
	require.Equal(t, uint64(9999), view.EndOffset())
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, BlockHeaderPayloadLen)
	h := NewBlockHeader(buf, NoPrevBlock, 2, 64)

	require.Equal(t, NoPrevBlock, h.PrevBlock())
	require.Equal(t, uint32(2), h.Level())
	require.Equal(t, uint32(64), h.Length())
	require.Contains(t, h.String(), "BlockHeader{")
}

func TestLeafHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, LeafHeaderPayloadLen)
	h := NewLeafHeader(buf, 42, 10)

	require.Equal(t, uint64(42), h.StartIdx())
	require.Equal(t, uint32(10), h.Count())
}

func TestBranchHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, BranchHeaderPayloadLen)
	h := NewBranchHeader(buf, 128, 256)

	require.Equal(t, uint64(128), h.PrevOffset())
	require.Equal(t, uint64(256), h.EndIdx())
}

func TestIndexEntryRoundTrip(t *testing.T) {
	buf := make([]byte, IndexEntryLen)
	e := NewIndexEntry(buf, 4096, 17)

	require.Equal(t, uint64(4096), e.Offset())
	require.Equal(t, uint64(17), e.StartIdx())
}

func TestStagingHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, StagingHeaderPayloadLen)
	h := NewStagingHeader(buf, NoPrevBlock, 0, 3, 16)

	require.Equal(t, NoPrevBlock, h.LastBlock())
	require.Equal(t, uint64(0), h.StartIdx())
	require.Equal(t, uint32(3), h.Count())
	require.Equal(t, uint32(16), h.Capacity())

	h.SetCount(4)
	require.Equal(t, uint32(4), h.Count())
}

func TestViewsAliasUnderlyingBytes(t *testing.T) {
	buf := make([]byte, MmapFileHeaderPayloadLen)
	NewMmapFileHeader(buf, 1, 0, 0, 0)

	view := ViewMmapFileHeader(buf)
	view.SetEndOffset(55)

	require.Equal(t, uint64(55), ViewMmapFileHeader(buf).EndOffset())
}
