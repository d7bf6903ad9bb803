package mmapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashlog/eventlog/format"
)

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.elog")
}

func TestOpenCreatesFreshFile(t *testing.T) {
	path := tempPath(t)

	mf, err := Open(path, 3)
	require.NoError(t, err)
	defer mf.Close()

	require.Equal(t, uint64(0), mf.StartOffset())
	require.Equal(t, uint64(0), mf.EndOffset())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, headerSize, info.Size())
}

func TestOpenReopenValidatesUserVersion(t *testing.T) {
	path := tempPath(t)

	mf, err := Open(path, 5)
	require.NoError(t, err)
	require.NoError(t, mf.Close())

	_, err = Open(path, 6)
	require.Error(t, err)
	var wrongVersion *ErrWrongUserVersion
	require.ErrorAs(t, err, &wrongVersion)
}

func TestOpenRejectsTruncatedExistingFile(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))

	_, err := Open(path, 0)
	require.Error(t, err)
	var corrupt *ErrDataCorruption
	require.ErrorAs(t, err, &corrupt)
}

func TestStreamAppendAndReadBack(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StreamAppend(format.MagicBlockHeader, format.BlockHeaderPayloadLen, func(buf []byte) {
		format.NewBlockHeader(buf, format.NoPrevBlock, 0, 99)
	}))

	hdr, err := mf.StreamBlockHeaderAt(0)
	require.NoError(t, err)
	require.Equal(t, format.NoPrevBlock, hdr.PrevBlock())
	require.Equal(t, uint32(99), hdr.Length())
	require.Equal(t, uint64(format.BlockHeaderLen), mf.EndOffset())
}

func TestStreamAppendBytesAligns(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StreamAppendBytes([]byte{1, 2, 3}))
	require.Equal(t, uint64(8), mf.EndOffset())

	got, err := mf.StreamBytes(0, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
}

func TestStreamAccessorsRejectOutOfRange(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StreamAppendBytes([]byte{1, 2, 3, 4}))

	_, err = mf.StreamBlockHeaderAt(1000)
	require.Error(t, err)
	var notPresent *ErrDataNotPresent
	require.ErrorAs(t, err, &notPresent)

	_, err = mf.StreamBytes(0, 1000)
	require.Error(t, err)
}

func TestStagingPutGrowsAndPersists(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StagingPut(0, format.MagicStagingHeader, format.StagingHeaderPayloadLen, func(buf []byte) {
		format.NewStagingHeader(buf, format.NoPrevBlock, 0, 0, 16)
	}))

	hdr, err := mf.StagingStagingHeaderAt(0)
	require.NoError(t, err)
	require.Equal(t, uint32(16), hdr.Capacity())
}

func TestStagingWriteAndBytes(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StagingWrite(100, []byte("hello")))

	got, err := mf.StagingBytes(100, 105)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestClearStagingZeroesBytes(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 0)
	require.NoError(t, err)
	defer mf.Close()

	require.NoError(t, mf.StagingWrite(0, []byte("abcd")))
	mf.ClearStaging()

	got, err := mf.StagingBytes(0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, got)
}

func TestEnsureStagingLenSurvivesReopen(t *testing.T) {
	path := tempPath(t)
	mf, err := Open(path, 42)
	require.NoError(t, err)

	require.NoError(t, mf.StreamAppendBytes([]byte("abcdefgh")))
	require.NoError(t, mf.StagingWrite(0, []byte("tail")))
	require.NoError(t, mf.Flush())
	require.NoError(t, mf.Close())

	mf2, err := Open(path, 42)
	require.NoError(t, err)
	defer mf2.Close()

	require.Equal(t, uint64(8), mf2.EndOffset())
	got, err := mf2.StreamBytes(0, 8)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdefgh"), got)
}
