package eventlog

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashlog/eventlog/cache"
)

func openTest(t *testing.T, compressionThreshold int, blockEventLimit uint32) *EventFile {
	t.Helper()
	c, err := cache.New(0, 0)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.elog")
	ef, err := Open(1, path, 0, compressionThreshold, blockEventLimit, c)
	require.NoError(t, err)
	t.Cleanup(func() { ef.Close() })
	return ef
}

func collect(t *testing.T, ef *EventFile, from, to uint64) [][]byte {
	t.Helper()
	it, err := ef.Iter(from, to)
	require.NoError(t, err)

	var out [][]byte
	for {
		slice, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, slice.Events()...)
	}
	require.NoError(t, it.Err())
	return out
}

func TestEmptyLogYieldsNothing(t *testing.T) {
	ef := openTest(t, 4096, 1024)

	got := collect(t, ef, 0, ^uint64(0))
	require.Empty(t, got)
}

func TestSmallAppendStaysInStaging(t *testing.T) {
	ef := openTest(t, 4096, 1024)

	require.NoError(t, ef.Append([]byte("one")))
	require.NoError(t, ef.Append([]byte("two")))
	require.NoError(t, ef.Append([]byte("three")))

	require.Equal(t, uint64(0), ef.mf.EndOffset(), "nothing should have flushed to the stream yet")

	got := collect(t, ef, 0, ^uint64(0))
	require.Equal(t, [][]byte{[]byte("one"), []byte("two"), []byte("three")}, got)
}

func TestAppendCrossesCompressionThreshold(t *testing.T) {
	ef := openTest(t, 16, 1024)

	for i := 0; i < 5; i++ {
		require.NoError(t, ef.Append([]byte(fmt.Sprintf("event-%02d", i))))
	}

	require.Greater(t, ef.mf.EndOffset(), uint64(0), "compression threshold should have triggered a leaf flush")

	got := collect(t, ef, 0, ^uint64(0))
	require.Len(t, got, 5)
	for i, event := range got {
		require.Equal(t, fmt.Sprintf("event-%02d", i), string(event))
	}
}

func TestCascadeBuildsBranchBlock(t *testing.T) {
	// block_event_limit=4, compression_threshold=16: two 8-byte events
	// reach the threshold, so each leaf holds 2 events and 64 events make
	// 32 leaves, cascading into two level-1 branches of FanOut (16) leaves
	// each. The level-aware chain walk from last_block then reaches only
	// those two branches, never the leaves beneath them.
	ef := openTest(t, 16, 4)

	events := make([][]byte, 64)
	for i := range events {
		events[i] = []byte(fmt.Sprintf("ev%06d", i))
		require.NoError(t, ef.Append(events[i]))
	}

	hdr, err := ef.stagingHeader()
	require.NoError(t, err)

	sawBranch := false
	leafCount := 0
	for entry, err := range searchIter(ef.mf, hdr.LastBlock()) {
		require.NoError(t, err)
		if entry.Header.Level() > 0 {
			sawBranch = true
		} else {
			leafCount++
		}
	}
	require.True(t, sawBranch, "expected a branch block to have been cascaded")
	require.Equal(t, 0, leafCount)

	got := collect(t, ef, 0, ^uint64(0))
	require.Len(t, got, len(events))
	for i, event := range events {
		require.Equal(t, event, got[i])
	}
}

func TestIterRangeIsInclusiveAndBounded(t *testing.T) {
	ef := openTest(t, 16, 4)
	for i := 0; i < 40; i++ {
		require.NoError(t, ef.Append([]byte(fmt.Sprintf("e%03d", i))))
	}

	got := collect(t, ef, 10, 15)
	require.Len(t, got, 6)
	for i, event := range got {
		require.Equal(t, fmt.Sprintf("e%03d", 10+i), string(event))
	}
}

func TestIterEmptyRangeYieldsNothing(t *testing.T) {
	ef := openTest(t, 16, 4)
	for i := 0; i < 10; i++ {
		require.NoError(t, ef.Append([]byte(fmt.Sprintf("e%03d", i))))
	}

	got := collect(t, ef, 5, 2)
	require.Empty(t, got)
}

func TestRandomRangesAgainstReferenceModel(t *testing.T) {
	const n = 130
	ef := openTest(t, 32, 8)

	want := make([][]byte, n)
	for i := 0; i < n; i++ {
		want[i] = []byte(fmt.Sprintf("payload-%04d-%d", i, i*i))
		require.NoError(t, ef.Append(want[i]))
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 1000; trial++ {
		from := uint64(rng.Intn(n))
		to := from + uint64(rng.Intn(n))

		got := collect(t, ef, from, to)

		hi := to
		if hi >= uint64(n) {
			hi = uint64(n - 1)
		}
		var expected [][]byte
		if from <= hi {
			expected = want[from : hi+1]
		}
		require.Equalf(t, len(expected), len(got), "trial %d range [%d,%d]", trial, from, to)
		for i := range expected {
			require.Equalf(t, expected[i], got[i], "trial %d range [%d,%d] index %d", trial, from, to, i)
		}
	}
}

func TestReopenPreservesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.elog")
	c, err := cache.New(0, 0)
	require.NoError(t, err)

	ef, err := Open(1, path, 0, 16, 4, c)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, ef.Append([]byte(fmt.Sprintf("e%02d", i))))
	}
	require.NoError(t, ef.Flush())
	require.NoError(t, ef.Close())

	c2, err := cache.New(0, 0)
	require.NoError(t, err)
	ef2, err := Open(1, path, 0, 16, 4, c2)
	require.NoError(t, err)
	defer ef2.Close()

	got := collect(t, ef2, 0, ^uint64(0))
	require.Len(t, got, 20)
	for i, event := range got {
		require.Equal(t, fmt.Sprintf("e%02d", i), string(event))
	}
}

func TestWithSkipIndexOption(t *testing.T) {
	c, err := cache.New(0, 0)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.elog")
	ef, err := Open(1, path, 0, 4096, 1024, c, WithSkipIndex())
	require.NoError(t, err)
	defer ef.Close()

	require.NotNil(t, ef.skipIndex)
}
