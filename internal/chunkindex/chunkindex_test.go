package chunkindex_test

import (
	"os"
	"testing"

	"github.com/oywz99/gsd/internal/chunkindex"
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/stretchr/testify/require"
)

const testLocation = 256

func newTestFile(t *testing.T, allocated uint64, fileSize int64) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "chunkindex-*.bin")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.Truncate(fileSize))
	zero := make([]byte, allocated*gsdformat.IndexEntrySize)
	_, err = f.WriteAt(zero, testLocation)
	require.NoError(t, err)
	return f
}

func TestLoadWritableEmpty(t *testing.T) {
	f := newTestFile(t, 8, 4096)
	idx, err := chunkindex.LoadWritable(f, testLocation, 8, 4096, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx.NumEntries())
	require.Equal(t, uint64(8), idx.Allocated())
	require.False(t, idx.Full())
}

func writeEntry(t *testing.T, f *os.File, allocated uint64, slot uint64, e gsdformat.IndexEntry) {
	t.Helper()
	off := int64(testLocation) + int64(slot)*gsdformat.IndexEntrySize
	_, err := f.WriteAt(e.Encode(), off)
	require.NoError(t, err)
}

func TestLoadWritableFindsValidPrefix(t *testing.T) {
	f := newTestFile(t, 8, 1<<20)
	writeEntry(t, f, 8, 0, gsdformat.IndexEntry{Frame: 0, N: 4, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeFloat64})
	writeEntry(t, f, 8, 1, gsdformat.IndexEntry{Frame: 0, N: 4, Location: 544, ID: 1, M: 1, Type: gsdformat.TypeFloat64})
	writeEntry(t, f, 8, 2, gsdformat.IndexEntry{Frame: 1, N: 4, Location: 576, ID: 0, M: 1, Type: gsdformat.TypeFloat64})

	idx, err := chunkindex.LoadWritable(f, testLocation, 8, 1<<20, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), idx.NumEntries())
}

func TestAppendAndFlush(t *testing.T) {
	f := newTestFile(t, 4, 1<<20)
	idx, err := chunkindex.LoadWritable(f, testLocation, 4, 1<<20, 0)
	require.NoError(t, err)

	e := gsdformat.IndexEntry{Frame: 0, N: 2, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeUint32}
	require.NoError(t, idx.Append(e))
	require.Equal(t, uint64(1), idx.NumEntries())

	wrote, err := idx.Flush(f)
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = idx.Flush(f)
	require.NoError(t, err)
	require.False(t, wrote)

	reloaded, err := chunkindex.LoadWritable(f, testLocation, 4, 1<<20, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), reloaded.NumEntries())
	got, err := reloaded.Entry(0)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestLoadWritableRejectsCorruptFirstEntry(t *testing.T) {
	f := newTestFile(t, 8, 1<<20)
	// Location != 0 but Type is 0, an unrecognized type tag: this entry is
	// used, not empty, so it must be reported as corrupt rather than
	// silently treated as if the index were empty.
	writeEntry(t, f, 8, 0, gsdformat.IndexEntry{Frame: 0, N: 4, Location: 512, ID: 0, M: 1, Type: 0})

	_, err := chunkindex.LoadWritable(f, testLocation, 8, 1<<20, 1)
	require.Error(t, err)
}

func TestLoadWritableRejectsCorruptMiddleEntry(t *testing.T) {
	f := newTestFile(t, 8, 1<<20)
	writeEntry(t, f, 8, 0, gsdformat.IndexEntry{Frame: 0, N: 4, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeFloat64})
	// Used (Location != 0) but Type flipped to an unrecognized tag: must
	// surface as corrupt, not be silently excluded from the valid prefix.
	writeEntry(t, f, 8, 1, gsdformat.IndexEntry{Frame: 0, N: 4, Location: 544, ID: 1, M: 1, Type: 0})
	writeEntry(t, f, 8, 2, gsdformat.IndexEntry{Frame: 1, N: 4, Location: 576, ID: 0, M: 1, Type: gsdformat.TypeFloat64})

	_, err := chunkindex.LoadWritable(f, testLocation, 8, 1<<20, 2)
	require.Error(t, err)
}

func TestLoadWritableTrulyEmptyIndexHasNoError(t *testing.T) {
	f := newTestFile(t, 8, 4096)
	idx, err := chunkindex.LoadWritable(f, testLocation, 8, 4096, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx.NumEntries())
}

func TestFullAndAppendRejected(t *testing.T) {
	f := newTestFile(t, 1, 1<<20)
	idx, err := chunkindex.LoadWritable(f, testLocation, 1, 1<<20, 0)
	require.NoError(t, err)

	require.NoError(t, idx.Append(gsdformat.IndexEntry{Frame: 0, N: 1, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeUint8}))
	require.True(t, idx.Full())

	err = idx.Append(gsdformat.IndexEntry{Frame: 0, N: 1, Location: 520, ID: 0, M: 1, Type: gsdformat.TypeUint8})
	require.Error(t, err)
}

func TestRelocateLoaded(t *testing.T) {
	f := newTestFile(t, 2, 1<<20)
	idx, err := chunkindex.LoadWritable(f, testLocation, 2, 1<<20, 0)
	require.NoError(t, err)

	e0 := gsdformat.IndexEntry{Frame: 0, N: 1, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeUint8}
	e1 := gsdformat.IndexEntry{Frame: 0, N: 1, Location: 520, ID: 0, M: 1, Type: gsdformat.TypeUint8}
	require.NoError(t, idx.Append(e0))
	require.NoError(t, idx.Append(e1))
	require.True(t, idx.Full())

	newLoc := int64(1 << 20)
	require.NoError(t, f.Truncate(newLoc+4*gsdformat.IndexEntrySize))
	require.NoError(t, idx.Relocate(f, newLoc, 4))
	require.Equal(t, uint64(4), idx.Allocated())
	require.False(t, idx.Full())

	got, err := idx.Entry(0)
	require.NoError(t, err)
	require.Equal(t, e0, got)
}

func TestRelocateAppendCopiesBytes(t *testing.T) {
	f := newTestFile(t, 2, 1<<20)
	writeEntry(t, f, 2, 0, gsdformat.IndexEntry{Frame: 0, N: 1, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeUint8})
	writeEntry(t, f, 2, 1, gsdformat.IndexEntry{Frame: 0, N: 1, Location: 520, ID: 0, M: 1, Type: gsdformat.TypeUint8})

	idx, err := chunkindex.LoadAppend(f, testLocation, 2, 1<<20, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx.NumEntries())

	newLoc := int64(1 << 20)
	require.NoError(t, f.Truncate(newLoc+4*gsdformat.IndexEntrySize))
	require.NoError(t, idx.Relocate(f, newLoc, 4))

	buf := make([]byte, gsdformat.IndexEntrySize)
	_, err = f.ReadAt(buf, newLoc)
	require.NoError(t, err)
	got, err := gsdformat.DecodeIndexEntry(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.N)
	require.Equal(t, int64(512), got.Location)
}

func TestFindChunk(t *testing.T) {
	f := newTestFile(t, 8, 1<<20)
	idx, err := chunkindex.LoadWritable(f, testLocation, 8, 1<<20, 2)
	require.NoError(t, err)

	entries := []gsdformat.IndexEntry{
		{Frame: 0, N: 1, Location: 512, ID: 0, M: 1, Type: gsdformat.TypeUint8},
		{Frame: 0, N: 1, Location: 520, ID: 1, M: 1, Type: gsdformat.TypeUint8},
		{Frame: 1, N: 1, Location: 528, ID: 0, M: 1, Type: gsdformat.TypeUint8},
		{Frame: 3, N: 1, Location: 536, ID: 1, M: 1, Type: gsdformat.TypeUint8},
	}
	for _, e := range entries {
		require.NoError(t, idx.Append(e))
	}

	i, ok := idx.FindChunk(0, 1)
	require.True(t, ok)
	require.Equal(t, uint64(1), i)

	i, ok = idx.FindChunk(2, 0)
	require.True(t, ok)
	require.Equal(t, uint64(2), i)

	_, ok = idx.FindChunk(2, 1)
	require.False(t, ok)

	i, ok = idx.FindChunk(10, 1)
	require.True(t, ok)
	require.Equal(t, uint64(3), i)

	_, ok = idx.FindChunk(0, 5)
	require.False(t, ok)
}
