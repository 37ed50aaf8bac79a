package gsdfile_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/oywz99/gsd/internal/gsdfile"
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeVersion patches just the GSDVersion field of an already-initialized
// file at path, leaving the rest of the header and file content untouched.
func writeVersion(t *testing.T, path string, major, minor uint16) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], gsdformat.MakeVersion(major, minor))
	_, err = f.WriteAt(buf[:], 8)
	require.NoError(t, err)
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

func TestCreateAndOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "testapp", "myschema", gsdformat.MakeVersion(1, 0), gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.Equal(t, uint64(0), gf.GetNFrames())
	require.Equal(t, "testapp", gf.Application())
	require.Equal(t, "myschema", gf.Schema())
}

func TestWriteChunkReadBackSameFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, gf.WriteChunk("particles/position", gsdformat.TypeFloat64, 1, 1, data))

	entry, err := gf.FindChunk(0, "particles/position")
	require.NoError(t, err)
	require.Equal(t, uint64(0), entry.Frame)

	got, err := gf.ReadChunk(entry)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestFrameIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{1, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{2, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{3, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())

	require.Equal(t, uint64(3), gf.GetNFrames())

	e0, err := gf.FindChunk(0, "step")
	require.NoError(t, err)
	v0, err := gf.ReadChunk(e0)
	require.NoError(t, err)
	require.Equal(t, byte(1), v0[0])

	e2, err := gf.FindChunk(2, "step")
	require.NoError(t, err)
	v2, err := gf.ReadChunk(e2)
	require.NoError(t, err)
	require.Equal(t, byte(3), v2[0])
}

func TestFrameCarriesForwardMostRecentChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("rare", gsdformat.TypeUint8, 1, 1, []byte{7}))
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.EndFrame())

	entry, err := gf.FindChunk(2, "rare")
	require.NoError(t, err)
	require.Equal(t, uint64(0), entry.Frame)
}

func TestIndexGrowsAcrossAllocationBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	const total = gsdformat.InitialIndexAllocatedEntries + 5
	for i := 0; i < total; i++ {
		require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{byte(i), 0, 0, 0}))
		require.NoError(t, gf.EndFrame())
	}
	require.Equal(t, uint64(total), gf.GetNFrames())

	entry, err := gf.FindChunk(uint64(total-1), "step")
	require.NoError(t, err)
	got, err := gf.ReadChunk(entry)
	require.NoError(t, err)
	require.Equal(t, byte(total-1), got[0])
}

func TestReopenReadOnlyAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, gf.WriteChunk("position", gsdformat.TypeFloat32, 2, 3, make([]byte, 2*3*4)))
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.Close())

	reopened, err := gsdfile.Open(path, gsdfile.FlagReadOnly, testLogger(t))
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(1), reopened.GetNFrames())
	entry, err := reopened.FindChunk(0, "position")
	require.NoError(t, err)
	require.Equal(t, uint64(2), entry.N)
	require.Equal(t, uint8(3), entry.M)

	err = reopened.WriteChunk("position", gsdformat.TypeFloat32, 2, 3, make([]byte, 2*3*4))
	require.Error(t, err)
}

func TestTruncateResetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{1, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	require.Equal(t, uint64(1), gf.GetNFrames())

	require.NoError(t, gf.Truncate())
	require.Equal(t, uint64(0), gf.GetNFrames())
	require.Equal(t, "app", gf.Application())

	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{9, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	entry, err := gf.FindChunk(0, "step")
	require.NoError(t, err)
	got, err := gf.ReadChunk(entry)
	require.NoError(t, err)
	require.Equal(t, byte(9), got[0])
}

func TestFindChunkMissingNameReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{1, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())

	_, err = gf.FindChunk(0, "does/not/exist")
	require.Error(t, err)
}

func TestFindMatchingChunkName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("particles/position", gsdformat.TypeFloat32, 1, 1, []byte{0, 0, 0, 0}))
	require.NoError(t, gf.WriteChunk("particles/velocity", gsdformat.TypeFloat32, 1, 1, []byte{0, 0, 0, 0}))
	require.NoError(t, gf.WriteChunk("log/time", gsdformat.TypeFloat64, 1, 1, make([]byte, 8)))
	require.NoError(t, gf.EndFrame())

	name, next := gf.FindMatchingChunkName("particles/", 0)
	require.Equal(t, "particles/position", name)
	name, next = gf.FindMatchingChunkName("particles/", next)
	require.Equal(t, "particles/velocity", name)
	name, _ = gf.FindMatchingChunkName("particles/", next)
	require.Equal(t, "", name)
}

func TestAppendModeCannotFindChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{1, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	require.NoError(t, gf.Close())

	appendHandle, err := gsdfile.Open(path, gsdfile.FlagAppend, testLogger(t))
	require.NoError(t, err)
	defer appendHandle.Close()

	require.Equal(t, uint64(1), appendHandle.GetNFrames())
	_, err = appendHandle.FindChunk(0, "step")
	require.Error(t, err)

	require.NoError(t, appendHandle.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{2, 0, 0, 0}))
	require.NoError(t, appendHandle.EndFrame())
	require.Equal(t, uint64(2), appendHandle.GetNFrames())
}

func TestWriteChunkRejectsMismatchedDataLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	err = gf.WriteChunk("step", gsdformat.TypeUint32, 2, 1, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestLegacyVersion03Accepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	require.NoError(t, gsdfile.Create(path, "app", "schema", 0))
	writeVersion(t, path, 0, 3)

	gf, err := gsdfile.Open(path, gsdfile.FlagReadOnly, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()
}

func TestPreLegacyVersionNeedsUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	require.NoError(t, gsdfile.Create(path, "app", "schema", 0))
	writeVersion(t, path, 0, 2)

	_, err := gsdfile.Open(path, gsdfile.FlagReadOnly, testLogger(t))
	require.Error(t, err)
}

func TestCreateAndOpenRejectsReadOnlyFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	_, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadOnly, false, testLogger(t))
	require.Error(t, err)
}

func TestCreateAndOpenAppendFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagAppend, false, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.NoError(t, gf.WriteChunk("step", gsdformat.TypeUint32, 1, 1, []byte{1, 0, 0, 0}))
	require.NoError(t, gf.EndFrame())
	require.Equal(t, uint64(1), gf.GetNFrames())
}

func TestCreateAndOpenExclusiveFailsIfFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	require.NoError(t, gsdfile.Create(path, "app", "schema", 0))

	_, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, true, testLogger(t))
	require.Error(t, err)
}

func TestCreateAndOpenExclusiveSucceedsForNewPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gsd")
	gf, err := gsdfile.CreateAndOpen(path, "app", "schema", 0, gsdfile.FlagReadWrite, true, testLogger(t))
	require.NoError(t, err)
	defer gf.Close()

	require.Equal(t, uint64(0), gf.GetNFrames())
}

func TestInvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-gsd.bin")
	require.NoError(t, os.WriteFile(path, []byte("this is not a gsd file, just some bytes"), 0644))

	_, err := gsdfile.Open(path, gsdfile.FlagReadOnly, testLogger(t))
	require.Error(t, err)
}
