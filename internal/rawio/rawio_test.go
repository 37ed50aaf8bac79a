package rawio_test

import (
	"os"
	"testing"

	"github.com/oywz99/gsd/internal/rawio"
	"github.com/stretchr/testify/require"
)

func TestWriteAtThenReadAtRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rawio-*.bin")
	require.NoError(t, err)
	defer f.Close()

	payload := make([]byte, 5*1024*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	n, err := rawio.WriteAt(f, payload, 17)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	got := make([]byte, len(payload))
	n, err = rawio.ReadAt(f, got, 17)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, got)
}

func TestReadAtShortReadReturnsPartialCount(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rawio-*.bin")
	require.NoError(t, err)
	defer f.Close()

	_, err = rawio.WriteAt(f, []byte("hello"), 0)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := rawio.ReadAt(f, buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestReadAtPreservesFileOffset(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rawio-*.bin")
	require.NoError(t, err)
	defer f.Close()

	_, err = rawio.WriteAt(f, []byte("0123456789"), 0)
	require.NoError(t, err)

	pos, err := f.Seek(3, os.SEEK_SET)
	require.NoError(t, err)
	require.Equal(t, int64(3), pos)

	buf := make([]byte, 4)
	_, err = rawio.ReadAt(f, buf, 6)
	require.NoError(t, err)
	require.Equal(t, "6789", string(buf))

	cur, err := f.Seek(0, os.SEEK_CUR)
	require.NoError(t, err)
	require.Equal(t, int64(3), cur)
}
