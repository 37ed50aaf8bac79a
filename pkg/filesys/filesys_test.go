package filesys_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oywz99/gsd/pkg/filesys"
	"github.com/stretchr/testify/require"
)

func TestCreateDirForceAndConflict(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "sub")

	require.NoError(t, filesys.CreateDir(dir, 0755, false))
	require.NoError(t, filesys.CreateDir(dir, 0755, true))

	file := filepath.Join(base, "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	require.ErrorIs(t, filesys.CreateDir(file, 0755, true), filesys.ErrIsNotDir)
}

func TestCopyFileAndDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))

	dst := filepath.Join(base, "dst.txt")
	require.NoError(t, filesys.CopyFile(src, dst))

	got, err := filesys.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	srcDir := filepath.Join(base, "srcdir")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "nested", "a.txt"), []byte("a"), 0644))

	destDir := filepath.Join(base, "destdir")
	require.NoError(t, filesys.CopyDir(srcDir, destDir))

	got, err = filesys.ReadFile(filepath.Join(destDir, "nested", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "a", string(got))
}

func TestExists(t *testing.T) {
	base := t.TempDir()
	missing := filepath.Join(base, "missing")
	ok, err := filesys.Exists(missing)
	require.NoError(t, err)
	require.False(t, ok)

	present := filepath.Join(base, "present")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0644))
	ok, err = filesys.Exists(present)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDiscoverFindsGSDFiles(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "a.gsd"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "b.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "nested", "c.gsd"), []byte("x"), 0644))

	found, err := filesys.Discover(base)
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestBackupCopiesIntoGenerationName(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "data.gsd")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	backupDir := filepath.Join(base, "backups")
	dest, err := filesys.Backup(src, backupDir, "backup", 1, func(generation uint64, prefix string) string {
		return "backup_00001_1.gsd"
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(backupDir, "backup_00001_1.gsd"), dest)

	got, err := filesys.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}
