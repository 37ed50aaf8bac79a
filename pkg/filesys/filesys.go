// Package filesys provides file system utilities used by the GSD runtime:
// directory management, copying, searching, and the discovery/backup
// conveniences that let a caller manage a directory of GSD files without
// hand-rolling glob and copy logic.
package filesys

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && err == nil {
		return fmt.Errorf("%s: %w", dirPath, os.ErrExist)
	}
	if !force && !os.IsNotExist(err) {
		return err
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	return os.Chmod(dirPath, permission)
}

// DeleteDir deletes a directory and all its contents recursively.
func DeleteDir(path string) error {
	return os.RemoveAll(path)
}

// CopyDir copies the entire contents of a source directory to a destination
// directory, preserving file modes.
func CopyDir(src, dest string) error {
	srcStat, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !srcStat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dest, srcStat.Mode()); err != nil {
		return err
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		destPath := filepath.Join(dest, path[len(src)+1:])
		if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
			return err
		}

		if err := CopyFile(path, destPath); err != nil {
			return err
		}
		return os.Chmod(destPath, info.Mode())
	})
}

// ReadDir resolves dirName (which may be a glob pattern) to matching paths.
func ReadDir(dirName string) ([]string, error) {
	return filepath.Glob(dirName)
}

// CreateFile creates a new file at filePath.
//
// If the file already exists:
//   - If 'force' is true, it overwrites the existing file.
//   - If 'force' is false, it returns an error.
func CreateFile(filePath string, force bool) (*os.File, error) {
	_, err := os.Stat(filePath)
	if !force && err == nil {
		return nil, fmt.Errorf("%s: %w", filePath, os.ErrExist)
	}
	return os.Create(filePath)
}

// WriteFile writes contents to filePath, creating or truncating it.
func WriteFile(filePath string, permission os.FileMode, contents []byte) error {
	return os.WriteFile(filePath, contents, permission)
}

// DeleteFile removes filePath.
func DeleteFile(filePath string) error {
	return os.Remove(filePath)
}

// CopyFile copies a single file from sourcePath to destPath. The copy is
// created by os.Create (mode 0666 before umask); no metadata is copied.
func CopyFile(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}

// ReadFile reads the entire content of filePath.
func ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(filePath)
}

// SearchFiles searches sourceDir for files named searchFile, skipping any
// path that contains one of excludeDirs as a substring.
func SearchFiles(sourceDir string, excludeDirs []string, searchFile string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(sourceDir, fs.WalkDirFunc(func(path string, ds fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !ds.IsDir() && !isAncestor(excludeDirs, path) && filepath.Base(path) == searchFile {
			files = append(files, path)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return files, nil
}

// SearchFileExtensions searches sourceDir for files with the given
// extension, skipping any path that contains one of excludeDirs as a
// substring.
func SearchFileExtensions(sourceDir string, excludeDirs []string, extension string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(sourceDir, fs.WalkDirFunc(func(path string, ds fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !ds.IsDir() && !isAncestor(excludeDirs, path) && filepath.Ext(path) == extension {
			files = append(files, path)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Exists reports whether file exists.
func Exists(file string) (bool, error) {
	_, err := os.Stat(file)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Discover scans dataDir for GSD container files (matched by the ".gsd"
// extension) and returns their paths. It does not open or validate any of
// them; it's a directory-listing convenience for callers that want to find
// candidate files before calling gsd.Open on each.
func Discover(dataDir string) ([]string, error) {
	return SearchFileExtensions(dataDir, nil, ".gsd")
}

// Backup copies the file at path into backupDir, naming the copy
// nameFn(generation, prefix) (see package snapshot). It returns the path
// of the new backup copy.
func Backup(path, backupDir, prefix string, generation uint64, nameFn func(generation uint64, prefix string) string) (string, error) {
	if err := CreateDir(backupDir, 0755, true); err != nil {
		return "", fmt.Errorf("filesys: create backup directory %s: %w", backupDir, err)
	}

	destName := nameFn(generation, prefix)
	destPath := filepath.Join(backupDir, destName)

	if err := CopyFile(path, destPath); err != nil {
		return "", fmt.Errorf("filesys: backup %s to %s: %w", path, destPath, err)
	}

	return destPath, nil
}

// isAncestor reports whether path contains any of excludeDirs as a
// substring.
func isAncestor(excludeDirs []string, path string) bool {
	for _, excludeDir := range excludeDirs {
		if strings.Contains(path, excludeDir) {
			return true
		}
	}
	return false
}
