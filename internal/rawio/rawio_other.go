//go:build !unix

package rawio

import "os"

// pread falls back to the stdlib's own positional read, which internally
// uses the platform's equivalent of pread (ReadFile with an OVERLAPPED
// offset on Windows) without perturbing the file's current position.
func pread(f *os.File, buf []byte, off int64) (int, error) {
	return f.ReadAt(buf, off)
}

// pwrite falls back to the stdlib's own positional write.
func pwrite(f *os.File, buf []byte, off int64) (int, error) {
	return f.WriteAt(buf, off)
}
