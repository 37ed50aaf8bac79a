//go:build unix

package rawio

import (
	"os"

	"golang.org/x/sys/unix"
)

// pread issues a single unix pread(2) against the file's descriptor. Unlike
// Seek+Read, this never perturbs the file's current offset, which matters
// because a *gsdfile.File handle interleaves index-growth copies, index
// and namelist writes, and chunk reads on the same descriptor.
func pread(f *os.File, buf []byte, off int64) (int, error) {
	n, err := unix.Pread(int(f.Fd()), buf, off)
	if err != nil {
		return n, err
	}
	return n, nil
}

// pwrite issues a single unix pwrite(2) against the file's descriptor.
func pwrite(f *os.File, buf []byte, off int64) (int, error) {
	n, err := unix.Pwrite(int(f.Fd()), buf, off)
	if err != nil {
		return n, err
	}
	return n, nil
}
