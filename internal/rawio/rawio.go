// Package rawio implements positional read/write with retry over an open
// file, the way GSD needs it: pread/pwrite semantics that never move the
// file's current offset and that loop until the requested byte count is
// satisfied or an unrecoverable error occurs.
//
// On platforms that cap a single transfer near INT_MAX (historically Windows
// and macOS), each individual pread/pwrite call is capped well below that
// limit so a single large chunk write never trips the platform ceiling;
// ReadAt/WriteAt loop to cover the full request regardless.
package rawio

import (
	"errors"
	"io"
	"os"
)

// maxTransfer bounds a single pread/pwrite call to INT_MAX/2, the cap
// platforms that limit a transfer near INT_MAX (Windows, macOS) need.
const maxTransfer = (1<<31 - 1) / 2

// ErrShortWrite is returned when a single pwrite call reports 0 bytes written
// with no error — on write, this is failure, not EOF.
var ErrShortWrite = errors.New("rawio: write transferred zero bytes")

// ReadAt reads up to len(buf) bytes from f starting at off, looping over
// partial transfers without moving f's file offset. A zero-byte transfer
// with no error means EOF: ReadAt returns the partial count read so far and
// a nil error, leaving it to the caller to decide whether a short read is a
// problem (the header loader and chunk reader both compare the returned
// count against what they expected).
func ReadAt(f *os.File, buf []byte, off int64) (int, error) {
	var total int
	for total < len(buf) {
		want := len(buf) - total
		if want > maxTransfer {
			want = maxTransfer
		}

		n, err := pread(f, buf[total:total+want], off+int64(total))
		total += n

		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}

		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// WriteAt writes exactly len(buf) bytes to f at off, looping over partial
// transfers without moving f's file offset. Zero bytes written with no error
// is treated as failure.
func WriteAt(f *os.File, buf []byte, off int64) (int, error) {
	var total int
	for total < len(buf) {
		want := len(buf) - total
		if want > maxTransfer {
			want = maxTransfer
		}

		n, err := pwrite(f, buf[total:total+want], off+int64(total))
		total += n

		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrShortWrite
		}
	}
	return total, nil
}
