// Package namelist maintains the table of chunk names shared by every frame
// of a GSD file. Names are appended once, the first time a chunk with that
// name is written, and never removed or rewritten — later frames reference
// the same name by its numeric id.
package namelist

import (
	"fmt"
	"os"
	"strings"

	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/internal/rawio"
)

// NotFound is returned by ID when name has never been seen and the table is
// not allowed to grow (read-only handles never append to the namelist).
const NotFound uint16 = 0xFFFF

// Table is the in-memory view of the namelist: one fixed-size slot per
// known chunk name, loaded in full regardless of file access mode, unlike
// the index which is sometimes mmap'd.
type Table struct {
	entries  []gsdformat.NamelistEntry
	numUsed  int
	location int64
}

// Load reads allocated entries starting at location from f and determines
// how many of them are in use: the first empty slot, or the full capacity
// if every slot is occupied.
func Load(f *os.File, location int64, allocatedEntries uint64) (*Table, error) {
	buf := make([]byte, allocatedEntries*gsdformat.NamelistEntrySize)
	n, err := rawio.ReadAt(f, buf, location)
	if err != nil {
		return nil, fmt.Errorf("namelist: read: %w", err)
	}
	if uint64(n) != uint64(len(buf)) {
		return nil, fmt.Errorf("namelist: short read: got %d bytes, want %d", n, len(buf))
	}

	entries, err := gsdformat.DecodeNamelistEntries(buf)
	if err != nil {
		return nil, fmt.Errorf("namelist: decode: %w", err)
	}

	numUsed := len(entries)
	for i, e := range entries {
		if e.Empty() {
			numUsed = i
			break
		}
	}

	return &Table{entries: entries, numUsed: numUsed, location: location}, nil
}

// NumEntries returns the number of names currently in use.
func (t *Table) NumEntries() int { return t.numUsed }

// Capacity returns the number of allocated (used + free) slots.
func (t *Table) Capacity() int { return len(t.entries) }

// Name returns the name stored at id, or "" if id is out of range.
func (t *Table) Name(id uint16) string {
	if int(id) >= t.numUsed {
		return ""
	}
	return t.entries[id].String()
}

// Full reports whether every allocated slot is in use; a write that needs a
// new name in this state fails with ErrorCodeNamelistFull upstream.
func (t *Table) Full() bool { return t.numUsed >= len(t.entries) }

// ID returns the numeric id of name. If name is not present and create is
// true, it is appended to the next free slot and immediately persisted to f
// (so the name is durable even if the process crashes before end_frame);
// the returned sync flag tells the caller an fsync is owed. If name is not
// present and create is false (read-only handles), ID returns NotFound.
//
// The table is never grown: when it is Full(), ID with create set returns
// an error for a new name, and the chunk-write path reports the namelist
// as full.
func (t *Table) ID(f *os.File, name string, create bool) (id uint16, synced bool, err error) {
	for i := 0; i < t.numUsed; i++ {
		if t.entries[i].String() == name {
			return uint16(i), false, nil
		}
	}

	if !create {
		return NotFound, false, nil
	}
	if t.Full() {
		return NotFound, false, fmt.Errorf("namelist: table is full")
	}

	entry := gsdformat.NewNamelistEntry(name)
	slot := t.numUsed
	off := t.location + int64(slot)*gsdformat.NamelistEntrySize

	n, err := rawio.WriteAt(f, entry.Encode(), off)
	if err != nil {
		return NotFound, false, fmt.Errorf("namelist: write: %w", err)
	}
	if n != gsdformat.NamelistEntrySize {
		return NotFound, false, fmt.Errorf("namelist: short write: wrote %d bytes, want %d", n, gsdformat.NamelistEntrySize)
	}

	t.entries[slot] = entry
	t.numUsed++
	return uint16(slot), true, nil
}

// MatchingChunkNames returns, in namelist order, every name that has prefix
// as a prefix. It mirrors the C API's cursor-based iteration but returns
// the whole match set at once since the in-memory table is already fully
// loaded.
func (t *Table) MatchingChunkNames(prefix string) []string {
	var out []string
	for i := 0; i < t.numUsed; i++ {
		name := t.entries[i].String()
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// FindMatchingChunkName returns the first name with the given prefix at or
// after start (start is an index into the namelist, not a byte offset), and
// the index to pass as start on the next call to continue the scan. It
// returns ("", -1) when the scan is exhausted.
func (t *Table) FindMatchingChunkName(prefix string, start int) (string, int) {
	for i := start; i >= 0 && i < t.numUsed; i++ {
		if strings.HasPrefix(t.entries[i].String(), prefix) {
			return t.entries[i].String(), i + 1
		}
	}
	return "", -1
}
