//go:build unix

package chunkindex

import (
	"fmt"
	"os"

	"github.com/oywz99/gsd/internal/gsdformat"
	"golang.org/x/sys/unix"
)

// mapping is the unix mmap backing for ModeMapped: the allocated entries
// are mapped read-only straight from the file. LoadMapped decodes every
// allocated entry once, to validate the used prefix, and drops that copy;
// afterward entries are decoded from the mapping one at a time.
type mapping struct {
	data   []byte // the full page-aligned mapping
	offset int    // byte offset of entry 0 within data, to correct for page alignment
}

// pageSize is resolved once; mmap requires the mapping offset to be a
// multiple of it even though the index itself starts at an arbitrary file
// offset.
var pageSize = os.Getpagesize()

func newMapping(f *os.File, location int64, allocated uint64) (*mapping, error) {
	length := int(allocated * gsdformat.IndexEntrySize)
	if length == 0 {
		return &mapping{}, nil
	}

	aligned := location - int64(location)%int64(pageSize)
	pad := int(location - aligned)

	data, err := unix.Mmap(int(f.Fd()), aligned, length+pad, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("chunkindex: mmap: %w", err)
	}
	return &mapping{data: data, offset: pad}, nil
}

func (m *mapping) close() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}

func (m *mapping) entry(i uint64) (gsdformat.IndexEntry, error) {
	start := m.offset + int(i)*gsdformat.IndexEntrySize
	end := start + gsdformat.IndexEntrySize
	if end > len(m.data) {
		return gsdformat.IndexEntry{}, fmt.Errorf("chunkindex: mapped entry %d out of range", i)
	}
	return gsdformat.DecodeIndexEntry(m.data[start:end])
}

// LoadMapped memory-maps the index for a read-only handle.
func LoadMapped(f *os.File, location int64, allocated uint64, fileSize int64, namelistNumEntries int) (*Index, error) {
	m, err := newMapping(f, location, allocated)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		mode:      ModeMapped,
		location:  location,
		allocated: allocated,
		mapping:   m,
	}

	n, err := countValidPrefixMapped(idx, allocated, fileSize, namelistNumEntries)
	if err != nil {
		m.close()
		return nil, err
	}
	idx.numEntries = n
	idx.written = n
	return idx, nil
}

// Close releases the mapping. Only meaningful for ModeMapped; a no-op
// otherwise.
func (idx *Index) Close() error {
	if idx.mode == ModeMapped && idx.mapping != nil {
		return idx.mapping.close()
	}
	return nil
}

func countValidPrefixMapped(idx *Index, allocated uint64, fileSize int64, namelistNumEntries int) (uint64, error) {
	entries := make([]gsdformat.IndexEntry, allocated)
	for i := uint64(0); i < allocated; i++ {
		e, err := idx.mapping.entry(i)
		if err != nil {
			return 0, err
		}
		entries[i] = e
	}
	return countValidPrefix(entries, fileSize, allocated, namelistNumEntries)
}
