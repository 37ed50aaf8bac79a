// Package chunkindex implements the growable, append-only table that maps
// (frame, name) pairs to the byte location of their chunk data. It is the
// component that gives three different access modes their different memory
// footprints: a read-write handle loads the whole index, a read-only handle
// maps it instead of copying it, and an append handle keeps only the
// handful of entries it hasn't written yet.
package chunkindex

import (
	"fmt"
	"os"

	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/internal/rawio"
)

// Mode selects how the index keeps its entries in memory.
type Mode int

const (
	// ModeLoaded holds every allocated entry in a plain Go slice and
	// supports both reads and appends. Used by read-write handles.
	ModeLoaded Mode = iota
	// ModeMapped memory-maps the allocated entries read-only. Used by
	// read-only handles on platforms that support mmap.
	ModeMapped
	// ModeAppend keeps only the entries written since the file was
	// opened; the already-durable prefix is read once at load time to
	// count the used entries and then dropped. Used by append handles,
	// which never look entries up.
	ModeAppend
)

// Index is the in-memory view of one file's index block.
type Index struct {
	mode Mode

	location  int64
	allocated uint64

	// numEntries is the number of valid, in-use entries, determined at
	// Load time by bisecting for the first empty (Location == 0) slot.
	numEntries uint64
	// written is how many of those entries are already durable on disk;
	// entries[written:numEntries] (or the whole of pending, in
	// ModeAppend) are new this session and still owed a Flush.
	written uint64

	// loaded backs ModeLoaded: every allocated slot, updated in place.
	loaded []gsdformat.IndexEntry
	// pending backs ModeAppend: just the unwritten tail.
	pending []gsdformat.IndexEntry

	mapping *mapping // backs ModeMapped; nil otherwise
}

// IsEntryValid reports whether e could plausibly be a live chunk reference
// given the file's current size, the index's allocated capacity, and the
// number of known names. A corrupt or truncated file fails one of these
// checks, and open-time validation reports any used entry that fails them
// as corruption.
func IsEntryValid(e gsdformat.IndexEntry, fileSize int64, indexAllocatedEntries uint64, namelistNumEntries int) bool {
	size := gsdformat.SizeOf(e.Type)
	if size == 0 {
		return false
	}
	if e.Location < 0 {
		return false
	}
	span := e.N * uint64(e.M) * size
	if e.Location+int64(span) > fileSize {
		return false
	}
	if e.Frame >= indexAllocatedEntries {
		return false
	}
	if int(e.ID) >= namelistNumEntries {
		return false
	}
	if e.Flags != 0 {
		return false
	}
	return true
}

// countValidPrefix determines how many leading entries of a candidate
// index are in use and validates them. "In use" and "valid" are distinct
// questions: an entry with Location == 0 is simply empty (never written),
// while a used entry (Location != 0) that fails IsEntryValid or breaks
// frame monotonicity is corrupt and must raise an error rather than be
// silently treated as if it were never written.
//
// entries[0].Location == 0 means the index has never had anything written
// to it: zero entries, no error. Otherwise entries[0] must validate, and
// the used/empty boundary is found by bisecting strictly on Location != 0
// (if the last allocated slot is used, the whole index is in use); the
// whole counted prefix is then walked once to confirm every entry
// validates and frames are non-decreasing, catching a corrupt middle.
func countValidPrefix(entries []gsdformat.IndexEntry, fileSize int64, indexAllocatedEntries uint64, namelistNumEntries int) (uint64, error) {
	n := uint64(len(entries))
	if n == 0 {
		return 0, nil
	}
	if entries[0].Location == 0 {
		return 0, nil
	}
	if !IsEntryValid(entries[0], fileSize, indexAllocatedEntries, namelistNumEntries) {
		return 0, fmt.Errorf("chunkindex: entry 0 is used but failed validation")
	}

	used := func(i uint64) bool { return entries[i].Location != 0 }

	var count uint64
	if used(n - 1) {
		count = n
	} else {
		lo, hi := uint64(0), n-1
		for lo+1 < hi {
			mid := (lo + hi) / 2
			if used(mid) {
				lo = mid
			} else {
				hi = mid
			}
		}
		count = lo + 1
	}

	var lastFrame uint64
	for i := uint64(0); i < count; i++ {
		if !IsEntryValid(entries[i], fileSize, indexAllocatedEntries, namelistNumEntries) {
			return 0, fmt.Errorf("chunkindex: entry %d is used but failed validation", i)
		}
		if i > 0 && entries[i].Frame < lastFrame {
			return 0, fmt.Errorf("chunkindex: entry %d has frame %d, less than preceding frame %d", i, entries[i].Frame, lastFrame)
		}
		lastFrame = entries[i].Frame
	}
	return count, nil
}

// LoadWritable reads the full index into memory for a read-write handle.
func LoadWritable(f *os.File, location int64, allocated uint64, fileSize int64, namelistNumEntries int) (*Index, error) {
	entries, err := readEntries(f, location, allocated)
	if err != nil {
		return nil, err
	}
	n, err := countValidPrefix(entries, fileSize, allocated, namelistNumEntries)
	if err != nil {
		return nil, err
	}
	return &Index{
		mode:       ModeLoaded,
		location:   location,
		allocated:  allocated,
		numEntries: n,
		written:    n,
		loaded:     entries,
	}, nil
}

// LoadAppend reads just enough of the index to determine how many entries
// are valid, then discards the backing array: an append handle never reads
// entries back, it only ever adds new ones.
func LoadAppend(f *os.File, location int64, allocated uint64, fileSize int64, namelistNumEntries int) (*Index, error) {
	entries, err := readEntries(f, location, allocated)
	if err != nil {
		return nil, err
	}
	n, err := countValidPrefix(entries, fileSize, allocated, namelistNumEntries)
	if err != nil {
		return nil, err
	}
	return &Index{
		mode:       ModeAppend,
		location:   location,
		allocated:  allocated,
		numEntries: n,
		written:    n,
	}, nil
}

func readEntries(f *os.File, location int64, allocated uint64) ([]gsdformat.IndexEntry, error) {
	buf := make([]byte, allocated*gsdformat.IndexEntrySize)
	n, err := rawio.ReadAt(f, buf, location)
	if err != nil {
		return nil, fmt.Errorf("chunkindex: read: %w", err)
	}
	if uint64(n) != uint64(len(buf)) {
		return nil, fmt.Errorf("chunkindex: short read: got %d bytes, want %d", n, len(buf))
	}
	return gsdformat.DecodeIndexEntries(buf)
}

// Mode reports which access mode this index was opened in.
func (idx *Index) Mode() Mode { return idx.mode }

// NumEntries returns the number of valid, in-use entries.
func (idx *Index) NumEntries() uint64 { return idx.numEntries }

// Allocated returns the number of allocated (used + free) slots.
func (idx *Index) Allocated() uint64 { return idx.allocated }

// Location returns the current file offset of the index block.
func (idx *Index) Location() int64 { return idx.location }

// Full reports whether every allocated slot holds a valid entry.
func (idx *Index) Full() bool { return idx.numEntries >= idx.allocated }

// Entry returns the i'th entry. Valid for ModeLoaded and ModeMapped; not
// supported in ModeAppend, which mirrors gsd_find_chunk's restriction
// against lookups on append handles.
func (idx *Index) Entry(i uint64) (gsdformat.IndexEntry, error) {
	switch idx.mode {
	case ModeLoaded:
		if i >= uint64(len(idx.loaded)) {
			return gsdformat.IndexEntry{}, fmt.Errorf("chunkindex: entry %d out of range", i)
		}
		return idx.loaded[i], nil
	case ModeMapped:
		return idx.mapping.entry(i)
	default:
		return gsdformat.IndexEntry{}, fmt.Errorf("chunkindex: random access not supported in append mode")
	}
}

// Append stages a new entry for the current frame. It must only be called
// after confirming !Full(); the caller (the chunk-write path) is
// responsible for expanding first.
func (idx *Index) Append(e gsdformat.IndexEntry) error {
	if idx.Full() {
		return fmt.Errorf("chunkindex: index is full, caller must expand before appending")
	}
	switch idx.mode {
	case ModeLoaded:
		idx.loaded[idx.numEntries] = e
	case ModeAppend:
		idx.pending = append(idx.pending, e)
	default:
		return fmt.Errorf("chunkindex: cannot append in mapped (read-only) mode")
	}
	idx.numEntries++
	return nil
}

// Flush writes every entry added since the last Flush out to disk. It
// returns true if it wrote anything, which callers use only for logging —
// durability of the index itself never depends on a fsync here; that
// happens when the index grows (gsdfile's expandIndex) and, for the
// namelist, at EndFrame.
func (idx *Index) Flush(f *os.File) (bool, error) {
	if idx.written >= idx.numEntries {
		return false, nil
	}

	var unwritten []gsdformat.IndexEntry
	switch idx.mode {
	case ModeLoaded:
		unwritten = idx.loaded[idx.written:idx.numEntries]
	case ModeAppend:
		unwritten = idx.pending
	default:
		return false, fmt.Errorf("chunkindex: cannot flush a read-only index")
	}

	off := idx.location + int64(idx.written)*gsdformat.IndexEntrySize
	buf := gsdformat.EncodeIndexEntries(unwritten)
	n, err := rawio.WriteAt(f, buf, off)
	if err != nil {
		return false, fmt.Errorf("chunkindex: write: %w", err)
	}
	if n != len(buf) {
		return false, fmt.Errorf("chunkindex: short write: wrote %d bytes, want %d", n, len(buf))
	}

	idx.written = idx.numEntries
	if idx.mode == ModeAppend {
		idx.pending = idx.pending[:0]
	}
	return true, nil
}

// Relocate implements the append-only growth protocol: the index doubles
// in allocated size and physically moves to newLocation (always the
// current end of file, chosen by the caller, which owns the header and
// the file-size bookkeeping). newAllocated must be >= 2*idx.allocated.
//
// In ModeLoaded, the whole logical array is already in memory; Relocate
// just grows it with freshly zeroed slots and rewrites it in full at the
// new location. In ModeAppend, nothing is held in memory, so the existing
// on-disk bytes are physically copied from the old location to the new one
// in bounded chunks, then the new tail is zero-padded — never all at once,
// so growth stays a fixed, small memory addition even for a huge index.
func (idx *Index) Relocate(f *os.File, newLocation int64, newAllocated uint64) error {
	if newAllocated < idx.allocated {
		return fmt.Errorf("chunkindex: new allocation %d smaller than current %d", newAllocated, idx.allocated)
	}

	switch idx.mode {
	case ModeLoaded:
		grown := make([]gsdformat.IndexEntry, newAllocated)
		copy(grown, idx.loaded)
		buf := gsdformat.EncodeIndexEntries(grown)
		n, err := rawio.WriteAt(f, buf, newLocation)
		if err != nil {
			return fmt.Errorf("chunkindex: relocate write: %w", err)
		}
		if n != len(buf) {
			return fmt.Errorf("chunkindex: relocate short write: wrote %d bytes, want %d", n, len(buf))
		}
		idx.loaded = grown

	case ModeAppend:
		if err := copyIndexBytes(f, idx.location, newLocation, idx.allocated*gsdformat.IndexEntrySize); err != nil {
			return err
		}
		padBytes := (newAllocated - idx.allocated) * gsdformat.IndexEntrySize
		zero := make([]byte, padBytes)
		n, err := rawio.WriteAt(f, zero, newLocation+int64(idx.allocated*gsdformat.IndexEntrySize))
		if err != nil {
			return fmt.Errorf("chunkindex: relocate pad: %w", err)
		}
		if uint64(n) != uint64(len(zero)) {
			return fmt.Errorf("chunkindex: relocate pad short write: wrote %d bytes, want %d", n, len(zero))
		}

	default:
		return fmt.Errorf("chunkindex: cannot relocate a read-only index")
	}

	idx.location = newLocation
	idx.allocated = newAllocated
	return nil
}

// copyIndexBytes physically copies n bytes from src to dst within the same
// file, CopyBufferSize at a time, so relocating even a very large index
// never requires allocating more than one small buffer.
func copyIndexBytes(f *os.File, src, dst int64, n uint64) error {
	buf := make([]byte, gsdformat.CopyBufferSize)
	var copied uint64
	for copied < n {
		want := uint64(len(buf))
		if remaining := n - copied; remaining < want {
			want = remaining
		}
		chunk := buf[:want]

		rn, err := rawio.ReadAt(f, chunk, src+int64(copied))
		if err != nil {
			return fmt.Errorf("chunkindex: relocate copy read: %w", err)
		}
		if uint64(rn) != want {
			return fmt.Errorf("chunkindex: relocate copy short read: got %d bytes, want %d", rn, want)
		}

		wn, err := rawio.WriteAt(f, chunk, dst+int64(copied))
		if err != nil {
			return fmt.Errorf("chunkindex: relocate copy write: %w", err)
		}
		if uint64(wn) != want {
			return fmt.Errorf("chunkindex: relocate copy short write: wrote %d bytes, want %d", wn, want)
		}

		copied += want
	}
	return nil
}

// FindChunk returns the index of the entry matching (frame, id) — the
// rightmost entry with Frame <= frame, walked backward while the frame
// number stays equal, looking for a matching id. It returns (0, false) if
// no such entry exists. Not supported in ModeAppend.
func (idx *Index) FindChunk(frame uint64, id uint16) (uint64, bool) {
	if idx.numEntries == 0 {
		return 0, false
	}

	lo, hi := uint64(0), idx.numEntries
	for lo < hi {
		mid := (lo + hi) / 2
		e, err := idx.Entry(mid)
		if err != nil {
			return 0, false
		}
		if e.Frame <= frame {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false
	}

	i := lo - 1
	targetFrame, err := idx.entryFrame(i)
	if err != nil {
		return 0, false
	}
	for {
		e, err := idx.Entry(i)
		if err != nil || e.Frame != targetFrame {
			break
		}
		if e.ID == id {
			return i, true
		}
		if i == 0 {
			break
		}
		i--
	}
	return 0, false
}

func (idx *Index) entryFrame(i uint64) (uint64, error) {
	e, err := idx.Entry(i)
	if err != nil {
		return 0, err
	}
	return e.Frame, nil
}
