package gsdfile

import (
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/internal/namelist"
	"github.com/oywz99/gsd/internal/rawio"
	"github.com/oywz99/gsd/pkg/errors"
)

// EndFrame commits the current frame: every chunk written since the last
// EndFrame (or since opening) becomes part of frame N, and subsequent
// writes belong to frame N+1. The index's unwritten entries are flushed
// regardless; the file is only fsynced if this frame introduced a chunk
// name the namelist didn't already know, mirroring the upstream policy
// that an fsync is only owed when something durable-but-unflushed (a new
// name) was written outside the index itself.
func (gf *File) EndFrame() error {
	if gf.flag == FlagReadOnly {
		return errors.NewInvalidFlagError("EndFrame", gf.flag.String())
	}

	if _, err := gf.index.Flush(gf.f); err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to flush index").WithPath(gf.path)
	}

	if gf.namelistChanged {
		if err := gf.f.Sync(); err != nil {
			return errors.ClassifySyncError(err, gf.path, gf.fileSize)
		}
		gf.namelistChanged = false
	}

	gf.curFrame++
	return nil
}

// WriteChunk appends data as a new chunk named name, belonging to the
// current (not-yet-ended) frame, described as N rows of M columns of typ.
// len(data) must equal N*M*SizeofType(typ).
func (gf *File) WriteChunk(name string, typ gsdformat.Type, n uint64, m uint8, data []byte) error {
	if gf.flag == FlagReadOnly {
		return errors.NewInvalidFlagError("WriteChunk", gf.flag.String())
	}
	if n == 0 || m == 0 {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidArgument, "chunk shape must be non-zero").
			WithField("N,M").WithProvided([2]uint64{n, uint64(m)})
	}
	size := gsdformat.SizeOf(typ)
	if size == 0 {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidArgument, "unrecognized element type").
			WithField("Type").WithProvided(typ)
	}
	want := n * uint64(m) * size
	if uint64(len(data)) != want {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidArgument, "data length does not match N*M*sizeof(type)").
			WithField("data").WithProvided(len(data)).WithExpected(want)
	}

	id, err := gf.resolveNameID(name)
	if err != nil {
		return err
	}

	if gf.index.Full() {
		if err := gf.expandIndex(); err != nil {
			return err
		}
	}

	location := gf.fileSize
	wn, werr := rawio.WriteAt(gf.f, data, location)
	if werr != nil {
		return errors.NewFormatError(werr, errors.ErrorCodeIO, "failed to write chunk payload").WithPath(gf.path).WithOffset(location)
	}
	if uint64(wn) != want {
		return errors.NewFormatError(nil, errors.ErrorCodeIO, "short write writing chunk payload").WithPath(gf.path).WithOffset(location)
	}
	gf.fileSize += int64(want)

	entry := gsdformat.IndexEntry{
		Frame:    gf.curFrame,
		N:        n,
		Location: location,
		ID:       id,
		M:        m,
		Type:     typ,
	}
	if err := gf.index.Append(entry); err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to append index entry").WithPath(gf.path)
	}
	return nil
}

// resolveNameID looks name up in the namelist, appending it if this is the
// first time it's been seen in this file, and records that a pending
// fsync is owed for the new name.
func (gf *File) resolveNameID(name string) (uint16, error) {
	if existing, _, err := gf.names.ID(gf.f, name, false); err == nil && existing != namelist.NotFound {
		return existing, nil
	}
	if gf.names.Full() {
		return 0, errors.NewNamelistFullError(name)
	}

	id, synced, err := gf.names.ID(gf.f, name, true)
	if err != nil {
		return 0, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to append new chunk name").WithPath(gf.path)
	}
	if synced {
		gf.namelistChanged = true
	}
	return id, nil
}

// expandIndex doubles the index's allocation and relocates it to the
// current end of file. It fsyncs twice, once right after the relocated
// index itself is durable and once after the header pointing at its new
// location is durable, so a crash between the two writes can never leave
// the header pointing at an index that was never fully written.
func (gf *File) expandIndex() error {
	newAllocated := gf.index.Allocated() * 2
	newLocation := gf.fileSize

	if err := gf.index.Relocate(gf.f, newLocation, newAllocated); err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to relocate index").WithPath(gf.path)
	}
	gf.fileSize = newLocation + int64(newAllocated*gsdformat.IndexEntrySize)

	if err := gf.f.Sync(); err != nil {
		return errors.ClassifySyncError(err, gf.path, newLocation)
	}

	gf.header.IndexLocation = uint64(newLocation)
	gf.header.IndexAllocatedEntries = newAllocated
	if err := gf.writeHeader(); err != nil {
		return err
	}

	if err := gf.f.Sync(); err != nil {
		return errors.ClassifySyncError(err, gf.path, 0)
	}
	return nil
}

func (gf *File) writeHeader() error {
	buf := gf.header.Encode()
	n, err := rawio.WriteAt(gf.f, buf, 0)
	if err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to write header").WithPath(gf.path)
	}
	if n != len(buf) {
		return errors.NewFormatError(nil, errors.ErrorCodeIO, "short write writing header").WithPath(gf.path)
	}
	return nil
}

// FindChunk locates the chunk named name as of frame (the most recent
// write to that name at or before frame). It returns the index entry
// describing its location and shape, or a not-found error if no such
// chunk exists. Not supported on append handles.
func (gf *File) FindChunk(frame uint64, name string) (gsdformat.IndexEntry, error) {
	if gf.flag == FlagAppend {
		return gsdformat.IndexEntry{}, errors.NewInvalidFlagError("FindChunk", gf.flag.String())
	}

	id, _, err := gf.names.ID(gf.f, name, false)
	if err != nil {
		return gsdformat.IndexEntry{}, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to resolve chunk name").WithPath(gf.path)
	}
	if id == namelist.NotFound {
		return gsdformat.IndexEntry{}, errors.NewChunkNotFoundError(frame, name)
	}

	i, ok := gf.index.FindChunk(frame, id)
	if !ok {
		return gsdformat.IndexEntry{}, errors.NewChunkNotFoundError(frame, name)
	}
	return gf.index.Entry(i)
}

// ReadChunk reads the full payload described by entry into a freshly
// allocated buffer.
func (gf *File) ReadChunk(entry gsdformat.IndexEntry) ([]byte, error) {
	if gf.flag == FlagAppend {
		return nil, errors.NewInvalidFlagError("ReadChunk", gf.flag.String())
	}

	size := gsdformat.SizeOf(entry.Type)
	if size == 0 {
		return nil, errors.NewFormatError(nil, errors.ErrorCodeCorruptFile, "chunk entry has unrecognized type").WithOffset(entry.Location)
	}
	want := entry.N * uint64(entry.M) * size
	if want == 0 || entry.Location == 0 {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidArgument, "chunk entry is empty or invalid").
			WithField("entry").WithProvided(entry)
	}
	if entry.Location+int64(want) > gf.fileSize {
		return nil, errors.NewCorruptEntryError(gf.path, entry.Location, "chunk extends beyond end of file")
	}

	buf := make([]byte, want)
	n, err := rawio.ReadAt(gf.f, buf, entry.Location)
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to read chunk payload").WithPath(gf.path).WithOffset(entry.Location)
	}
	if uint64(n) != want {
		return nil, errors.NewFormatError(nil, errors.ErrorCodeIO, "short read reading chunk payload").WithPath(gf.path).WithOffset(entry.Location)
	}
	return buf, nil
}

// FindMatchingChunkName returns the next chunk name with the given prefix
// at or after the cursor position start (0 to begin a scan), along with
// the cursor to pass on the next call. It returns ("", -1) once the scan
// is exhausted.
func (gf *File) FindMatchingChunkName(prefix string, start int) (string, int) {
	return gf.names.FindMatchingChunkName(prefix, start)
}
