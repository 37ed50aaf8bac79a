// Package gsdfile owns the lifecycle of a single GSD container: creating a
// fresh one, opening an existing one under the three supported access
// modes, and the chunk-level read/write/end-frame operations that run on
// top of the format, namelist, and index layers.
//
// This package was designed to solve the fundamental challenge of an
// append-only binary container that has to stay self-describing forever:
// every frame written must remain independently readable years later,
// without a central catalog anywhere but the file itself. Think of it as
// the durability and bookkeeping layer underneath a much simpler public
// API — callers write named, typed arrays one frame at a time, and this
// package worries about where those bytes land, how the index grows to
// keep pointing at them, and when an fsync is actually owed.
//
// Access Modes:
//
// A handle opened ReadWrite loads the whole index into memory and can
// append new frames or new chunks onto the current frame. A handle opened
// ReadOnly maps the index instead of copying it, and never writes. A
// handle opened Append only ever appends an entirely new frame after
// whatever is already in the file, and keeps only the handful of entries
// it hasn't flushed yet — it never looks an old chunk up, so it reads the
// existing index only once at open, to count the entries in use, and does
// not keep it in memory afterward.
package gsdfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oywz99/gsd/internal/chunkindex"
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/internal/namelist"
	"github.com/oywz99/gsd/internal/rawio"
	"github.com/oywz99/gsd/pkg/errors"
	"go.uber.org/zap"
)

// OpenFlag selects the access mode a file is opened under.
type OpenFlag int

const (
	// FlagReadWrite allows both reading and appending new frames/chunks.
	FlagReadWrite OpenFlag = iota
	// FlagReadOnly allows only reading; any write operation fails.
	FlagReadOnly
	// FlagAppend allows only appending a new frame after the existing
	// ones; FindChunk and ReadChunk are not available.
	FlagAppend
)

func (f OpenFlag) String() string {
	switch f {
	case FlagReadWrite:
		return "read-write"
	case FlagReadOnly:
		return "read-only"
	case FlagAppend:
		return "append"
	default:
		return "unknown"
	}
}

// File is an open handle onto a GSD container.
type File struct {
	f    *os.File
	path string
	flag OpenFlag
	log  *zap.SugaredLogger

	header   gsdformat.Header
	fileSize int64
	curFrame uint64

	names *namelist.Table
	index *chunkindex.Index

	namelistChanged bool // set when a chunk write introduces a new name; drives the EndFrame fsync
}

// Initialize lays down a brand-new, empty GSD file at path: truncates it to
// zero length, then writes a zeroed header, index, and namelist in their
// initial allocation sizes, and fsyncs before returning. Any existing
// contents at path are discarded.
func Initialize(path, application, schema string, schemaVersion uint32) error {
	return initialize(path, application, schema, schemaVersion, false)
}

func initialize(path, application, schema string, schemaVersion uint32, exclusive bool) error {
	osFlag := os.O_CREATE | os.O_RDWR
	if exclusive {
		osFlag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, osFlag, 0644)
	if err != nil {
		return errors.ClassifyFileOpenError(err, path)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to truncate file to zero length").WithPath(path)
	}

	var h gsdformat.Header
	h.Magic = gsdformat.Magic
	h.GSDVersion = gsdformat.CurrentVersion
	h.SetApplication(application)
	h.SetSchema(schema)
	h.SchemaVersion = schemaVersion
	h.IndexLocation = gsdformat.HeaderSize
	h.IndexAllocatedEntries = gsdformat.InitialIndexAllocatedEntries
	h.NamelistLocation = gsdformat.HeaderSize + gsdformat.IndexEntrySize*gsdformat.InitialIndexAllocatedEntries
	h.NamelistAllocatedEntries = gsdformat.InitialNamelistAllocatedEntries

	buf := make([]byte, 0, gsdformat.HeaderSize+
		gsdformat.IndexEntrySize*gsdformat.InitialIndexAllocatedEntries+
		gsdformat.NamelistEntrySize*gsdformat.InitialNamelistAllocatedEntries)
	buf = append(buf, h.Encode()...)
	buf = append(buf, make([]byte, gsdformat.IndexEntrySize*gsdformat.InitialIndexAllocatedEntries)...)
	buf = append(buf, make([]byte, gsdformat.NamelistEntrySize*gsdformat.InitialNamelistAllocatedEntries)...)

	n, err := rawio.WriteAt(f, buf, 0)
	if err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeIO, "failed to write initial file layout").WithPath(path)
	}
	if n != len(buf) {
		return errors.NewFormatError(nil, errors.ErrorCodeIO, "short write initializing file").WithPath(path)
	}

	if err := f.Sync(); err != nil {
		return errors.ClassifySyncError(err, path, 0)
	}
	return nil
}

// Create initializes a new file at path and leaves it closed.
func Create(path, application, schema string, schemaVersion uint32) error {
	return Initialize(path, application, schema, schemaVersion)
}

// CreateAndOpen initializes a new file at path under flag (FlagReadWrite or
// FlagAppend; FlagReadOnly is rejected, since creating a file you can never
// write to is pointless) and immediately opens it. When exclusive is true,
// the underlying open uses O_EXCL so an existing file at path is left
// untouched and an error is returned instead of silently clobbering it.
func CreateAndOpen(path, application, schema string, schemaVersion uint32, flag OpenFlag, exclusive bool, log *zap.SugaredLogger) (*File, error) {
	if flag == FlagReadOnly {
		return nil, errors.NewInvalidFlagError("CreateAndOpen", flag.String())
	}
	if err := initialize(path, application, schema, schemaVersion, exclusive); err != nil {
		return nil, err
	}
	return Open(path, flag, log)
}

// Open opens an existing GSD file under the given access mode.
func Open(path string, flag OpenFlag, log *zap.SugaredLogger) (*File, error) {
	log.Infow("opening GSD file", "path", path, "mode", flag.String())

	osFlag := os.O_RDWR
	if flag == FlagReadOnly {
		osFlag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, osFlag, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path)
	}

	file, err := readHeaderAndOpen(f, path, flag, log)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Infow(
		"GSD file opened",
		"path", path,
		"mode", flag.String(),
		"nFrames", file.GetNFrames(),
		"application", file.header.ApplicationString(),
		"schema", file.header.SchemaString(),
	)
	return file, nil
}

func readHeaderAndOpen(f *os.File, path string, flag OpenFlag, log *zap.SugaredLogger) (*File, error) {
	buf := make([]byte, gsdformat.HeaderSize)
	n, err := rawio.ReadAt(f, buf, 0)
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to read header").WithPath(path)
	}
	if n != gsdformat.HeaderSize {
		return nil, errors.NewInvalidFileError(path)
	}

	h, err := gsdformat.DecodeHeader(buf)
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to decode header").WithPath(path)
	}
	if h.Magic != gsdformat.Magic {
		return nil, errors.NewInvalidFileError(path)
	}

	major, minor := gsdformat.SplitVersion(h.GSDVersion)
	legacy03 := major == 0 && minor == 3
	if major < 1 && !legacy03 {
		return nil, errors.NewNeedsUpgradeError(path, major, minor)
	}
	if major >= 2 {
		return nil, errors.NewUnsupportedVersionError(path, major, minor)
	}

	fileSize, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeIO, "failed to determine file size").WithPath(path)
	}

	names, err := namelist.Load(f, int64(h.NamelistLocation), h.NamelistAllocatedEntries)
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeCorruptFile, "failed to load namelist").WithPath(path)
	}

	var idx *chunkindex.Index
	switch flag {
	case FlagReadWrite:
		idx, err = chunkindex.LoadWritable(f, int64(h.IndexLocation), h.IndexAllocatedEntries, fileSize, names.NumEntries())
	case FlagReadOnly:
		idx, err = chunkindex.LoadMapped(f, int64(h.IndexLocation), h.IndexAllocatedEntries, fileSize, names.NumEntries())
	case FlagAppend:
		idx, err = chunkindex.LoadAppend(f, int64(h.IndexLocation), h.IndexAllocatedEntries, fileSize, names.NumEntries())
	default:
		return nil, fmt.Errorf("gsdfile: unknown open flag %d", flag)
	}
	if err != nil {
		return nil, errors.NewFormatError(err, errors.ErrorCodeCorruptFile, "failed to load index").WithPath(path)
	}

	var curFrame uint64
	if n := idx.NumEntries(); n > 0 {
		var last gsdformat.IndexEntry
		if flag == FlagAppend {
			// An append index keeps no entries in memory; read the last
			// used one straight from the file.
			ebuf := make([]byte, gsdformat.IndexEntrySize)
			rn, rerr := rawio.ReadAt(f, ebuf, int64(h.IndexLocation)+int64(n-1)*gsdformat.IndexEntrySize)
			if rerr == nil && rn != len(ebuf) {
				rerr = fmt.Errorf("gsdfile: short read of last index entry")
			}
			if err = rerr; err == nil {
				last, err = gsdformat.DecodeIndexEntry(ebuf)
			}
		} else {
			last, err = idx.Entry(n - 1)
		}
		if err != nil {
			return nil, errors.NewFormatError(err, errors.ErrorCodeCorruptFile, "failed to read last index entry").WithPath(path)
		}
		curFrame = last.Frame + 1
	}

	return &File{
		f:        f,
		path:     path,
		flag:     flag,
		log:      log,
		header:   h,
		fileSize: fileSize,
		curFrame: curFrame,
		names:    names,
		index:    idx,
	}, nil
}

// Close releases any resources (mmap, in the read-only case) and closes
// the underlying file.
func (gf *File) Close() error {
	gf.log.Infow("closing GSD file", "path", gf.path)
	if err := gf.index.Close(); err != nil {
		gf.log.Errorw("failed to unmap index", "path", gf.path, "error", err)
	}
	return gf.f.Close()
}

// Truncate discards every frame and chunk in the file, reinitializing it
// from scratch while preserving the application and schema identity, then
// reopens the in-memory state. The handle remains usable afterward.
func (gf *File) Truncate() error {
	if gf.flag == FlagReadOnly {
		return errors.NewInvalidFlagError("Truncate", gf.flag.String())
	}
	gf.log.Infow("truncating GSD file", "path", gf.path)

	application := gf.header.ApplicationString()
	schema := gf.header.SchemaString()
	schemaVersion := gf.header.SchemaVersion

	if err := gf.index.Close(); err != nil {
		gf.log.Errorw("failed to unmap index before truncate", "path", gf.path, "error", err)
	}

	if err := Initialize(gf.path, application, schema, schemaVersion); err != nil {
		return err
	}

	reopened, err := readHeaderAndOpen(gf.f, gf.path, gf.flag, gf.log)
	if err != nil {
		return err
	}

	gf.header = reopened.header
	gf.fileSize = reopened.fileSize
	gf.curFrame = reopened.curFrame
	gf.names = reopened.names
	gf.index = reopened.index
	gf.namelistChanged = false
	return nil
}

// GetNFrames returns the number of complete frames written to the file.
func (gf *File) GetNFrames() uint64 { return gf.curFrame }

// SizeofType returns the byte size of one element of the given type.
func (gf *File) SizeofType(t gsdformat.Type) uint64 { return gsdformat.SizeOf(t) }

// Application returns the application string stored in the header.
func (gf *File) Application() string { return gf.header.ApplicationString() }

// Schema returns the schema string stored in the header.
func (gf *File) Schema() string { return gf.header.SchemaString() }

// SchemaVersion returns the schema version stored in the header.
func (gf *File) SchemaVersion() uint32 { return gf.header.SchemaVersion }
