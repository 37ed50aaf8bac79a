// Package gsd provides a high-performance, append-only binary container
// for sequences of named, typed numeric array chunks organized into
// frames — general simulation data, suited for storing trajectories from
// particle simulations, time series, or any workload that writes a
// sequence of heterogeneous, structured snapshots and wants cheap,
// random-access retrieval of any one of them later.
//
// It combines a fixed-layout on-disk header/index/namelist with one of
// three access strategies (in-memory index, mmap-backed read-only index,
// or append-only unwritten-entry buffering) to give O(log F) frame lookup
// without ever rewriting previously committed data.
//
// Handle is the primary entry point for interacting with a GSD file,
// providing methods for ending frames, writing and reading chunks, and
// managing the container's lifecycle.
package gsd

import (
	"github.com/oywz99/gsd/internal/engine"
	"github.com/oywz99/gsd/internal/gsdfile"
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/pkg/logger"
	"github.com/oywz99/gsd/pkg/options"
)

// OpenFlag selects how a GSD file is accessed: full read-write, mmap-backed
// read-only, or append-only.
type OpenFlag = gsdfile.OpenFlag

const (
	// ReadWrite loads the full index into memory and allows both reads
	// and writes.
	ReadWrite = gsdfile.FlagReadWrite
	// ReadOnly memory-maps the index (where supported) and rejects writes.
	ReadOnly = gsdfile.FlagReadOnly
	// Append buffers only unwritten index entries; it never reads and
	// supports only appending new frames and chunks.
	Append = gsdfile.FlagAppend
)

// Type identifies the numeric element type stored in a chunk.
type Type = gsdformat.Type

// Re-export the type constants so callers never need to import
// internal/gsdformat directly.
const (
	TypeUint8   = gsdformat.TypeUint8
	TypeUint16  = gsdformat.TypeUint16
	TypeUint32  = gsdformat.TypeUint32
	TypeUint64  = gsdformat.TypeUint64
	TypeInt8    = gsdformat.TypeInt8
	TypeInt16   = gsdformat.TypeInt16
	TypeInt32   = gsdformat.TypeInt32
	TypeInt64   = gsdformat.TypeInt64
	TypeFloat32 = gsdformat.TypeFloat32
	TypeFloat64 = gsdformat.TypeFloat64
)

// ChunkEntry describes where a chunk's payload lives and how it's shaped.
// It's returned by FindChunk and consumed by ReadChunk.
type ChunkEntry = gsdformat.IndexEntry

// Handle represents an open GSD file.
//
// Handle is the primary entry point for interacting with a GSD store,
// providing methods for ending frames, writing and reading chunks, and
// managing the container's lifecycle. A Handle is not safe for concurrent
// use from multiple goroutines without external synchronization: a single
// handle is owned by one writer at a time.
type Handle struct {
	engine  *engine.Engine
	options *options.Options
}

// CreateFile initializes a brand-new GSD file at path and leaves it closed,
// clobbering any existing file there. Most callers want Create or
// CreateAndOpen instead; this is for producers that want to lay down an
// empty file now and open it (possibly from a different process) later.
func CreateFile(path, application, schema string, schemaVersion uint32) error {
	return gsdfile.Create(path, application, schema, schemaVersion)
}

// Create initializes a brand-new GSD file at path with the given
// application name, schema identifier, and schema version, then opens it
// for read-write access, clobbering any existing file there. It is
// equivalent to CreateAndOpen(path, application, schema, schemaVersion,
// ReadWrite, false, opts...).
func Create(path, application, schema string, schemaVersion uint32, opts ...options.OptionFunc) (*Handle, error) {
	return CreateAndOpen(path, application, schema, schemaVersion, ReadWrite, false, opts...)
}

// CreateAndOpen initializes a brand-new GSD file at path and immediately
// opens it under flag, which must be ReadWrite or Append (a handle opened
// ReadOnly immediately after creation would never be writable, so
// CreateAndOpen rejects ReadOnly). When exclusive is true, creation fails
// instead of clobbering a pre-existing file at path.
func CreateAndOpen(path, application, schema string, schemaVersion uint32, flag OpenFlag, exclusive bool, opts ...options.OptionFunc) (*Handle, error) {
	return open(&engine.Config{
		Path:          path,
		Flag:          flag,
		Application:   application,
		Schema:        schema,
		SchemaVersion: schemaVersion,
		Create:        true,
		Exclusive:     exclusive,
	}, opts...)
}

// Open opens an existing GSD file at path with the given access flag.
func Open(path string, flag OpenFlag, opts ...options.OptionFunc) (*Handle, error) {
	return open(&engine.Config{Path: path, Flag: flag}, opts...)
}

func open(config *engine.Config, opts ...options.OptionFunc) (*Handle, error) {
	o := options.New(opts...)
	config.Options = o

	if config.Logger == nil {
		config.Logger = logger.New("gsd")
	}

	eng, err := engine.New(config)
	if err != nil {
		return nil, err
	}

	return &Handle{engine: eng, options: o}, nil
}

// Close releases all resources held by the handle. It does not flush:
// index entries for chunks written since the last EndFrame are not written
// to the file. It is safe to call exactly once; a second call returns
// engine.ErrEngineClosed.
func (h *Handle) Close() error {
	return h.engine.Close()
}

// EndFrame commits the chunks written since the last EndFrame (or since
// open) as one frame and advances to the next frame number.
func (h *Handle) EndFrame() error {
	return h.engine.EndFrame()
}

// WriteChunk appends a chunk of n rows of m elements each, of the given
// type, to the frame currently being built.
func (h *Handle) WriteChunk(name string, typ Type, n uint64, m uint8, data []byte) error {
	return h.engine.WriteChunk(name, typ, n, m, data)
}

// FindChunk locates the entry for name as of frame (or the most recent
// earlier frame that wrote it), for use with ReadChunk.
func (h *Handle) FindChunk(frame uint64, name string) (ChunkEntry, error) {
	return h.engine.FindChunk(frame, name)
}

// ReadChunk reads the raw payload bytes described by entry.
func (h *Handle) ReadChunk(entry ChunkEntry) ([]byte, error) {
	return h.engine.ReadChunk(entry)
}

// GetNFrames returns the number of complete frames committed so far.
func (h *Handle) GetNFrames() (uint64, error) {
	return h.engine.GetNFrames()
}

// Truncate discards every frame and chunk, resetting the file to the
// state it was in immediately after Create. Identity (application,
// schema, schema version) is preserved.
func (h *Handle) Truncate() error {
	return h.engine.Truncate()
}

// FindMatchingChunkName scans the name table for entries with the given
// prefix, starting at index start (use 0 on the first call), returning
// the matching name and the index to resume from on the next call, or
// ("", -1) once exhausted.
func (h *Handle) FindMatchingChunkName(prefix string, start int) (string, int, error) {
	return h.engine.FindMatchingChunkName(prefix, start)
}

// Application returns the generator name stored in the header.
func (h *Handle) Application() (string, error) {
	return h.engine.Application()
}

// Schema returns the schema identifier stored in the header.
func (h *Handle) Schema() (string, error) {
	return h.engine.Schema()
}

// SchemaVersion returns the schema version stored in the header.
func (h *Handle) SchemaVersion() (uint32, error) {
	return h.engine.SchemaVersion()
}

// SizeofType returns the byte size of one element of the given type.
func SizeofType(typ Type) uint64 {
	return gsdformat.SizeOf(typ)
}
