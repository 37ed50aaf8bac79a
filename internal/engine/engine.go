// Package engine provides the core coordinator for an open GSD handle.
//
// The engine serves as the central entry point for all operations against
// a container file. It owns the open gsdfile.File along with the
// configured options and logger, and implements thread-safe lifecycle
// management through atomic state so that Close is idempotent and safe to
// call from a deferred cleanup path even if the caller already closed it.
package engine

import (
	"errors"
	"sync/atomic"

	"github.com/oywz99/gsd/internal/gsdfile"
	"github.com/oywz99/gsd/internal/gsdformat"
	"github.com/oywz99/gsd/pkg/options"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when attempting to perform operations on a
// closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed handle")

// Engine coordinates one open GSD file and its configuration.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool
	file    *gsdfile.File
}

// Config holds the parameters needed to initialize a new Engine.
type Config struct {
	Path          string
	Flag          gsdfile.OpenFlag
	Application   string
	Schema        string
	SchemaVersion uint32
	Create        bool // when true, initialize a new file (under Flag) before opening
	Exclusive     bool // when Create is true, fail instead of clobbering an existing file at Path
	Options       *options.Options
	Logger        *zap.SugaredLogger
}

// New opens (optionally creating) a GSD file and returns a ready-to-use
// Engine.
func New(config *Config) (*Engine, error) {
	var file *gsdfile.File
	var err error

	if config.Create {
		file, err = gsdfile.CreateAndOpen(config.Path, config.Application, config.Schema, config.SchemaVersion, config.Flag, config.Exclusive, config.Logger)
	} else {
		file, err = gsdfile.Open(config.Path, config.Flag, config.Logger)
	}
	if err != nil {
		return nil, err
	}

	return &Engine{options: config.Options, log: config.Logger, file: file}, nil
}

// Close gracefully shuts down the engine, idempotently: a second call
// returns ErrEngineClosed rather than double-closing the underlying file.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	return e.file.Close()
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// EndFrame commits the current frame and advances to the next.
func (e *Engine) EndFrame() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.file.EndFrame()
}

// WriteChunk appends a chunk to the current frame.
func (e *Engine) WriteChunk(name string, typ gsdformat.Type, n uint64, m uint8, data []byte) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.file.WriteChunk(name, typ, n, m, data)
}

// FindChunk locates a chunk as of the given frame.
func (e *Engine) FindChunk(frame uint64, name string) (gsdformat.IndexEntry, error) {
	if err := e.checkOpen(); err != nil {
		return gsdformat.IndexEntry{}, err
	}
	return e.file.FindChunk(frame, name)
}

// ReadChunk reads the payload described by entry.
func (e *Engine) ReadChunk(entry gsdformat.IndexEntry) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.file.ReadChunk(entry)
}

// GetNFrames returns the number of complete frames in the file.
func (e *Engine) GetNFrames() (uint64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	return e.file.GetNFrames(), nil
}

// Truncate discards every frame, reinitializing the file in place.
func (e *Engine) Truncate() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.file.Truncate()
}

// FindMatchingChunkName scans the namelist for names with the given prefix.
func (e *Engine) FindMatchingChunkName(prefix string, start int) (string, int, error) {
	if err := e.checkOpen(); err != nil {
		return "", -1, err
	}
	name, next := e.file.FindMatchingChunkName(prefix, start)
	return name, next, nil
}

// Application, Schema, and SchemaVersion expose the file's stored identity.
func (e *Engine) Application() (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	return e.file.Application(), nil
}

func (e *Engine) Schema() (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	return e.file.Schema(), nil
}

func (e *Engine) SchemaVersion() (uint32, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	return e.file.SchemaVersion(), nil
}
