package errors

// FormatError is the error type for failures in the file layer: problems
// with a GSD file's binary contents (a bad magic number, a version this
// implementation can't read, an index/namelist that fails validation), and
// also I/O failures, access-mode violations, a full namelist, and missing
// chunks. It embeds baseError to
// inherit error chaining, codes, and details, and adds file-location
// context that helps pin down exactly where in the file things went wrong.
type FormatError struct {
	*baseError

	path   string // path of the file that caused the issue
	offset int64  // byte offset within the file where the problem happened
	frame  int64  // frame number involved, if applicable; -1 if not
}

// NewFormatError creates a new file-format error.
func NewFormatError(err error, code ErrorCode, msg string) *FormatError {
	return &FormatError{baseError: NewBaseError(err, code, msg), frame: -1}
}

// Override base error methods to return *FormatError instead of *baseError,
// so chains like NewFormatError(...).WithPath(...).WithDetail(...) keep
// the FormatError-specific methods available at every step.

// WithMessage updates the error message while maintaining the FormatError type.
func (fe *FormatError) WithMessage(msg string) *FormatError {
	fe.baseError.WithMessage(msg)
	return fe
}

// WithCode sets the error code while preserving the FormatError type.
func (fe *FormatError) WithCode(code ErrorCode) *FormatError {
	fe.baseError.WithCode(code)
	return fe
}

// WithDetail adds contextual information while maintaining the FormatError type.
func (fe *FormatError) WithDetail(key string, value any) *FormatError {
	fe.baseError.WithDetail(key, value)
	return fe
}

// WithPath records which file was being read or written.
func (fe *FormatError) WithPath(path string) *FormatError {
	fe.path = path
	return fe
}

// WithOffset records the byte position within the file where the error
// happened, such as the offset of an index entry that failed validation.
func (fe *FormatError) WithOffset(offset int64) *FormatError {
	fe.offset = offset
	return fe
}

// WithFrame records the frame number involved, if the error occurred while
// looking up or writing a specific frame.
func (fe *FormatError) WithFrame(frame int64) *FormatError {
	fe.frame = frame
	return fe
}

// Path returns the file path involved in the error.
func (fe *FormatError) Path() string { return fe.path }

// Offset returns the byte offset within the file where the error occurred.
func (fe *FormatError) Offset() int64 { return fe.offset }

// Frame returns the frame number involved in the error, or -1 if none.
func (fe *FormatError) Frame() int64 { return fe.frame }

// NewInvalidFileError reports that a file does not begin with the GSD magic
// number, so it is not a GSD file at all.
func NewInvalidFileError(path string) *FormatError {
	return NewFormatError(nil, ErrorCodeInvalidFile, "not a GSD file: magic number mismatch").
		WithPath(path).
		WithDetail("expectedMagic", "0x65DF65DF65DF65DF")
}

// NewNeedsUpgradeError reports that a file's format version predates what
// this implementation can read.
func NewNeedsUpgradeError(path string, major, minor uint16) *FormatError {
	return NewFormatError(nil, ErrorCodeNeedsUpgrade, "file format version is older than supported").
		WithPath(path).
		WithDetail("fileMajor", major).
		WithDetail("fileMinor", minor)
}

// NewUnsupportedVersionError reports that a file's format version is newer
// than what this implementation can read.
func NewUnsupportedVersionError(path string, major, minor uint16) *FormatError {
	return NewFormatError(nil, ErrorCodeUnsupportedVersion, "file format version is newer than supported").
		WithPath(path).
		WithDetail("fileMajor", major).
		WithDetail("fileMinor", minor)
}

// NewCorruptEntryError reports that an index entry at offset failed
// validation against the file's own bounds: a shape that overruns the file
// size, a frame or name id outside the allocated/known range, or a
// nonzero reserved flags byte.
func NewCorruptEntryError(path string, offset int64, reason string) *FormatError {
	return NewFormatError(nil, ErrorCodeCorruptFile, "index entry failed validation").
		WithPath(path).
		WithOffset(offset).
		WithDetail("reason", reason)
}

// NewNonMonotonicFrameError reports that the valid entry prefix does not
// have non-decreasing frame numbers, which can only happen if the file was
// corrupted or partially overwritten out of order.
func NewNonMonotonicFrameError(path string, index uint64) *FormatError {
	return NewFormatError(nil, ErrorCodeCorruptFile, "index entries are not ordered by frame").
		WithPath(path).
		WithDetail("entryIndex", index)
}

// NewNamelistFullError reports that a write introduced a new chunk name but
// the namelist has no free slots left; the namelist is never grown.
func NewNamelistFullError(name string) *FormatError {
	return NewFormatError(nil, ErrorCodeNamelistFull, "namelist is full, cannot add new chunk name").
		WithDetail("name", name)
}

// NewInvalidFlagError reports that an operation was attempted against a
// handle whose access mode forbids it.
func NewInvalidFlagError(operation, mode string) *FormatError {
	return NewFormatError(nil, ErrorCodeInvalidFlag, "operation not permitted for this access mode").
		WithDetail("operation", operation).
		WithDetail("mode", mode)
}

// NewChunkNotFoundError reports that a requested (frame, name) chunk does
// not exist.
func NewChunkNotFoundError(frame uint64, name string) *FormatError {
	return NewFormatError(nil, ErrorCodeNotFound, "chunk not found").
		WithFrame(int64(frame)).
		WithDetail("name", name)
}
