package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations against the
	// underlying file: short reads, short writes, and failed fsyncs that
	// point at the filesystem or device rather than the file's own contents.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidArgument represents a caller-side mistake: a zero
	// element count, a nil data buffer, an oversized name, or any other
	// argument that violates a method's documented precondition.
	ErrorCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrorCodeInternal represents unexpected failures that don't fit into
	// other categories, typically indicating a bug rather than a bad input
	// or a damaged file.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// File-format error codes cover the failure modes specific to opening,
// reading, and writing a GSD container.
const (
	// ErrorCodeInvalidFile indicates the file does not begin with the GSD
	// magic number, so it was never a GSD file in the first place.
	ErrorCodeInvalidFile ErrorCode = "INVALID_FILE"

	// ErrorCodeNeedsUpgrade indicates the file's format version predates
	// what this implementation knows how to read.
	ErrorCodeNeedsUpgrade ErrorCode = "NEEDS_UPGRADE"

	// ErrorCodeUnsupportedVersion indicates the file's format version is
	// newer than what this implementation knows how to read.
	ErrorCodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"

	// ErrorCodeCorruptFile indicates the file's internal structure fails
	// validation: an index entry points outside the file, a namelist id is
	// out of range, or the recognizable entry prefix is inconsistent.
	ErrorCodeCorruptFile ErrorCode = "CORRUPT_FILE"

	// ErrorCodeNamelistFull indicates a write introduced a chunk name that
	// isn't already known, but the namelist has no free slots left.
	ErrorCodeNamelistFull ErrorCode = "NAMELIST_FULL"

	// ErrorCodeInvalidFlag indicates an operation was attempted against a
	// handle opened with a mode that forbids it: writing through a
	// read-only handle, or looking up a chunk through an append handle.
	ErrorCodeInvalidFlag ErrorCode = "INVALID_FLAG"

	// ErrorCodeNotFound indicates a requested chunk or frame does not exist.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodePermissionDenied indicates insufficient permissions to access
	// the underlying file or directory.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates the storage device has run out of space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates the filesystem is mounted
	// read-only.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)
