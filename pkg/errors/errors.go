// This package gives every failure mode in the file-format layer a
// consistent shape: an error code for programmatic handling, a
// human-readable message, and structured details (path, offset, frame)
// that point at exactly where things went wrong. A corrupt-file error and
// a bad-argument error both embed the same baseError, so callers can
// switch on GetErrorCode without caring which concrete type produced it.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError checks if the given error is a ValidationError or contains one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsFormatError determines if an error is a FormatError: a file-layer
// failure such as a bad magic number, an unsupported version, an index or
// namelist that failed validation, an I/O failure, or an access-mode
// violation.
func IsFormatError(err error) bool {
	var fe *FormatError
	return stdErrors.As(err, &fe)
}

// AsValidationError safely extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsFormatError extracts FormatError context from an error chain, giving
// access to Path(), Offset(), and Frame() alongside the base Code() and
// Details().
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if stdErrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't have specific codes.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if fe, ok := AsFormatError(err); ok {
		return fe.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	if fe, ok := AsFormatError(err); ok {
		if details := fe.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError analyzes directory creation failures and
// returns a FormatError with the appropriate code based on the underlying
// system error.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewFormatError(err, ErrorCodePermissionDenied, "insufficient permissions to create directory").
			WithPath(path).
			WithDetail("operation", "directory_creation")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewFormatError(err, ErrorCodeDiskFull, "insufficient disk space to create directory").
					WithPath(path).
					WithDetail("operation", "directory_creation")
			case syscall.EROFS:
				return NewFormatError(err, ErrorCodeFilesystemReadonly, "cannot create directory on read-only filesystem").
					WithPath(path).
					WithDetail("operation", "directory_creation")
			}
		}
	}

	return NewFormatError(err, ErrorCodeIO, "failed to create directory").
		WithPath(path).
		WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError analyzes file opening failures and returns a
// FormatError with the appropriate code based on the underlying system
// error.
func ClassifyFileOpenError(err error, path string) error {
	if os.IsPermission(err) {
		return NewFormatError(err, ErrorCodePermissionDenied, "insufficient permissions to open file").
			WithPath(path).
			WithDetail("operation", "file_open")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewFormatError(err, ErrorCodeDiskFull, "insufficient disk space to open file").
					WithPath(path).
					WithDetail("operation", "file_open")
			case syscall.EROFS:
				return NewFormatError(err, ErrorCodeFilesystemReadonly, "cannot open file on read-only filesystem").
					WithPath(path).
					WithDetail("operation", "file_open")
			}
		}
	}

	return NewFormatError(err, ErrorCodeIO, "failed to open file").
		WithPath(path).
		WithDetail("operation", "file_open")
}

// ClassifySyncError analyzes fsync failures and returns a FormatError with
// the appropriate code based on the underlying system error.
func ClassifySyncError(err error, path string, offset int64) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewFormatError(err, ErrorCodeDiskFull, "cannot sync file: insufficient disk space").
					WithPath(path).
					WithOffset(offset).
					WithDetail("operation", "file_sync")
			case syscall.EROFS:
				return NewFormatError(err, ErrorCodeFilesystemReadonly, "cannot sync file: filesystem is read-only").
					WithPath(path).
					WithOffset(offset).
					WithDetail("operation", "file_sync")
			case syscall.EIO:
				return NewFormatError(err, ErrorCodeIO, "I/O error during file sync").
					WithPath(path).
					WithOffset(offset).
					WithDetail("operation", "file_sync").
					WithDetail("severity", "high")
			}
		}
	}

	return NewFormatError(err, ErrorCodeIO, "failed to sync file to disk").
		WithPath(path).
		WithOffset(offset).
		WithDetail("operation", "file_sync")
}
