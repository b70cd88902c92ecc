// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrMalformedDocument = errors.New("malformed notebook")
	ErrFilesystem        = errors.New("filesystem error")
	ErrBatchFailed       = errors.New("batch finished with failures")
)
