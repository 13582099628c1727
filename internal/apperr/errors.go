// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidPath    = errors.New("invalid path")
	ErrInvalidBundle  = errors.New("invalid course bundle")
	ErrUnsupportedExt = errors.New("unsupported bundle format")
)
