package db

import "errors"

// Errors returned by engines. They are wrapped together with the underlying
// cause, so callers should test them with errors.Is.
var (
	ErrNotFound           = errors.New("key not found")
	ErrKeyExists          = errors.New("key already exists")
	ErrInvalidKey         = errors.New("invalid key")
	ErrKeyTooLong         = errors.New("key too long")
	ErrPathTooLong        = errors.New("path too long")
	ErrDatasetNotWritable = errors.New("dataset not writable")
	ErrUnknownEngine      = errors.New("unknown engine")
	ErrClosed             = errors.New("engine is closed")
)
