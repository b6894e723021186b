package db

import (
	"errors"
	"fmt"
)

// ErrDuplicate is returned by Add when the store enforces unique names and a
// student with the same normalized given and family name already exists.
var ErrDuplicate = errors.New("student already exists")

// LoadError describes why the roster file could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load roster %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistenceError is returned when the roster could not be written, or when
// reading it back after the write did not yield what was written.
type PersistenceError struct {
	Path string
	Op   string // "encode", "write" or "verify"
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist roster %s (%s): %v", e.Path, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
