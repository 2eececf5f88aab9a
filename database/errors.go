package database

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")

	// ErrNotReady means the readiness budget ran out before the handle became usable.
	ErrNotReady = errors.New("store handle never became ready")
	// ErrDisconnected means the handle dropped while it was being verified.
	ErrDisconnected = errors.New("store handle disconnected")
)

// ConnectionError is returned by Manager.Acquire when the store is unreachable
// or the new handle could not be verified. The next Acquire starts afresh.
type ConnectionError struct {
	Op  string // "dial", "ready" or "init"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
