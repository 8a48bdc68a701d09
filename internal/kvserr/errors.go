// Package kvserr defines the unified error taxonomy shared by the engine,
// the wire protocol, and the client. Every error the engine can return is
// either one of the sentinels below or an I/O/codec error wrapped with
// fmt.Errorf("%w", ...), so callers can still use errors.Is/errors.As.
package kvserr

import "errors"

var (
	// ErrKeyNotFound is returned by Remove for an absent key, and by Get's
	// callers when a lookup misses (Get itself returns (nil, nil) on a
	// miss; ErrKeyNotFound is for operations where absence is a failure).
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownCommand means a log record (or wire message) decoded with
	// a tag this build doesn't recognize, or a Set was expected at a
	// recorded offset but something else was found there.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrLogFileNotFound means the key directory points at a file id with
	// no open reader and nothing on disk under that id. This is an
	// internal consistency failure, not a user-facing condition.
	ErrLogFileNotFound = errors.New("log file not found")

	// ErrUnknownEngineType means the `engine` marker file's content is
	// neither "kvs" nor "sled".
	ErrUnknownEngineType = errors.New("unknown engine type")

	// ErrIncompatibleEngineType means the `engine` marker already names a
	// different engine than the one requested at startup.
	ErrIncompatibleEngineType = errors.New("incompatible engine type")

	// ErrEngineUnavailable is returned when the requested engine name is
	// recognized by the marker logic but has no implementation in this
	// build (the embedded B-tree engine is out of scope).
	ErrEngineUnavailable = errors.New("engine not available in this build")
)

// ServerError is the client-side representation of an error message a
// server sent back in a response's Err field. It is not a sentinel: every
// instance carries the server's own message text.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// Is lets errors.Is(serverErr, ErrKeyNotFound) (and the other sentinels
// above) succeed by comparing message text, since the wire protocol only
// carries a string and can't round-trip a wrapped sentinel.
func (e *ServerError) Is(target error) bool {
	return e.Message == target.Error()
}
