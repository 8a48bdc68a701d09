// Package codec serializes and streams Command log records. Records are
// JSON objects concatenated with no separator; JSON's own grammar is
// self-delimiting, so a streaming decoder can recover record boundaries
// without a length prefix.
package codec

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jassi-singh/toycask/internal/kvserr"
)

// Kind tags which variant a Command record is.
type Kind string

const (
	KindSet    Kind = "set"
	KindRemove Kind = "remove"
)

// Command is the on-disk record. Value is omitted (empty) for Remove.
type Command struct {
	Kind      Kind   `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	Key       string `json:"key"`
	Value     string `json:"value,omitempty"`
}

// NewSet builds a Set record stamped with the given Unix timestamp.
func NewSet(key, value string, timestamp int64) Command {
	return Command{Kind: KindSet, Timestamp: timestamp, Key: key, Value: value}
}

// NewRemove builds a Remove record stamped with the given Unix timestamp.
func NewRemove(key string, timestamp int64) Command {
	return Command{Kind: KindRemove, Timestamp: timestamp, Key: key}
}

// Encode serializes a Command to its on-disk JSON form. The result is
// written as-is with no trailing separator; concatenating the encoding of
// successive records produces a valid log file.
func Encode(cmd Command) ([]byte, error) {
	if cmd.Kind != KindSet && cmd.Kind != KindRemove {
		return nil, kvserr.ErrUnknownCommand
	}
	return json.Marshal(cmd)
}

// Decoder streams Command records from a buffered reader, reporting the
// byte offset immediately after each consumed record so callers can
// derive a record's length as offset_after - offset_before.
type Decoder struct {
	json *json.Decoder
}

// NewDecoder wraps r for streaming decode starting at whatever position r
// is currently positioned at.
func NewDecoder(r *bufio.Reader) *Decoder {
	return &Decoder{json: json.NewDecoder(r)}
}

// Decode reads and returns the next Command. It returns io.EOF when no
// further complete record is available — including when only a truncated
// partial record remains, which is reported as io.ErrUnexpectedEOF by the
// underlying json.Decoder and normalized to io.EOF here so callers can
// treat "nothing more to read" uniformly (see Open Question (a) in
// DESIGN.md: a truncated tail ends replay for that file, it is not fatal).
func (d *Decoder) Decode() (*Command, error) {
	var cmd Command
	if err := d.json.Decode(&cmd); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		var syn *json.SyntaxError
		if isSyntaxOrTypeError(err) {
			_ = syn // truncated/garbled trailing bytes: treat like EOF
			return nil, io.EOF
		}
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	if cmd.Kind != KindSet && cmd.Kind != KindRemove {
		return nil, kvserr.ErrUnknownCommand
	}
	return &cmd, nil
}

// Offset reports the number of bytes consumed from the underlying reader
// so far, i.e. the position immediately after the most recently decoded
// record.
func (d *Decoder) Offset() int64 { return d.json.InputOffset() }

func isSyntaxOrTypeError(err error) bool {
	switch err.(type) {
	case *json.SyntaxError, *json.UnmarshalTypeError:
		return true
	default:
		return false
	}
}
