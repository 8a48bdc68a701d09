// Package logio provides buffered positional file handles for the log
// engine: a reader that tracks the byte offset it has consumed, and a
// writer that tracks the byte offset it has produced. Both exist so the
// engine can record a record's (offset, length) span without querying the
// OS for the file position on every operation.
package logio

import (
	"bufio"
	"io"
	"os"
)

// Reader is a buffered, seekable read handle over a log file. Pos always
// reflects the logical read position, accounting for bytes buffered but
// not yet handed to the caller.
type Reader struct {
	file *os.File
	buf  *bufio.Reader
	pos  int64
}

// OpenReader opens path read-only. It does not create the file.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, buf: bufio.NewReader(f)}, nil
}

// Pos returns the current logical read offset.
func (r *Reader) Pos() int64 { return r.pos }

// SeekTo repositions the reader at an absolute offset.
func (r *Reader) SeekTo(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	r.buf.Reset(r.file)
	r.pos = offset
	return nil
}

// ReadExact reads exactly n bytes, advancing Pos by n. A short read before
// EOF is reported as io.ErrUnexpectedEOF.
func (r *Reader) ReadExact(n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r.buf, buf)
	r.pos += int64(read)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// BufioReader exposes the underlying buffered reader for streaming decode
// (internal/codec.NewDecoder consumes it directly so it can track
// InputOffset itself rather than going through ReadExact).
func (r *Reader) BufioReader() *bufio.Reader { return r.buf }

// Close closes the underlying file.
func (r *Reader) Close() error { return r.file.Close() }
