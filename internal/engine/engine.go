// Package engine implements the toy-Bitcask storage engine: an
// append-only log of Set/Remove commands plus an in-memory key directory
// pointing at the latest Set for each key, with online compaction and
// single-writer/many-reader concurrency.
package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jassi-singh/toycask/internal/codec"
	"github.com/jassi-singh/toycask/internal/keydir"
	"github.com/jassi-singh/toycask/internal/kvserr"
	"github.com/jassi-singh/toycask/internal/logio"
	"github.com/jassi-singh/toycask/internal/logset"
)

// DefaultCompactionThreshold is the dead-bytes watermark, in bytes, that
// triggers compaction when no override is configured.
const DefaultCompactionThreshold = 1024 * 1024

// Engine is the contract the server (and any future second engine) must
// satisfy: cheap-clone, thread-safe handles sharing the same underlying
// store.
type Engine interface {
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Get returns the stored value for key, or nil if the key is absent.
	Get(key string) (*string, error)
	// Remove deletes key. It returns kvserr.ErrKeyNotFound if key is absent.
	Remove(key string) error
	// Clone returns a new handle sharing the same underlying store, safe
	// to use concurrently with the original and with other clones.
	Clone() Engine
	// Close releases this handle's own resources (its reader cache). It
	// does not affect other handles sharing the same store.
	Close() error
}

// sharedState is the state every clone of a Bitcask handle shares.
type sharedState struct {
	dir       string
	threshold int64
	kd        *keydir.Dir

	writerMu     sync.Mutex // serializes Set/Remove/compact
	writer       *logio.Writer
	activeFileID uint64
	uncompacted  int64 // only touched under writerMu

	watermark atomic.Uint64 // smallest live file id; readers must not open ids below it
}

// Bitcask is a handle onto a toy-Bitcask store. The zero value is not
// usable; construct one with Open or Clone.
type Bitcask struct {
	s *sharedState

	readersMu sync.Mutex
	readers   map[uint64]*logio.Reader // this handle's own reader cache
}

var _ Engine = (*Bitcask)(nil)

// Open creates dir if it does not exist, recovers the key directory by
// replaying every existing log file in ascending id order, and opens a
// new active log file with id max(existing)+1 (or 1 for an empty
// directory). threshold <= 0 means DefaultCompactionThreshold.
func Open(dir string, threshold int64) (*Bitcask, error) {
	if threshold <= 0 {
		threshold = DefaultCompactionThreshold
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("engine: creating data dir: %w", err)
	}

	ids, err := logset.List(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: listing log files: %w", err)
	}

	kd := keydir.New()
	var uncompacted int64
	for _, id := range ids {
		n, err := recoverFile(dir, id, kd)
		if err != nil {
			return nil, fmt.Errorf("engine: recovering %d.log: %w", id, err)
		}
		uncompacted += n
	}

	activeID := logset.NextID(ids)
	writer, err := logio.CreateWriter(logset.Path(dir, activeID))
	if err != nil {
		return nil, fmt.Errorf("engine: opening active log: %w", err)
	}

	s := &sharedState{
		dir:          dir,
		threshold:    threshold,
		kd:           kd,
		writer:       writer,
		activeFileID: activeID,
		uncompacted:  uncompacted,
	}
	if len(ids) > 0 {
		s.watermark.Store(ids[0])
	}

	slog.Info("engine: opened",
		"dir", dir,
		"active_file_id", activeID,
		"keys_recovered", kd.Len(),
		"uncompacted", uncompacted,
	)

	return &Bitcask{s: s, readers: make(map[uint64]*logio.Reader)}, nil
}

// recoverFile replays a single log file into kd and returns the number of
// bytes it contributes to the dead-bytes count.
func recoverFile(dir string, id uint64, kd *keydir.Dir) (int64, error) {
	r, err := logio.OpenReader(logset.Path(dir, id))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	dec := codec.NewDecoder(r.BufioReader())
	var pos, uncompacted int64

	for {
		cmd, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Open Question (a): a decode error mid-file is treated as a
			// truncated tail, not a fatal open() error — replay stops here
			// and the rest of the log set still recovers.
			slog.Warn("engine: stopping replay at decode error, treating as truncated tail",
				"file_id", id, "offset", pos, "error", err)
			break
		}
		newPos := dec.Offset()
		length := newPos - pos

		switch cmd.Kind {
		case codec.KindSet:
			meta := keydir.Meta{FileID: id, Offset: pos, Length: length}
			if old, had := kd.Insert(cmd.Key, meta); had {
				uncompacted += old.Length
			}
		case codec.KindRemove:
			if old, had := kd.Remove(cmd.Key); had {
				uncompacted += old.Length
			}
			uncompacted += length
		}
		pos = newPos
	}

	return uncompacted, nil
}

// Set implements Engine.
func (b *Bitcask) Set(key, value string) error {
	b.s.writerMu.Lock()
	defer b.s.writerMu.Unlock()

	cmd := codec.NewSet(key, value, time.Now().Unix())
	data, err := codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("engine: encoding set: %w", err)
	}

	pre, post, err := b.s.writer.Append(data)
	if err != nil {
		return fmt.Errorf("engine: appending set: %w", err)
	}
	if err := b.s.writer.Flush(); err != nil {
		return fmt.Errorf("engine: flushing set: %w", err)
	}

	meta := keydir.Meta{FileID: b.s.activeFileID, Offset: pre, Length: post - pre}
	if old, had := b.s.kd.Insert(key, meta); had {
		b.s.uncompacted += old.Length
	}

	return b.maybeCompact()
}

// Get implements Engine.
func (b *Bitcask) Get(key string) (*string, error) {
	meta, ok := b.s.kd.Get(key)
	if !ok {
		return nil, nil
	}

	r, err := b.readerFor(meta.FileID)
	if err != nil {
		return nil, err
	}
	if err := r.SeekTo(meta.Offset); err != nil {
		return nil, fmt.Errorf("engine: seeking: %w", err)
	}
	raw, err := r.ReadExact(meta.Length)
	if err != nil {
		return nil, fmt.Errorf("engine: reading record: %w", err)
	}

	dec := codec.NewDecoder(bufio.NewReader(bytes.NewReader(raw)))
	cmd, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("engine: decoding record: %w", err)
	}
	if cmd.Kind != codec.KindSet {
		return nil, kvserr.ErrUnknownCommand
	}
	value := cmd.Value
	return &value, nil
}

// Remove implements Engine.
func (b *Bitcask) Remove(key string) error {
	b.s.writerMu.Lock()
	defer b.s.writerMu.Unlock()

	_, had := b.s.kd.Get(key)
	if !had {
		return kvserr.ErrKeyNotFound
	}

	cmd := codec.NewRemove(key, time.Now().Unix())
	data, err := codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("engine: encoding remove: %w", err)
	}
	pre, post, err := b.s.writer.Append(data)
	if err != nil {
		return fmt.Errorf("engine: appending remove: %w", err)
	}
	if err := b.s.writer.Flush(); err != nil {
		return fmt.Errorf("engine: flushing remove: %w", err)
	}

	old, _ := b.s.kd.Remove(key)
	b.s.uncompacted += old.Length + (post - pre)

	return b.maybeCompact()
}

// Clone implements Engine.
func (b *Bitcask) Clone() Engine {
	return &Bitcask{s: b.s, readers: make(map[uint64]*logio.Reader)}
}

// Close implements Engine: it releases this handle's own cached readers.
// The shared writer is never closed here — it is shared with every other
// clone and lives for the process lifetime of whoever called Open.
func (b *Bitcask) Close() error {
	b.readersMu.Lock()
	defer b.readersMu.Unlock()
	var firstErr error
	for id, r := range b.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.readers, id)
	}
	return firstErr
}

// Shutdown flushes and closes the shared active writer. Call this once,
// on the handle returned by Open, during process shutdown.
func (b *Bitcask) Shutdown() error {
	b.s.writerMu.Lock()
	defer b.s.writerMu.Unlock()
	return b.s.writer.Close()
}

// KeyDirSize reports the number of live keys, for diagnostics and tests.
func (b *Bitcask) KeyDirSize() int { return b.s.kd.Len() }

// readerFor returns this handle's cached reader for fileID, opening one
// from disk if necessary. Cache entries below the current watermark are
// evicted first, since those files are about to be (or have been)
// deleted by compaction.
func (b *Bitcask) readerFor(fileID uint64) (*logio.Reader, error) {
	b.readersMu.Lock()
	defer b.readersMu.Unlock()

	watermark := b.s.watermark.Load()
	for id, r := range b.readers {
		if id < watermark {
			r.Close()
			delete(b.readers, id)
		}
	}

	if r, ok := b.readers[fileID]; ok {
		return r, nil
	}

	r, err := logio.OpenReader(logset.Path(b.s.dir, fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kvserr.ErrLogFileNotFound
		}
		return nil, fmt.Errorf("engine: opening log file %d: %w", fileID, err)
	}
	b.readers[fileID] = r
	return r, nil
}

// maybeCompact runs compaction if the dead-bytes estimate has crossed the
// threshold. Callers must hold writerMu.
func (b *Bitcask) maybeCompact() error {
	if b.s.uncompacted < b.s.threshold {
		return nil
	}
	return b.compact()
}

// compact rewrites every live record into a new file and discards the
// files that are now fully superseded. Callers must hold writerMu.
//
// File ids follow the scheme compaction_id = active+1, new_active_id =
// active+2: both are picked up front, so no rename or cross-process lock
// is needed to hand off the active writer.
func (b *Bitcask) compact() error {
	compactionID := b.s.activeFileID + 1
	newActiveID := b.s.activeFileID + 2

	compactionWriter, err := logio.CreateWriter(logset.Path(b.s.dir, compactionID))
	if err != nil {
		return fmt.Errorf("engine: opening compaction file: %w", err)
	}
	newWriter, err := logio.CreateWriter(logset.Path(b.s.dir, newActiveID))
	if err != nil {
		compactionWriter.Close()
		return fmt.Errorf("engine: opening new active file: %w", err)
	}

	oldWriter := b.s.writer
	b.s.writer = newWriter
	b.s.activeFileID = newActiveID
	if err := oldWriter.Close(); err != nil {
		slog.Warn("engine: error closing superseded active writer", "error", err)
	}

	var compactedPos int64
	var copyErr error
	b.s.kd.Range(func(key string, meta keydir.Meta) (keydir.Meta, bool) {
		if copyErr != nil {
			return meta, false
		}
		r, err := b.readerFor(meta.FileID)
		if err != nil {
			copyErr = fmt.Errorf("engine: compaction: %w", err)
			return meta, false
		}
		if err := r.SeekTo(meta.Offset); err != nil {
			copyErr = fmt.Errorf("engine: compaction seek: %w", err)
			return meta, false
		}
		raw, err := r.ReadExact(meta.Length)
		if err != nil {
			copyErr = fmt.Errorf("engine: compaction read: %w", err)
			return meta, false
		}
		if _, _, err := compactionWriter.Append(raw); err != nil {
			copyErr = fmt.Errorf("engine: compaction write: %w", err)
			return meta, false
		}
		// Flush before the rewritten Meta becomes visible to Get, which
		// opens its own independent fd via os.Open: bytes sitting only in
		// compactionWriter's bufio.Writer are invisible to that fd, so a
		// concurrent Get landing on compactionID right after this Range
		// step would otherwise short-read. Flushing per record (instead of
		// once after the whole walk) keeps every published Meta backed by
		// bytes already visible on disk.
		if err := compactionWriter.Flush(); err != nil {
			copyErr = fmt.Errorf("engine: compaction flush: %w", err)
			return meta, false
		}

		newMeta := keydir.Meta{FileID: compactionID, Offset: compactedPos, Length: meta.Length}
		compactedPos += meta.Length
		return newMeta, true
	})
	if copyErr != nil {
		compactionWriter.Close()
		return copyErr
	}

	if err := compactionWriter.Close(); err != nil {
		return fmt.Errorf("engine: closing compaction file: %w", err)
	}

	// Every live meta now points at compactionID, each already flushed
	// before its Range step returned, so a concurrent Get either sees the
	// pre-compaction file (if it already cached a reader and hasn't
	// re-resolved the meta) or fully-written bytes in the compaction file —
	// never a half-written state (spec invariant 5).
	b.s.watermark.Store(compactionID)

	staleIDs, err := logset.List(b.s.dir)
	if err != nil {
		slog.Warn("engine: could not list log files for stale cleanup", "error", err)
	} else {
		for _, id := range staleIDs {
			if id >= compactionID {
				continue
			}
			if err := logset.Remove(b.s.dir, id); err != nil {
				slog.Warn("engine: failed to delete stale log file, will retry on next compaction",
					"file_id", id, "error", err)
			}
		}
	}

	b.s.uncompacted = 0
	slog.Info("engine: compaction complete", "compaction_file_id", compactionID, "new_active_file_id", newActiveID)
	return nil
}
