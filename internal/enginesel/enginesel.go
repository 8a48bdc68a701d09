// Package enginesel resolves which storage engine a data directory is
// bound to, via a small "engine" marker file in that directory. Once a
// directory has been opened with one engine, opening it again with a
// different engine is a hard error: the two engines' on-disk formats are
// not compatible.
package enginesel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jassi-singh/toycask/internal/kvserr"
)

const markerFile = "engine"

// Known engine names. "sled" is accepted as a marker value (a data
// directory created by a hypothetical sled-backed build is recognized)
// but no engine implementation for it ships here — resolving "sled" as
// the active engine for this build fails with ErrEngineUnavailable.
const (
	NameKVS  = "kvs"
	NameSled = "sled"
)

func isKnownName(name string) bool {
	return name == NameKVS || name == NameSled
}

// Resolve determines which engine name dataDir is bound to. If no marker
// exists yet, it writes one for requested (defaulting to NameKVS when
// requested is empty), creating dataDir first if needed, and returns it. If a marker exists, requested (when
// non-empty) must match it or ErrIncompatibleEngineType is returned.
//
// Resolve never opens an engine; it only arbitrates the marker. Callers
// are responsible for rejecting an unimplemented resolved name (see
// NameSled above) before constructing a store.
func Resolve(dataDir, requested string) (string, error) {
	path := filepath.Join(dataDir, markerFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("enginesel: reading marker: %w", err)
		}
		name := requested
		if name == "" {
			name = NameKVS
		}
		if !isKnownName(name) {
			return "", kvserr.ErrUnknownEngineType
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return "", fmt.Errorf("enginesel: creating data dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			return "", fmt.Errorf("enginesel: writing marker: %w", err)
		}
		return name, nil
	}

	existing := strings.TrimSpace(string(data))
	if !isKnownName(existing) {
		return "", kvserr.ErrUnknownEngineType
	}
	if requested != "" && requested != existing {
		return "", kvserr.ErrIncompatibleEngineType
	}
	return existing, nil
}

// CheckAvailable returns ErrEngineUnavailable if name names a recognized
// engine that this build cannot actually construct (only "kvs" is
// implemented).
func CheckAvailable(name string) error {
	if name == NameKVS {
		return nil
	}
	if isKnownName(name) {
		return kvserr.ErrEngineUnavailable
	}
	return kvserr.ErrUnknownEngineType
}
