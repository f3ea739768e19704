// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact writes the JSON documents produced by pipeline stages.
// File names are derived from content keys so that identical inputs always
// land on the same file and a rerun overwrites it.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Key returns the content key for s: the lowercase hex SHA-256 digest.
func Key(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SearchFileName returns the snapshot file name for a search topic.
func SearchFileName(topic string) string {
	return "search_" + Key(topic) + ".json"
}

// SummaryFileName returns the file name for a summary keyed by its prompt hash.
func SummaryFileName(promptHash string) string {
	return "summary_" + promptHash + ".json"
}

// Store writes documents into a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory documents are written to.
func (s *Store) Dir() string { return s.dir }

// WriteJSON encodes v as indented JSON and writes it to name inside the
// store directory, replacing any existing file. The document is written to
// a temporary file first and renamed into place, so concurrent readers see
// either the old or the new document. Returns the path written.
func (s *Store) WriteJSON(name string, v any) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("renaming into %s: %w", path, err)
	}
	return path, nil
}
