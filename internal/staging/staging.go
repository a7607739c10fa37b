// Package staging keeps extracted overlay content in per-entry files inside a
// container-provided directory.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
	namePrefix      = "overlay_"
	nameSuffix      = ".bin"
)

// Store writes staging files into one directory.
type Store struct {
	dir      string      // directory holding staging files
	dirPerm  os.FileMode // permissions for created directories
	filePerm os.FileMode // permissions for staging files
}

// Option configures a Store.
type Option func(*Store)

// WithDirPerm sets the permissions used when creating the staging directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions of staging files.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("staging dir is empty")
	}
	s := &Store{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}
	return s, nil
}

// FilePerm returns the permissions given to staging files.
func (s *Store) FilePerm() os.FileMode {
	return s.filePerm
}

// Path returns the staging file path for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, Name(key))
}

// Put writes data to a fresh staging file for key and returns its path.
func (s *Store) Put(key string, data []byte) (string, error) {
	path := s.Path(key)
	if err := Write(path, data, s.filePerm); err != nil {
		return "", err
	}
	return path, nil
}

// Name returns the staging file name for key with every character outside
// [A-Za-z0-9_] removed.
func Name(key string) string {
	var b strings.Builder
	b.Grow(len(namePrefix) + len(key) + len(nameSuffix))
	b.WriteString(namePrefix)
	for _, r := range key {
		if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	b.WriteString(nameSuffix)
	return b.String()
}

// Write replaces the file at path with data. The content is written to a
// temporary file in the same directory and renamed over path, so readers
// never observe a partial file.
func Write(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stage-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Read returns the full content of the staging file at path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the overlay id, not user input
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes the staging file at path. Missing files are a no-op.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}
