// Package filestore reads and writes named files under a root directory.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotFound    = errors.New("filestore: not found")
	ErrInvalidName = errors.New("filestore: invalid name")
)

// Store is the file collaborator used by the router.
type Store interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Dir is a Store rooted at a directory on the local filesystem. Names must
// be local paths (see filepath.IsLocal); anything that could escape the
// root is rejected with ErrInvalidName.
type Dir string

func (d Dir) path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(string(d), name), nil
}

func (d Dir) Read(name string) ([]byte, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, err
}

// Write creates or truncates the named file. Concurrent writes to the
// same name are not coordinated.
func (d Dir) Write(name string, data []byte) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
