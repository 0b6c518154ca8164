package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskBucket stores blobs as files under a root directory. Object paths use
// forward slashes and may not escape the root.
type DiskBucket struct {
	root string
}

var _ Bucket = (*DiskBucket)(nil)

// NewDiskBucket creates the root directory if needed.
func NewDiskBucket(root string) (*DiskBucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root %q: %w", root, err)
	}
	return &DiskBucket{root: root}, nil
}

func (b *DiskBucket) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(path))
	if clean == "/" {
		return "", fmt.Errorf("blob: empty object path")
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// Put writes data atomically: a temp file is renamed into place.
func (b *DiskBucket) Put(_ context.Context, path string, data []byte, _ string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("blob: create dir for %q: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("blob: create %q: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob: close %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob: commit %q: %w", path, err)
	}
	return nil
}

func (b *DiskBucket) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: open %q: %w", path, err)
	}
	return f, nil
}

func (b *DiskBucket) Delete(_ context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("blob: delete %q: %w", path, err)
	}
	return nil
}
