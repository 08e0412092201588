// Package blob stores uploaded files and hands back public URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists an object under a key and returns the URL it will be
// served from.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// FileStore keeps objects on the local filesystem under root. The HTTP
// server exposes the same directory, so returned URLs resolve directly.
type FileStore struct {
	root    string
	baseURL string
}

func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (f *FileStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean(key))
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	dst, err := os.Create(filepath.Join(f.root, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return f.baseURL + "/uploads/" + name, nil
}
