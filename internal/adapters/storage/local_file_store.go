package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"package-tracking-service/internal/ports"
	"path"
	"path/filepath"
	"strings"
)

// LocalFileStore keeps blobs under Dir and hands out references rooted at
// BaseURL. The HTTP server serves Dir at BaseURL.
type LocalFileStore struct {
	Dir     string
	BaseURL string
}

func NewLocalFileStore(dir, baseURL string) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("files: create dir: %w", err)
	}
	return &LocalFileStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ ports.FileStore = (*LocalFileStore)(nil)

func (s *LocalFileStore) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("files: put %s: mkdir: %w", clean, err)
	}

	// Write then rename so readers never observe a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("files: put %s: temp: %w", clean, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("files: put %s: write: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("files: put %s: close: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("files: put %s: rename: %w", clean, err)
	}

	return s.BaseURL + "/" + clean, nil
}

func (s *LocalFileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := s.BaseURL + "/"
	if !strings.HasPrefix(ref, prefix) {
		return nil
	}
	clean, err := cleanKey(strings.TrimPrefix(ref, prefix))
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("files: delete %s: %w", clean, err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean == "." {
		return "", fmt.Errorf("files: invalid key %q", key)
	}
	return clean, nil
}
