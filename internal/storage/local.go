package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes evidence below a directory on the local filesystem.
type LocalStore struct {
	root     string
	maxBytes int64
	now      func() time.Time
}

func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, evidenceFolder), 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &LocalStore{root: root, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *LocalStore) Save(ctx context.Context, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	path := ObjectPath(s.now(), upload.Filename)
	full := filepath.Join(s.root, filepath.FromSlash(path))

	file, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}

	reader := upload.Body
	if s.maxBytes > 0 {
		reader = io.LimitReader(upload.Body, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("write evidence file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("close evidence file: %w", closeErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		_ = os.Remove(full)
		return "", ErrTooLarge
	}
	return path, nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
