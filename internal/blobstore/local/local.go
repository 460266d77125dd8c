package local

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbonduro/sitegallery/internal/blobstore"
)

var _ blobstore.Store = (*Store)(nil)

const (
	lockPollInterval = 5 * time.Millisecond
	// A lock file older than this is assumed to belong to a crashed writer.
	staleLockAge = 30 * time.Second
)

// Store keeps blobs as files under a base directory. Keys are flat file
// names; anything resolving outside the base directory is rejected.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Put writes to a temp file first and renames it into place, so readers
// never observe a half-written object.
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	return s.writeFile(filePath, r)
}

// GetVersioned reads the whole file; its version is the SHA-256 of the
// contents.
func (s *Store) GetVersioned(ctx context.Context, key string) ([]byte, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}
	data, version, err := readVersioned(filePath)
	if err != nil {
		return nil, "", err
	}
	if version == "" {
		return nil, "", blobstore.ErrNotFound
	}
	return data, version, nil
}

// PutIfMatch holds an exclusive lock file next to the object while it
// compares versions and renames the new contents into place. Every process
// sharing the directory honours the same lock.
func (s *Store) PutIfMatch(ctx context.Context, key, contentType string, data []byte, version string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	unlock, err := acquireLock(ctx, lockPath(filePath))
	if err != nil {
		return err
	}
	defer unlock()

	_, current, err := readVersioned(filePath)
	if err != nil {
		return err
	}
	if current != version {
		return blobstore.ErrPreconditionFailed
	}
	return s.writeFile(filePath, bytes.NewReader(data))
}

// readVersioned returns an empty version when the file does not exist.
func readVersioned(filePath string) ([]byte, string, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

func lockPath(filePath string) string {
	return filepath.Join(filepath.Dir(filePath), "."+filepath.Base(filePath)+".lock")
}

// acquireLock creates path exclusively, polling until it succeeds or ctx
// ends. The returned func releases the lock.
func acquireLock(ctx context.Context, path string) (func(), error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			if cerr := f.Close(); cerr != nil {
				slog.Error("failed to close lock file", "path", path, "error", cerr)
			}
			return func() { removeQuietly(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			slog.Warn("removing stale lock file", "path", path, "age", time.Since(info.ModTime()))
			removeQuietly(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", filepath.Base(path), ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

func (s *Store) writeFile(filePath string, r io.Reader) error {
	f, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		removeQuietly(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		removeQuietly(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		removeQuietly(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", blobstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, blobstore.ExtToContentType(filePath), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return blobstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove temp file", "path", path, "error", err)
	}
}
