package blobstore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Get and Delete when no object exists under key.
	ErrNotFound = errors.New("blob not found")
	// ErrPreconditionFailed is returned by PutIfMatch when the stored object
	// is no longer the version the caller read.
	ErrPreconditionFailed = errors.New("blob changed since it was read")
)

// Store holds binary objects under caller-chosen keys. Put overwrites.
//
// GetVersioned returns the object's data with an opaque version token.
// PutIfMatch writes only if the stored object still carries that version;
// an empty version means the object must not exist yet. The check and the
// write are atomic across every client of the same backend.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error

	GetVersioned(ctx context.Context, key string) ([]byte, string, error)
	PutIfMatch(ctx context.Context, key, contentType string, data []byte, version string) error
}

// ContentTypeToExt returns the file extension used for a stored content type.
func ContentTypeToExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/json":
		return ".json"
	default:
		return ".jpg"
	}
}

// ExtToContentType is the inverse of ContentTypeToExt, for backends that do
// not keep content types alongside the data.
func ExtToContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".json":
		return "application/json"
	default:
		return "image/jpeg"
	}
}
