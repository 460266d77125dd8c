package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitegallery/internal/blobstore"
)

func TestLocalStorePutAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake png data")

	err = store.Put(ctx, "abc.png", "image/png", bytes.NewReader(imageData), int64(len(imageData)))
	require.NoError(t, err)

	reader, contentType, err := store.Get(ctx, "abc.png")
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", contentType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalStorePutOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "database.json", "application/json", bytes.NewReader([]byte("[1]")), 3))
	require.NoError(t, store.Put(ctx, "database.json", "application/json", bytes.NewReader([]byte("[1,2]")), 5))

	reader, contentType, err := store.Get(ctx, "database.json")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(data))
	assert.Equal(t, "application/json", contentType)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.jpg", "image/jpeg", bytes.NewReader([]byte("x")), 1))
	require.NoError(t, store.Delete(ctx, "a.jpg"))

	_, _, err = store.Get(ctx, "a.jpg")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	err = store.Delete(ctx, "a.jpg")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLocalStorePathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, blobstore.ErrNotFound)

	err = store.Put(ctx, "../escape.jpg", "image/jpeg", bytes.NewReader([]byte("x")), 1)
	assert.Error(t, err)

	err = store.Delete(ctx, "../escape.jpg")
	assert.Error(t, err)
}

func TestLocalStorePutIfMatch(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.GetVersioned(ctx, "database.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.PutIfMatch(ctx, "database.json", "application/json", []byte(`{"version":1}`), ""))
	assert.ErrorIs(t, store.PutIfMatch(ctx, "database.json", "application/json", []byte(`{}`), ""), blobstore.ErrPreconditionFailed)

	data, version, err := store.GetVersioned(ctx, "database.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	require.NoError(t, store.PutIfMatch(ctx, "database.json", "application/json", []byte(`{"version":2}`), version))
	assert.ErrorIs(t, store.PutIfMatch(ctx, "database.json", "application/json", []byte(`{"version":3}`), version), blobstore.ErrPreconditionFailed)

	// The lock is released after every attempt.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorePutIfMatchWaitsForLock(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	lock := filepath.Join(dir, ".database.json.lock")
	require.NoError(t, os.WriteFile(lock, nil, 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = store.PutIfMatch(ctx, "database.json", "application/json", []byte(`{}`), "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A lock left by a crashed writer is reclaimed.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lock, old, old))
	require.NoError(t, store.PutIfMatch(context.Background(), "database.json", "application/json", []byte(`{}`), ""))
	_, err = os.Stat(lock)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
