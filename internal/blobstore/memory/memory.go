package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/vbonduro/sitegallery/internal/blobstore"
)

var _ blobstore.Store = (*Store)(nil)

type object struct {
	data        []byte
	contentType string
	rev         uint64
}

// Store is a process-local blob store. Contents are lost on restart.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	seq     uint64
}

func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Put(_ context.Context, key, contentType string, r io.Reader, _ int64) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, contentType, data)
	return nil
}

func (s *Store) putLocked(key, contentType string, data []byte) {
	s.seq++
	s.objects[key] = object{data: data, contentType: contentType, rev: s.seq}
}

func (s *Store) GetVersioned(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", blobstore.ErrNotFound
	}
	return bytes.Clone(obj.data), strconv.FormatUint(obj.rev, 10), nil
}

func (s *Store) PutIfMatch(_ context.Context, key, contentType string, data []byte, version string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := ""
	if obj, ok := s.objects[key]; ok {
		current = strconv.FormatUint(obj.rev, 10)
	}
	if current != version {
		return blobstore.ErrPreconditionFailed
	}
	s.putLocked(key, contentType, bytes.Clone(data))
	return nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
