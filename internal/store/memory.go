package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vbonduro/sitegallery/internal/domain"
)

// MemoryImageStore keeps records in process memory. It backs demos and tests;
// nothing survives a restart.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images []*domain.ImageRecord
	now    func() time.Time
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{now: time.Now}
}

func (s *MemoryImageStore) Add(_ context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error) {
	stamped, err := domain.Stamp(rec, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, stamped)
	c := *stamped
	return &c, nil
}

func (s *MemoryImageStore) GetByID(_ context.Context, id string) (*domain.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.images, id); i >= 0 {
		c := *s.images[i]
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryImageStore) ListAll(_ context.Context) ([]*domain.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.images), nil
}

func (s *MemoryImageStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.images, id)
	if i < 0 {
		return false, nil
	}
	s.images = slices.Delete(s.images, i, i+1)
	return true, nil
}

func indexOf(images []*domain.ImageRecord, id string) int {
	for i, img := range images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(images []*domain.ImageRecord) []*domain.ImageRecord {
	out := make([]*domain.ImageRecord, 0, len(images))
	for _, img := range images {
		c := *img
		out = append(out, &c)
	}
	return out
}
