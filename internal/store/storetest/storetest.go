// Package storetest holds the behavioural checks every image metadata backend
// must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitegallery/internal/domain"
)

type ImageStore interface {
	ListAll(ctx context.Context) ([]*domain.ImageRecord, error)
	Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error)
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// Run executes the shared suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) ImageStore) {
	t.Run("EmptyListIsNotAnError", func(t *testing.T) {
		s := newStore(t)
		images, err := s.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, images)
	})

	t.Run("AddAssignsIdentity", func(t *testing.T) {
		s := newStore(t)
		before := time.Now().UTC().Add(-time.Second)

		in := sample("Lock your door", domain.CategoryTips)
		got, err := s.Add(context.Background(), in)
		require.NoError(t, err)

		assert.NotEmpty(t, got.ID)
		assert.Empty(t, in.ID, "Add must not mutate its argument")
		assert.True(t, got.UploadedAt.After(before), "uploadedAt %v not after %v", got.UploadedAt, before)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Category, got.Category)
		assert.Equal(t, in.Description, got.Description)
		assert.Equal(t, in.OriginalName, got.OriginalName)
		assert.Equal(t, in.URL, got.URL)
		assert.Equal(t, in.StorageKey, got.StorageKey)
	})

	t.Run("ListAllKeepsInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var ids []string
		for i := range 5 {
			rec, err := s.Add(ctx, sample(fmt.Sprintf("image %d", i), domain.CategoryGallery))
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}

		images, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, images, 5)
		for i, img := range images {
			assert.Equal(t, ids[i], img.ID)
			assert.Equal(t, fmt.Sprintf("image %d", i), img.Title)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec, err := s.Add(ctx, sample("a", domain.CategoryGallery))
		require.NoError(t, err)

		got, err := s.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.WithinDuration(t, rec.UploadedAt, got.UploadedAt, time.Millisecond)

		missing, err := s.GetByID(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("DeleteByIDRemovesExactlyOne", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a, err := s.Add(ctx, sample("a", domain.CategoryGallery))
		require.NoError(t, err)
		_, err = s.Add(ctx, sample("b", domain.CategoryTips))
		require.NoError(t, err)

		removed, err := s.DeleteByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		images, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, "b", images[0].Title)

		removed, err = s.DeleteByID(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, removed, "second delete of the same id must report no removal")
	})

	t.Run("ConcurrentAddsAreNotLost", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const n = 10

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Add(ctx, sample(fmt.Sprintf("c%d", i), domain.CategoryGallery))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		images, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, images, n)
	})
}

func sample(title string, cat domain.Category) *domain.ImageRecord {
	return &domain.ImageRecord{
		URL:          "/uploads/" + title + ".jpg",
		StorageKey:   title + ".jpg",
		OriginalName: title + ".jpg",
		Category:     cat,
		Title:        title,
		Description:  "about " + title,
	}
}
