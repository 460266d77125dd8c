package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/vbonduro/sitegallery/internal/blobstore"
	"github.com/vbonduro/sitegallery/internal/domain"
)

// DocumentKey is the blob key holding the whole image collection.
const DocumentKey = "database.json"

const defaultMaxAttempts = 8

// ErrConflict means the collection document kept changing underneath a
// mutation and the retries ran out.
var ErrConflict = errors.New("image document modified concurrently")

// document is the persisted shape of the collection. Version increases by
// one on every write.
type document struct {
	Version int64                 `json:"version"`
	Images  []*domain.ImageRecord `json:"images"`
}

// BlobImageStore keeps the entire collection as one JSON document in a blob
// store. Every mutation rewrites the document with a conditional write
// against the version it read, so concurrent writers in this or any other
// process never overwrite each other; the loser re-reads and retries.
type BlobImageStore struct {
	blobs       blobstore.Store
	key         string
	maxAttempts int
	now         func() time.Time

	mu sync.Mutex
}

func NewBlobImageStore(blobs blobstore.Store) *BlobImageStore {
	return &BlobImageStore{
		blobs:       blobs,
		key:         DocumentKey,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

func (s *BlobImageStore) ListAll(ctx context.Context) ([]*domain.ImageRecord, error) {
	doc, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Images, nil
}

func (s *BlobImageStore) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	doc, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(doc.Images, id); i >= 0 {
		return doc.Images[i], nil
	}
	return nil, nil
}

func (s *BlobImageStore) Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error) {
	stamped, err := domain.Stamp(rec, s.now())
	if err != nil {
		return nil, err
	}
	err = s.mutate(ctx, func(doc *document) bool {
		doc.Images = append(doc.Images, stamped)
		return true
	})
	if err != nil {
		return nil, err
	}
	return stamped, nil
}

func (s *BlobImageStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, func(doc *document) bool {
		i := indexOf(doc.Images, id)
		removed = i >= 0
		if removed {
			doc.Images = append(doc.Images[:i], doc.Images[i+1:]...)
		}
		return removed
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// mutate applies fn to a fresh copy of the document and writes it back if fn
// reports a change. A write rejected because the document moved since the
// read is retried from a new read.
func (s *BlobImageStore) mutate(ctx context.Context, fn func(doc *document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range s.maxAttempts {
		doc, version, err := s.load(ctx)
		if err != nil {
			return err
		}
		if !fn(doc) {
			return nil
		}

		doc.Version++
		err = s.save(ctx, doc, version)
		if errors.Is(err, blobstore.ErrPreconditionFailed) {
			continue
		}
		return err
	}
	return ErrConflict
}

// load returns the document and the blob version it was read at; a missing
// document is empty at version "".
func (s *BlobImageStore) load(ctx context.Context) (*document, string, error) {
	data, version, err := s.blobs.GetVersioned(ctx, s.key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return &document{Images: []*domain.ImageRecord{}}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image document: %w", err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, "", err
	}
	return doc, version, nil
}

func (s *BlobImageStore) save(ctx context.Context, doc *document, version string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode image document: %w", err)
	}
	err = s.blobs.PutIfMatch(ctx, s.key, "application/json", data, version)
	if errors.Is(err, blobstore.ErrPreconditionFailed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to write image document: %w", err)
	}
	return nil
}

// legacyImage is a record as written by earlier versions of this service,
// which stored a bare array with "_id" and "blobUrl" fields.
type legacyImage struct {
	ID           string    `json:"_id"`
	URL          string    `json:"url"`
	BlobURL      string    `json:"blobUrl"`
	OriginalName string    `json:"originalName"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func decodeDocument(data []byte) (*document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &document{Images: []*domain.ImageRecord{}}, nil
	}

	if data[0] == '[' {
		var legacy []legacyImage
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode image document: %w", err)
		}
		doc := &document{Images: make([]*domain.ImageRecord, 0, len(legacy))}
		for _, l := range legacy {
			doc.Images = append(doc.Images, l.toDomain())
		}
		return doc, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode image document: %w", err)
	}
	if doc.Images == nil {
		doc.Images = []*domain.ImageRecord{}
	}
	return &doc, nil
}

func (l legacyImage) toDomain() *domain.ImageRecord {
	cat := domain.Category(l.Category)
	if cat == "" {
		cat = domain.CategoryGallery
	}
	rec := &domain.ImageRecord{
		ID:           l.ID,
		URL:          l.URL,
		OriginalName: l.OriginalName,
		Category:     cat,
		Title:        l.Title,
		Description:  l.Description,
		UploadedAt:   l.UploadedAt,
	}
	ref := l.BlobURL
	if ref == "" {
		ref = l.URL
	}
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		rec.StorageKey = path.Base(u.Path)
	}
	return rec
}
