package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/sitegallery/internal/blobstore"
	"github.com/vbonduro/sitegallery/internal/domain"
)

var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// imageRepository is the subset of the metadata stores that ImageService
// requires. Every backend under internal/store satisfies it.
type imageRepository interface {
	ListAll(ctx context.Context) ([]*domain.ImageRecord, error)
	Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error)
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type ImageService struct {
	images        imageRepository
	blobs         blobstore.Store
	publicBaseURL string
	logger        *slog.Logger
}

// NewImageService wires the metadata store and blob store together.
// publicBaseURL, when set, prefixes blob keys in record URLs; otherwise
// URLs point at this process's /uploads route.
func NewImageService(images imageRepository, blobs blobstore.Store, publicBaseURL string, logger *slog.Logger) *ImageService {
	return &ImageService{
		images:        images,
		blobs:         blobs,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

type UploadInput struct {
	Filename    string
	Data        []byte
	Title       string
	Category    string
	Description string
}

// Upload stores the binary, then records its metadata. A binary whose
// record could not be written is left in place and logged with its key.
func (s *ImageService) Upload(ctx context.Context, in UploadInput) (*domain.ImageRecord, error) {
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}

	mimeType, ok := DetectImageType(in.Data)
	if !ok {
		return nil, ErrUnsupportedImage
	}

	s.logger.Info("upload started", "filename", in.Filename, "mime_type", mimeType, "bytes", len(in.Data), "category", category)

	key := uuid.NewString() + blobstore.ContentTypeToExt(mimeType)
	if err := s.blobs.Put(ctx, key, mimeType, bytes.NewReader(in.Data), int64(len(in.Data))); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	s.logger.Debug("image stored", "storage_key", key)

	rec, err := s.images.Add(ctx, &domain.ImageRecord{
		URL:          s.urlFor(key),
		StorageKey:   key,
		OriginalName: in.Filename,
		Category:     category,
		Title:        in.Title,
		Description:  in.Description,
	})
	if err != nil {
		s.logger.Warn("image stored without a record", "storage_key", key, "error", err)
		return nil, fmt.Errorf("failed to record image: %w", err)
	}

	s.logger.Info("upload complete", "id", rec.ID, "storage_key", key)
	return rec, nil
}

func (s *ImageService) urlFor(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "/uploads/" + key
}

// List returns one page of records in insertion order.
func (s *ImageService) List(ctx context.Context, page, limit int) (*Page, error) {
	all, err := s.images.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return Paginate(all, page, limit), nil
}

// PublicFeed returns every record; it backs the unauthenticated site.
func (s *ImageService) PublicFeed(ctx context.Context) ([]*domain.ImageRecord, error) {
	all, err := s.images.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if all == nil {
		all = []*domain.ImageRecord{}
	}
	return all, nil
}

// DeleteResult reports what a delete did. BlobErr carries a failure to
// remove the binary; the metadata removal still happened.
type DeleteResult struct {
	Removed bool
	BlobErr error
}

// Delete removes the record and, best-effort, its binary. Deleting an id
// that does not exist is not an error.
func (s *ImageService) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	rec, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if rec == nil {
		return &DeleteResult{}, nil
	}

	result := &DeleteResult{}
	if rec.StorageKey != "" {
		if err := s.blobs.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("failed to delete image binary", "id", id, "storage_key", rec.StorageKey, "error", err)
			result.BlobErr = err
		}
	}

	removed, err := s.images.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete image record: %w", err)
	}
	result.Removed = removed
	s.logger.Info("image deleted", "id", id, "removed", removed)
	return result, nil
}
