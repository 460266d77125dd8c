package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/sitegallery/internal/domain"
)

// ImageStore keeps image records in SQLite. Every mutation is a single-row
// statement, so concurrent writers cannot lose each other's changes.
type ImageStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewImageStore(db *sql.DB) *ImageStore {
	return &ImageStore{db: db, now: time.Now}
}

const imageColumns = `id, url, storage_key, original_name, category, title, description, uploaded_at`

func (s *ImageStore) Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error) {
	stamped, err := domain.Stamp(rec, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, stamped.ID, stamped.URL, stamped.StorageKey, stamped.OriginalName,
		string(stamped.Category), stamped.Title, stamped.Description, stamped.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", err)
	}
	return stamped, nil
}

func (s *ImageStore) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	rec, err := scanImage(s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+` FROM images WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return rec, nil
}

func (s *ImageStore) ListAll(ctx context.Context) ([]*domain.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+` FROM images ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := []*domain.ImageRecord{}
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}
	return images, nil
}

func (s *ImageStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.ImageRecord, error) {
	var (
		rec      domain.ImageRecord
		category string
	)
	if err := row.Scan(&rec.ID, &rec.URL, &rec.StorageKey, &rec.OriginalName,
		&category, &rec.Title, &rec.Description, &rec.UploadedAt); err != nil {
		return nil, err
	}
	rec.Category = domain.Category(category)
	rec.UploadedAt = rec.UploadedAt.UTC()
	return &rec, nil
}
