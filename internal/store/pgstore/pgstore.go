// Package pgstore keeps image records in a PostgreSQL table.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbonduro/sitegallery/internal/domain"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS images (
		seq           BIGSERIAL PRIMARY KEY,
		id            TEXT        NOT NULL UNIQUE,
		url           TEXT        NOT NULL,
		storage_key   TEXT        NOT NULL DEFAULT '',
		original_name TEXT        NOT NULL DEFAULT '',
		category      TEXT        NOT NULL DEFAULT 'gallery' CHECK (category IN ('gallery', 'tips')),
		title         TEXT        NOT NULL DEFAULT '',
		description   TEXT        NOT NULL DEFAULT '',
		uploaded_at   TIMESTAMPTZ NOT NULL
	)
`

const imageColumns = `id, url, storage_key, original_name, category, title, description, uploaded_at`

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Connect opens a pool, pings it and creates the images table if needed.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create images table: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error) {
	stamped, err := domain.Stamp(rec, s.now())
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO images (`+imageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, stamped.ID, stamped.URL, stamped.StorageKey, stamped.OriginalName,
		string(stamped.Category), stamped.Title, stamped.Description, stamped.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return stamped, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	rec, err := scanImage(s.pool.QueryRow(ctx, `
		SELECT `+imageColumns+` FROM images WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return rec, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*domain.ImageRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+imageColumns+` FROM images ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []*domain.ImageRecord{}
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete image: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanImage(row pgx.Row) (*domain.ImageRecord, error) {
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
