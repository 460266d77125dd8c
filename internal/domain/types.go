package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryGallery Category = "gallery"
	CategoryTips    Category = "tips"
)

// ParseCategory normalizes a submitted category. Blank means gallery.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "":
		return CategoryGallery, nil
	case CategoryGallery, CategoryTips:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// ImageRecord is one uploaded asset and its display metadata.
type ImageRecord struct {
	ID           string    `json:"id" bson:"_id"`
	URL          string    `json:"url" bson:"url"`
	StorageKey   string    `json:"storageKey" bson:"storageKey"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	Category     Category  `json:"category" bson:"category"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// Stamp returns a copy of rec with a fresh id and upload time. Stores call it
// from Add so every backend assigns identity the same way.
func Stamp(rec *ImageRecord, now time.Time) (*ImageRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate image id: %w", err)
	}
	out := *rec
	out.ID = id.String()
	out.UploadedAt = now.UTC().Truncate(time.Millisecond)
	return &out, nil
}
