// Package mongostore keeps image records as documents in a MongoDB
// collection, one document per record.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vbonduro/sitegallery/internal/domain"
)

const collectionName = "images"

type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Connect dials uri and checks the server answers. The caller owns the
// returned client and must Disconnect it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func New(client *mongo.Client, database string) *Store {
	return &Store{
		coll: client.Database(database).Collection(collectionName),
		now:  time.Now,
	}
}

func (s *Store) Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error) {
	stamped, err := domain.Stamp(rec, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.coll.InsertOne(ctx, stamped); err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", err)
	}
	return stamped, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	var rec domain.ImageRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	return &rec, nil
}

// ListAll sorts by _id; ids are time-ordered UUIDs, so this is insertion order.
func (s *Store) ListAll(ctx context.Context) ([]*domain.ImageRecord, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	images := []*domain.ImageRecord{}
	if err := cur.All(ctx, &images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	for _, img := range images {
		img.UploadedAt = img.UploadedAt.UTC()
	}
	return images, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}
	return res.DeletedCount > 0, nil
}
