package vectorstore

import (
	"context"
	"errors"

	"ragc/internal/domain"
)

// ErrCollectionNotFound is returned for operations on an unknown collection.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrCollectionExists is returned when creating a collection twice.
var ErrCollectionExists = errors.New("collection already exists")

// Storage keeps named collections of vectors and supports similarity search.
type Storage interface {
	CreateCollection(ctx context.Context, name string, size int, distance domain.Distance) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error)
	Upsert(ctx context.Context, collection string, points []domain.Point) error
	Search(ctx context.Context, collection string, vector []float64, limit int, scoreThreshold float64) ([]domain.SearchResult, error)
}
