package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by every repository when a record is missing.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = gorm.ErrDuplicatedKey
)

// Store groups the repositories and runs work atomically across them.
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Posts() PostRepository
	// WithTransaction runs fn inside one transaction. fn must only use the
	// Store it is handed; returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// PostSort selects the order of post listings.
type PostSort string

const (
	SortLatest    PostSort = "latest"
	SortPopular   PostSort = "popular"
	SortPriceLow  PostSort = "price-low"
	SortPriceHigh PostSort = "price-high"
)

// ParsePostSort maps a query value to a PostSort. Unknown values, including
// "relevance", sort by latest.
func ParsePostSort(s string) PostSort {
	switch PostSort(s) {
	case SortPopular, SortPriceLow, SortPriceHigh:
		return PostSort(s)
	}
	return SortLatest
}

// PostFilter narrows post listings. Zero values match everything.
type PostFilter struct {
	CategoryID *uuid.UUID
	AuthorID   *uuid.UUID
	// Query matches a case-insensitive substring of title or content, or a tag exactly.
	Query string
	Sort  PostSort
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) Categories() CategoryRepository {
	return NewCategoryRepository(s.db)
}

func (s *gormStore) Posts() PostRepository {
	return NewPostRepository(s.db)
}

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
