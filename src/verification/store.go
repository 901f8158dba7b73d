package verification

import (
	"context"
	"errors"

	"github.com/tradesafe/tradeverify/src/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("verification: record not found")

// Store is the persistence boundary. Upsert is idempotent keyed on the
// record ID; partial and final writes go through the same call.
type Store interface {
	Upsert(ctx context.Context, rec *types.Verification) error
	Get(ctx context.Context, id string) (*types.Verification, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Upsert(ctx context.Context, rec *types.Verification) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

func (s *gormStore) Get(ctx context.Context, id string) (*types.Verification, error) {
	var rec types.Verification
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
