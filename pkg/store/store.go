// Package store declares the persistence contracts of the pipeline. Lookups
// of absent rows return nil, nil rather than an error.
package store

import (
	"context"

	"github.com/quatton/podium/pkg/scoring"
	"github.com/quatton/podium/pkg/sport"
	"github.com/shopspring/decimal"
)

// Users is the user and credential store.
type Users interface {
	Get(ctx context.Context, telegramID int64) (*sport.User, error)
	GetByAthlete(ctx context.Context, athleteID int64) (*sport.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]sport.User, error)
	// ListLinked returns users holding a credential, ordered by id.
	ListLinked(ctx context.Context) ([]sport.User, error)
	// Upsert inserts u or updates every non-empty field of the existing row.
	Upsert(ctx context.Context, u *sport.User) error
	// SaveCredential replaces all three credential fields at once.
	SaveCredential(ctx context.Context, telegramID int64, cred sport.Credential) error
	// UpdateName sets the display name. It reports false when the user does
	// not exist.
	UpdateName(ctx context.Context, telegramID int64, first, last string) (bool, error)
	IsAuthorized(ctx context.Context, telegramID int64) (bool, error)
}

// Activities is the scored activity store.
type Activities interface {
	// UpsertMany inserts or replaces rows keyed by activity id.
	UpsertMany(ctx context.Context, acts []sport.Activity) error
	ListByUser(ctx context.Context, userID int64) ([]sport.Activity, error)
	// ListAll returns every activity ordered by start date, then id.
	ListAll(ctx context.Context) ([]sport.Activity, error)
	// UpdateWeighted sets the weighted distance of the given rows.
	UpdateWeighted(ctx context.Context, weighted map[int64]decimal.Decimal) error
	// DeleteMany removes the given rows of one user. Ids owned by someone
	// else are left alone.
	DeleteMany(ctx context.Context, userID int64, ids []int64) error
	// Recent returns the newest activities of a user, by start date.
	Recent(ctx context.Context, userID int64, limit int) ([]sport.Activity, error)
	Count(ctx context.Context, userID int64) (int, error)
}

// Weights persists administrative weight overrides.
type Weights = scoring.WeightStore
