package pg

import (
	"context"
	"time"

	"github.com/quatton/podium/pkg/db/models"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Weights struct {
	db bun.IDB
}

func NewWeights(db bun.IDB) *Weights {
	return &Weights{db: db}
}

func (s *Weights) ListWeights(ctx context.Context) ([]sport.Weight, error) {
	var rows []models.Weight
	if err := s.db.NewSelect().Model(&rows).OrderExpr("w.sport_type ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]sport.Weight, len(rows))
	for i, r := range rows {
		out[i] = sport.Weight{SportType: r.SportType, Weight: r.Weight}
	}
	return out, nil
}

func (s *Weights) SetWeight(ctx context.Context, sportType string, weight decimal.Decimal) error {
	_, err := s.db.NewInsert().
		Model(&models.Weight{SportType: sportType, Weight: weight, UpdatedAt: time.Now()}).
		On("CONFLICT (sport_type) DO UPDATE").
		Set("weight = EXCLUDED.weight").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Weights) DeleteWeight(ctx context.Context, sportType string) error {
	_, err := s.db.NewDelete().Model((*models.Weight)(nil)).
		Where("sport_type = ?", sportType).
		Exec(ctx)
	return err
}

var _ store.Weights = (*Weights)(nil)
