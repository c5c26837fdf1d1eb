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

type Activities struct {
	db *bun.DB
}

func NewActivities(db *bun.DB) *Activities {
	return &Activities{db: db}
}

func toActivity(m *models.Activity) sport.Activity {
	return sport.Activity{
		ID:               m.ActivityID,
		UserID:           m.UserID,
		SportType:        m.Type,
		Distance:         m.Distance,
		WeightedDistance: m.WeightedDistance,
		Name:             m.Name,
		StartDate:        m.StartDate.UTC(),
	}
}

func toActivities(rows []models.Activity) []sport.Activity {
	out := make([]sport.Activity, len(rows))
	for i := range rows {
		out[i] = toActivity(&rows[i])
	}
	return out
}

func (s *Activities) UpsertMany(ctx context.Context, acts []sport.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	_, err := s.upsertQuery(acts, time.Now()).Exec(ctx)
	return err
}

func (s *Activities) upsertQuery(acts []sport.Activity, now time.Time) *bun.InsertQuery {
	rows := make([]models.Activity, len(acts))
	for i, a := range acts {
		rows[i] = models.Activity{
			ActivityID:       a.ID,
			UserID:           a.UserID,
			Type:             a.SportType,
			Distance:         a.Distance,
			WeightedDistance: a.WeightedDistance,
			Name:             a.Name,
			StartDate:        a.StartDate,
			UpdatedAt:        now,
		}
	}
	return s.db.NewInsert().Model(&rows).
		On("CONFLICT (activity_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("type = EXCLUDED.type").
		Set("distance = EXCLUDED.distance").
		Set("weighted_distance = EXCLUDED.weighted_distance").
		Set("name = EXCLUDED.name").
		Set("start_date = EXCLUDED.start_date").
		Set("updated_at = EXCLUDED.updated_at")
}

func (s *Activities) ListByUser(ctx context.Context, userID int64) ([]sport.Activity, error) {
	var rows []models.Activity
	err := s.db.NewSelect().Model(&rows).
		Where("a.user_id = ?", userID).
		OrderExpr("a.start_date ASC, a.activity_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toActivities(rows), nil
}

func (s *Activities) ListAll(ctx context.Context) ([]sport.Activity, error) {
	var rows []models.Activity
	err := s.db.NewSelect().Model(&rows).
		OrderExpr("a.start_date ASC, a.activity_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toActivities(rows), nil
}

// UpdateWeighted applies all updates in one transaction.
func (s *Activities) UpdateWeighted(ctx context.Context, weighted map[int64]decimal.Decimal) error {
	if len(weighted) == 0 {
		return nil
	}
	now := time.Now()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for id, w := range weighted {
			_, err := tx.NewUpdate().Model((*models.Activity)(nil)).
				Set("weighted_distance = ?", w).
				Set("updated_at = ?", now).
				Where("activity_id = ?", id).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Activities) DeleteMany(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.deleteQuery(userID, ids).Exec(ctx)
	return err
}

func (s *Activities) deleteQuery(userID int64, ids []int64) *bun.DeleteQuery {
	return s.db.NewDelete().Model((*models.Activity)(nil)).
		Where("user_id = ?", userID).
		Where("activity_id IN (?)", bun.In(ids))
}

func (s *Activities) Recent(ctx context.Context, userID int64, limit int) ([]sport.Activity, error) {
	var rows []models.Activity
	err := s.db.NewSelect().Model(&rows).
		Where("a.user_id = ?", userID).
		OrderExpr("a.start_date DESC, a.activity_id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toActivities(rows), nil
}

func (s *Activities) Count(ctx context.Context, userID int64) (int, error) {
	return s.db.NewSelect().Model((*models.Activity)(nil)).
		Where("a.user_id = ?", userID).
		Count(ctx)
}

var _ store.Activities = (*Activities)(nil)
