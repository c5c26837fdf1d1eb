// Package pg implements the store contracts on Postgres through bun.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quatton/podium/pkg/db/models"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
	"github.com/uptrace/bun"
)

type Users struct {
	db bun.IDB
}

func NewUsers(db bun.IDB) *Users {
	return &Users{db: db}
}

func toUser(m *models.User) *sport.User {
	u := &sport.User{
		TelegramID:       m.TelegramID,
		PhoneNumber:      m.PhoneNumber,
		IsVerified:       m.IsVerified,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		TelegramUsername: m.TelegramUsername,
		AthleteID:        m.StravaAthleteID,
	}
	if m.StravaAccessToken != "" && m.StravaRefreshToken != "" {
		u.Credential = &sport.Credential{
			AccessToken:  m.StravaAccessToken,
			RefreshToken: m.StravaRefreshToken,
			ExpiresAt:    m.StravaExpiresAt.UTC(),
		}
	}
	return u
}

func fromUser(u *sport.User) *models.User {
	m := &models.User{
		TelegramID:       u.TelegramID,
		PhoneNumber:      u.PhoneNumber,
		IsVerified:       u.IsVerified,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		TelegramUsername: u.TelegramUsername,
		StravaAthleteID:  u.AthleteID,
	}
	if u.Credential != nil {
		m.StravaAccessToken = u.Credential.AccessToken
		m.StravaRefreshToken = u.Credential.RefreshToken
		m.StravaExpiresAt = u.Credential.ExpiresAt
	}
	return m
}

func (s *Users) getWhere(ctx context.Context, where string, arg any) (*sport.User, error) {
	m := new(models.User)
	err := s.db.NewSelect().Model(m).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(m), nil
}

func (s *Users) Get(ctx context.Context, telegramID int64) (*sport.User, error) {
	return s.getWhere(ctx, "u.telegram_id = ?", telegramID)
}

func (s *Users) GetByAthlete(ctx context.Context, athleteID int64) (*sport.User, error) {
	return s.getWhere(ctx, "u.strava_athlete_id = ?", athleteID)
}

func (s *Users) ListByIDs(ctx context.Context, ids []int64) ([]sport.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	if err := s.db.NewSelect().Model(&rows).Where("u.telegram_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]sport.User, len(rows))
	for i := range rows {
		out[i] = *toUser(&rows[i])
	}
	return out, nil
}

func (s *Users) ListLinked(ctx context.Context) ([]sport.User, error) {
	var rows []models.User
	err := s.db.NewSelect().Model(&rows).
		Where("u.strava_refresh_token IS NOT NULL").
		OrderExpr("u.telegram_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sport.User, len(rows))
	for i := range rows {
		out[i] = *toUser(&rows[i])
	}
	return out, nil
}

// Upsert inserts the user or merges non-empty fields into the existing row.
func (s *Users) Upsert(ctx context.Context, u *sport.User) error {
	_, err := s.upsertQuery(u, time.Now()).Exec(ctx)
	return err
}

func (s *Users) upsertQuery(u *sport.User, now time.Time) *bun.InsertQuery {
	m := fromUser(u)
	m.UpdatedAt = now
	return s.db.NewInsert().Model(m).
		On("CONFLICT (telegram_id) DO UPDATE").
		Set("phone_number = COALESCE(EXCLUDED.phone_number, u.phone_number)").
		Set("is_verified = u.is_verified OR EXCLUDED.is_verified").
		Set("first_name = COALESCE(EXCLUDED.first_name, u.first_name)").
		Set("last_name = COALESCE(EXCLUDED.last_name, u.last_name)").
		Set("telegram_username = COALESCE(EXCLUDED.telegram_username, u.telegram_username)").
		Set("strava_athlete_id = COALESCE(EXCLUDED.strava_athlete_id, u.strava_athlete_id)").
		Set(`strava_access_token = CASE WHEN EXCLUDED.strava_refresh_token IS NULL THEN u.strava_access_token ELSE EXCLUDED.strava_access_token END`).
		Set(`strava_expires_at = CASE WHEN EXCLUDED.strava_refresh_token IS NULL THEN u.strava_expires_at ELSE EXCLUDED.strava_expires_at END`).
		Set("strava_refresh_token = COALESCE(EXCLUDED.strava_refresh_token, u.strava_refresh_token)").
		Set("updated_at = EXCLUDED.updated_at")
}

// SaveCredential writes the three credential columns in one statement.
func (s *Users) SaveCredential(ctx context.Context, telegramID int64, cred sport.Credential) error {
	_, err := s.saveCredentialQuery(telegramID, cred, time.Now()).Exec(ctx)
	return err
}

func (s *Users) saveCredentialQuery(telegramID int64, cred sport.Credential, now time.Time) *bun.UpdateQuery {
	return s.db.NewUpdate().Model((*models.User)(nil)).
		Set("strava_access_token = ?", cred.AccessToken).
		Set("strava_refresh_token = ?", cred.RefreshToken).
		Set("strava_expires_at = ?", cred.ExpiresAt).
		Set("updated_at = ?", now).
		Where("telegram_id = ?", telegramID)
}

func (s *Users) UpdateName(ctx context.Context, telegramID int64, first, last string) (bool, error) {
	res, err := s.db.NewUpdate().Model((*models.User)(nil)).
		Set("first_name = ?", first).
		Set("last_name = ?", last).
		Set("updated_at = ?", time.Now()).
		Where("telegram_id = ?", telegramID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Users) IsAuthorized(ctx context.Context, telegramID int64) (bool, error) {
	return s.db.NewSelect().Model((*models.User)(nil)).
		Where("u.telegram_id = ?", telegramID).
		Where("u.is_verified").
		Exists(ctx)
}

var _ store.Users = (*Users)(nil)
