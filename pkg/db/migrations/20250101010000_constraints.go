package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		stmts := []string{
			`ALTER TABLE users ADD CONSTRAINT users_strava_credentials_all_or_none CHECK (
				(strava_access_token IS NULL AND strava_refresh_token IS NULL AND strava_expires_at IS NULL) OR
				(strava_access_token IS NOT NULL AND strava_refresh_token IS NOT NULL AND strava_expires_at IS NOT NULL))`,
			"ALTER TABLE activity_weights ADD CONSTRAINT activity_weights_non_negative CHECK (weight >= 0)",
			"ALTER TABLE activities ADD CONSTRAINT activities_weighted_positive CHECK (weighted_distance > 0)",
			"CREATE INDEX IF NOT EXISTS activities_user_id_start_date_idx ON activities (user_id, start_date)",
			"CREATE INDEX IF NOT EXISTS activities_start_date_idx ON activities (start_date, activity_id)",
		}

		for _, stmt := range stmts {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		stmts := []string{
			"DROP INDEX IF EXISTS activities_start_date_idx",
			"DROP INDEX IF EXISTS activities_user_id_start_date_idx",
			"ALTER TABLE activities DROP CONSTRAINT IF EXISTS activities_weighted_positive",
			"ALTER TABLE activity_weights DROP CONSTRAINT IF EXISTS activity_weights_non_negative",
			"ALTER TABLE users DROP CONSTRAINT IF EXISTS users_strava_credentials_all_or_none",
		}

		for _, stmt := range stmts {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
