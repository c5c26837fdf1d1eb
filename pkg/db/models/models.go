package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// User is a chat member. The three strava_* credential columns are either
// all set or all null.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	TelegramID       int64  `bun:"telegram_id,pk"`
	PhoneNumber      string `bun:",nullzero"`
	IsVerified       bool   `bun:",notnull,default:false"`
	FirstName        string `bun:",nullzero"`
	LastName         string `bun:",nullzero"`
	TelegramUsername string `bun:",nullzero"`

	StravaAthleteID    *int64    `bun:"strava_athlete_id,unique"`
	StravaAccessToken  string    `bun:",nullzero"`
	StravaRefreshToken string    `bun:",nullzero"`
	StravaExpiresAt    time.Time `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:a"`

	ActivityID       int64           `bun:"activity_id,pk"`
	UserID           int64           `bun:",notnull"`
	Type             string          `bun:"type,notnull"`
	Distance         decimal.Decimal `bun:"distance,type:numeric,notnull"`
	WeightedDistance decimal.Decimal `bun:"weighted_distance,type:numeric,notnull"`
	Name             string          `bun:",nullzero"`
	StartDate        time.Time       `bun:",notnull"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Weight is an administrative override of a sport's multiplier.
type Weight struct {
	bun.BaseModel `bun:"table:activity_weights,alias:w"`

	SportType string          `bun:"sport_type,pk"`
	Weight    decimal.Decimal `bun:"weight,type:numeric,notnull"`

	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
