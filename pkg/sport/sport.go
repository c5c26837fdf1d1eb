// Package sport holds the domain types shared by the scoring and sync
// pipeline: users and their fitness-account credentials, normalized activity
// records coming from the provider, and stored, scored activities.
package sport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RefreshMargin is how long before expiry a credential is considered stale.
const RefreshMargin = 300 * time.Second

// Credential is the access/refresh token pair used to call the fitness API on
// a user's behalf. The three fields always travel together.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NeedsRefresh reports whether now falls inside the refresh margin.
func (c Credential) NeedsRefresh(now time.Time) bool {
	return now.After(c.ExpiresAt.Add(-RefreshMargin))
}

// Valid reports whether all three fields are populated.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && !c.ExpiresAt.IsZero()
}

// User is a chat member. Credential and AthleteID are nil until the user
// links a fitness account.
type User struct {
	TelegramID       int64
	PhoneNumber      string
	IsVerified       bool
	FirstName        string
	LastName         string
	TelegramUsername string
	AthleteID        *int64
	Credential       *Credential
}

// Linked reports whether the user has usable fitness-account credentials.
func (u *User) Linked() bool {
	return u != nil && u.Credential != nil
}

// DisplayName resolves the label shown on leaderboards: "first last" when
// non-empty after trimming, then "@handle", then "User {id}".
func DisplayName(u *User, id int64) string {
	if u != nil {
		full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
		if full != "" {
			return full
		}
		if handle := strings.TrimPrefix(strings.TrimSpace(u.TelegramUsername), "@"); handle != "" {
			return "@" + handle
		}
	}
	return fmt.Sprintf("User %d", id)
}

// Athlete is the provider-side profile returned by the OAuth exchange.
type Athlete struct {
	ID        int64
	FirstName string
	LastName  string
}

// Record is one activity as yielded by the fetcher, already normalized to a
// plain distance in meters and a plain sport type label.
type Record struct {
	ID             int64
	Name           string
	SportType      string
	DistanceMeters float64
	StartDate      time.Time
	Raw            json.RawMessage
}

// Activity is a scored activity as persisted in the activity store.
type Activity struct {
	ID               int64
	UserID           int64
	SportType        string
	Distance         decimal.Decimal // km
	WeightedDistance decimal.Decimal // km
	Name             string
	StartDate        time.Time
}

// Weight is one row of the administrative weight table.
type Weight struct {
	SportType string
	Weight    decimal.Decimal
}
