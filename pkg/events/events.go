// Package events publishes activity lifecycle events for downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/quatton/podium/pkg/sport"
)

const (
	TypeActivityScored  = "activity.scored"
	TypeActivityRemoved = "activity.removed"
)

// Event describes one change to a stored activity.
type Event struct {
	Type             string    `json:"type"`
	RunID            string    `json:"run_id,omitempty"`
	UserID           int64     `json:"user_id"`
	ActivityID       int64     `json:"activity_id"`
	SportType        string    `json:"sport_type"`
	Distance         string    `json:"distance_km"`
	WeightedDistance string    `json:"weighted_distance_km"`
	StartDate        time.Time `json:"start_date"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Key partitions events by user.
func (e Event) Key() []byte {
	return []byte(strconv.FormatInt(e.UserID, 10))
}

func (e Event) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// FromActivity builds an event of type typ for a.
func FromActivity(typ, runID string, a sport.Activity) Event {
	return Event{
		Type:             typ,
		RunID:            runID,
		UserID:           a.UserID,
		ActivityID:       a.ID,
		SportType:        a.SportType,
		Distance:         a.Distance.String(),
		WeightedDistance: a.WeightedDistance.String(),
		StartDate:        a.StartDate,
		OccurredAt:       time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
