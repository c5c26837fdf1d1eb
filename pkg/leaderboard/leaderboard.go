// Package leaderboard answers the read-side questions: totals, rankings and
// per-user summaries over the stored, already weighted activities.
package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
	"github.com/shopspring/decimal"
)

const (
	DefaultTop    = 3
	DefaultRecent = 20
)

// Entry is one ranked user.
type Entry struct {
	Rank        int
	UserID      int64
	DisplayName string
	Total       decimal.Decimal
}

// SportTotal is the per-sport part of a summary.
type SportTotal struct {
	SportType string
	Count     int
	Distance  decimal.Decimal
	Weighted  decimal.Decimal
}

type Summary struct {
	UserID      int64
	DisplayName string
	Total       decimal.Decimal
	Count       int
	BySport     []SportTotal
}

// RecentPage is the newest activities plus the overall count.
type RecentPage struct {
	Activities []sport.Activity
	Total      int
}

type Aggregator struct {
	users      store.Users
	activities store.Activities
}

func New(users store.Users, activities store.Activities) *Aggregator {
	return &Aggregator{users: users, activities: activities}
}

// TotalWeightedDistance sums the user's weighted km. Unknown users total zero.
func (a *Aggregator) TotalWeightedDistance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	rows, err := a.activities.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list activities: %w", err)
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.WeightedDistance)
	}
	return total, nil
}

// TopN ranks users by total weighted distance, highest first. Users with
// equal totals keep the order in which they first appear in the store's
// ListAll order (start date, then activity id). That order follows the
// stored data, so a tie can flip when activities are added or removed.
func (a *Aggregator) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultTop
	}
	rows, err := a.activities.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	totals := make(map[int64]decimal.Decimal)
	var order []int64
	for _, r := range rows {
		cur, seen := totals[r.UserID]
		if !seen {
			order = append(order, r.UserID)
		}
		totals[r.UserID] = cur.Add(r.WeightedDistance)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]].GreaterThan(totals[order[j]])
	})
	if len(order) > n {
		order = order[:n]
	}

	users, err := a.users.ListByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byID := make(map[int64]*sport.User, len(users))
	for i := range users {
		byID[users[i].TelegramID] = &users[i]
	}

	out := make([]Entry, len(order))
	for i, id := range order {
		out[i] = Entry{
			Rank:        i + 1,
			UserID:      id,
			DisplayName: sport.DisplayName(byID[id], id),
			Total:       totals[id],
		}
	}
	return out, nil
}

// DisplayName resolves the user's label, falling back to "User {id}" when
// the user is unknown.
func (a *Aggregator) DisplayName(ctx context.Context, userID int64) (string, error) {
	u, err := a.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return sport.DisplayName(u, userID), nil
}

// Summary totals the user's activities overall and per sport. Sports are
// ordered by weighted distance, highest first.
func (a *Aggregator) Summary(ctx context.Context, userID int64) (*Summary, error) {
	rows, err := a.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	name, err := a.DisplayName(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	s := &Summary{UserID: userID, DisplayName: name, Total: decimal.Zero, Count: len(rows)}
	idx := make(map[string]int)
	for _, r := range rows {
		s.Total = s.Total.Add(r.WeightedDistance)
		i, ok := idx[r.SportType]
		if !ok {
			i = len(s.BySport)
			idx[r.SportType] = i
			s.BySport = append(s.BySport, SportTotal{SportType: r.SportType, Distance: decimal.Zero, Weighted: decimal.Zero})
		}
		st := &s.BySport[i]
		st.Count++
		st.Distance = st.Distance.Add(r.Distance)
		st.Weighted = st.Weighted.Add(r.WeightedDistance)
	}
	sort.SliceStable(s.BySport, func(i, j int) bool {
		return s.BySport[i].Weighted.GreaterThan(s.BySport[j].Weighted)
	})
	return s, nil
}

// Recent returns the user's newest activities and their total count.
func (a *Aggregator) Recent(ctx context.Context, userID int64, limit int) (*RecentPage, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	acts, err := a.activities.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	total, err := a.activities.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	return &RecentPage{Activities: acts, Total: total}, nil
}
