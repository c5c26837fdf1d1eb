package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func act(id, user int64, sportType string, km, weighted string, hour int) sport.Activity {
	return sport.Activity{
		ID:               id,
		UserID:           user,
		SportType:        sportType,
		Distance:         decimal.RequireFromString(km),
		WeightedDistance: decimal.RequireFromString(weighted),
		StartDate:        t0.Add(time.Duration(hour) * time.Hour),
	}
}

func setup(t *testing.T, users []sport.User, acts []sport.Activity) *Aggregator {
	t.Helper()
	us := memory.NewUsers()
	for i := range users {
		require.NoError(t, us.Upsert(context.Background(), &users[i]))
	}
	as := memory.NewActivities()
	require.NoError(t, as.UpsertMany(context.Background(), acts))
	return New(us, as)
}

func TestTopNOrdersByTotal(t *testing.T) {
	agg := setup(t,
		[]sport.User{
			{TelegramID: 1, FirstName: "Ann"},
			{TelegramID: 2, TelegramUsername: "bob"},
		},
		[]sport.Activity{
			act(1, 1, "Run", "5", "5", 1),
			act(2, 2, "Swim", "2", "8", 2),
			act(3, 3, "Ride", "8", "2", 3),
			act(4, 4, "Run", "1", "1", 4),
		})

	top, err := agg.TopN(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, []int64{2, 1, 3}, []int64{top[0].UserID, top[1].UserID, top[2].UserID})
	require.Equal(t, "@bob", top[0].DisplayName)
	require.Equal(t, "Ann", top[1].DisplayName)
	require.Equal(t, "User 3", top[2].DisplayName)
	require.Equal(t, 1, top[0].Rank)
	require.True(t, top[0].Total.Equal(decimal.NewFromInt(8)))
}

func TestTopNTieKeepsFirstSeenOrder(t *testing.T) {
	// C's activity is stored first but B's first activity starts earlier, so
	// B is seen first in ListAll order and wins the tie.
	agg := setup(t, nil, []sport.Activity{
		act(10, 3, "Run", "4", "4", 5),
		act(11, 2, "Run", "2", "2", 1),
		act(12, 2, "Run", "2", "2", 6),
		act(13, 1, "Run", "9", "9", 2),
	})

	for i := 0; i < 5; i++ {
		top, err := agg.TopN(context.Background(), 3)
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2, 3}, []int64{top[0].UserID, top[1].UserID, top[2].UserID})
	}
}

func TestTopNEmpty(t *testing.T) {
	agg := setup(t, nil, nil)
	top, err := agg.TopN(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, top)
}

func TestTotalWeightedDistance(t *testing.T) {
	agg := setup(t, nil, []sport.Activity{
		act(1, 1, "Run", "5", "5", 1),
		act(2, 1, "Ride", "10", "2.5", 2),
		act(3, 2, "Run", "1", "1", 3),
	})
	total, err := agg.TotalWeightedDistance(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("7.5")))

	none, err := agg.TotalWeightedDistance(context.Background(), 99)
	require.NoError(t, err)
	require.True(t, none.IsZero())
}

func TestDisplayNameTiers(t *testing.T) {
	agg := setup(t, []sport.User{
		{TelegramID: 1, FirstName: "Jane", LastName: "", TelegramUsername: "j_d"},
		{TelegramID: 2, FirstName: " ", TelegramUsername: "j_d"},
		{TelegramID: 3},
	}, nil)
	ctx := context.Background()

	name, err := agg.DisplayName(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Jane", name)

	name, _ = agg.DisplayName(ctx, 2)
	require.Equal(t, "@j_d", name)

	name, _ = agg.DisplayName(ctx, 3)
	require.Equal(t, "User 3", name)

	name, _ = agg.DisplayName(ctx, 4)
	require.Equal(t, "User 4", name)
}

func TestSummaryBreakdown(t *testing.T) {
	agg := setup(t, []sport.User{{TelegramID: 1, FirstName: "Ann", LastName: "Lee"}}, []sport.Activity{
		act(1, 1, "Run", "5", "5", 1),
		act(2, 1, "Swim", "1", "4", 2),
		act(3, 1, "Run", "3", "3", 3),
	})
	s, err := agg.Summary(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", s.DisplayName)
	require.Equal(t, 3, s.Count)
	require.True(t, s.Total.Equal(decimal.NewFromInt(12)))
	require.Len(t, s.BySport, 2)
	require.Equal(t, "Run", s.BySport[0].SportType)
	require.Equal(t, 2, s.BySport[0].Count)
	require.True(t, s.BySport[0].Distance.Equal(decimal.NewFromInt(8)))
}

func TestRecentNewestFirst(t *testing.T) {
	var acts []sport.Activity
	for i := 1; i <= 25; i++ {
		acts = append(acts, act(int64(i), 1, "Run", "1", "1", i))
	}
	agg := setup(t, nil, acts)

	page, err := agg.Recent(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Equal(t, 25, page.Total)
	require.Len(t, page.Activities, DefaultRecent)
	require.Equal(t, int64(25), page.Activities[0].ID)
	require.Equal(t, int64(6), page.Activities[19].ID)
}
