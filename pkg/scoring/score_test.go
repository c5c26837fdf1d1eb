package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestScoreUsesTableThenDefaults(t *testing.T) {
	table := Table{"Ride": decimal.NewFromFloat(0.5)}

	require.True(t, Score("Ride", 10000, table).Equal(decimal.NewFromInt(5)))
	// Run is absent from the table, so the default applies.
	require.True(t, Score("Run", 5000, table).Equal(decimal.NewFromInt(5)))
	require.True(t, Score("Swim", 1000, table).Equal(decimal.NewFromInt(4)))
}

func TestScoreUnknownSportIsZero(t *testing.T) {
	got := Score("Yoga", 3000, DefaultTable())
	require.True(t, got.IsZero())
	require.False(t, DefaultTable().Allowed("Yoga"))
}

func TestScoreExplicitZeroDisablesDefault(t *testing.T) {
	table := Table{"Ride": decimal.Zero}
	require.True(t, Score("Ride", 20000, table).IsZero())
	require.False(t, table.Allowed("Ride"))
}

func TestScoreNeverNegative(t *testing.T) {
	table := DefaultTable()
	for _, m := range []float64{-1000, -0.1, 0, 0.1, 42195} {
		require.False(t, Score("Run", m, table).IsNegative(), "meters=%v", m)
	}
	require.True(t, Score("Run", -5000, table).IsZero())
}

func TestScoreZeroIffWeightZero(t *testing.T) {
	table := Table{"Run": decimal.NewFromInt(1), "Walk": decimal.Zero, "Hike": decimal.NewFromFloat(0.5)}
	for _, s := range []string{"Run", "Walk", "Hike", "Ride", "Kayak"} {
		zero := Score(s, 1234, table).IsZero()
		require.Equal(t, !table.Weight(s).IsPositive(), zero, "sport=%s", s)
	}
}

func TestScoreIsExact(t *testing.T) {
	got := Score("Ride", 12345, DefaultTable())
	require.Equal(t, "3.08625", got.String())
}

func TestScoreKmMatchesScore(t *testing.T) {
	table := DefaultTable()
	require.True(t, ScoreKm("Swim", decimal.NewFromFloat(1.5), table).Equal(Score("Swim", 1500, table)))
}

func TestSortedOrder(t *testing.T) {
	got := DefaultTable().Sorted()
	require.Len(t, got, 3)
	require.Equal(t, "Swim", got[0].SportType)
	require.Equal(t, "Run", got[1].SportType)
	require.Equal(t, "Ride", got[2].SportType)
}
