package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/quatton/podium/pkg/perr"
	"github.com/quatton/podium/pkg/sport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeWeights struct {
	rows    map[string]decimal.Decimal
	listErr error
	reads   int
}

func newFakeWeights() *fakeWeights {
	return &fakeWeights{rows: map[string]decimal.Decimal{}}
}

func (f *fakeWeights) ListWeights(context.Context) ([]sport.Weight, error) {
	f.reads++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]sport.Weight, 0, len(f.rows))
	for k, v := range f.rows {
		out = append(out, sport.Weight{SportType: k, Weight: v})
	}
	return out, nil
}

func (f *fakeWeights) SetWeight(_ context.Context, s string, w decimal.Decimal) error {
	f.rows[s] = w
	return nil
}

func (f *fakeWeights) DeleteWeight(_ context.Context, s string) error {
	delete(f.rows, s)
	return nil
}

func TestCurrentReadsStoreEveryCall(t *testing.T) {
	store := newFakeWeights()
	p := NewProvider(store, nil)
	ctx := context.Background()

	require.True(t, p.Current(ctx).Weight("Ride").Equal(decimal.NewFromFloat(0.25)))

	require.NoError(t, p.Set(ctx, "Ride", decimal.NewFromFloat(0.5)))
	require.True(t, p.Current(ctx).Weight("Ride").Equal(decimal.NewFromFloat(0.5)))
	require.Equal(t, 2, store.reads)
}

func TestCurrentFallsBackToDefaultsOnError(t *testing.T) {
	store := newFakeWeights()
	store.rows["Ride"] = decimal.NewFromInt(3)
	store.listErr = errors.New("connection refused")

	got := NewProvider(store, nil).Current(context.Background())
	require.Equal(t, len(DefaultTable()), len(got))
	require.True(t, got.Weight("Ride").Equal(decimal.NewFromFloat(0.25)))
}

func TestCurrentIgnoresNegativeRows(t *testing.T) {
	store := newFakeWeights()
	store.rows["Run"] = decimal.NewFromInt(-2)
	store.rows["Hike"] = decimal.NewFromFloat(0.75)

	got := NewProvider(store, nil).Current(context.Background())
	_, ok := got["Run"]
	require.False(t, ok)
	require.True(t, got.Weight("Run").Equal(decimal.NewFromInt(1)))
	require.True(t, got.Weight("Hike").Equal(decimal.NewFromFloat(0.75)))
}

func TestSetRejectsNegative(t *testing.T) {
	p := NewProvider(newFakeWeights(), nil)
	err := p.Set(context.Background(), "Run", decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrNegativeWeight)
	require.True(t, perr.IsCode(err, perr.CodeValidation))

	err = p.Set(context.Background(), "  ", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrEmptySport)
}

func TestResetRestoresDefault(t *testing.T) {
	store := newFakeWeights()
	p := NewProvider(store, nil)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "Swim", decimal.Zero))
	require.False(t, p.Current(ctx).Allowed("Swim"))

	require.NoError(t, p.Reset(ctx, "Swim"))
	require.True(t, p.Current(ctx).Weight("Swim").Equal(decimal.NewFromInt(4)))
}

func TestEffectiveMergesDefaults(t *testing.T) {
	store := newFakeWeights()
	store.rows["Walk"] = decimal.NewFromFloat(0.8)
	store.rows["Ride"] = decimal.Zero

	got := NewProvider(store, nil).Effective(context.Background())
	require.Len(t, got, 4)
	require.True(t, got["Ride"].IsZero())
	require.True(t, got["Walk"].Equal(decimal.NewFromFloat(0.8)))
}
