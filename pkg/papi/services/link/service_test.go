package link

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/quatton/podium/pkg/kv"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store/memory"
	"github.com/stretchr/testify/require"
)

type fakeOAuth struct {
	codes map[string]*sport.Athlete
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://strava.test/oauth/authorize?state=" + state
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (*sport.Credential, *sport.Athlete, error) {
	a, ok := f.codes[code]
	if !ok {
		return nil, nil, errors.New("bad code")
	}
	return &sport.Credential{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, a, nil
}

type recordingQueue struct{ users []int64 }

func (q *recordingQueue) SubmitUser(id int64) bool {
	q.users = append(q.users, id)
	return true
}

type fixture struct {
	svc   *Service
	users *memory.Users
	queue *recordingQueue
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := kv.NewValkeyStore(kv.ValkeyConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	users := memory.NewUsers()
	queue := &recordingQueue{}
	svc := NewService(Options{
		OAuth: &fakeOAuth{codes: map[string]*sport.Athlete{
			"good": {ID: 555, FirstName: "Ann", LastName: "Lee"},
		}},
		Users:    users,
		KV:       store,
		Queue:    queue,
		Secret:   strings.Repeat("k", 32),
		StateTTL: time.Minute,
	})
	return &fixture{svc: svc, users: users, queue: queue, redis: mr}
}

func TestStateIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.svc.GenerateState(ctx, 42)
	require.NoError(t, err)

	claims, err := f.svc.ValidateState(ctx, state)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.TelegramID)

	_, err = f.svc.ValidateState(ctx, state)
	require.ErrorIs(t, err, ErrStateAlreadyUsed)
}

func TestStateRejectsForeignSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := NewService(Options{KV: kv.NewMemoryStore(), Secret: strings.Repeat("x", 32)})
	state, err := other.GenerateState(ctx, 42)
	require.NoError(t, err)

	_, err = f.svc.ValidateState(ctx, state)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStateExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.svc.GenerateState(ctx, 42)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = f.svc.ValidateState(ctx, state)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteLinksUserAndQueuesSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authURL, err := f.svc.AuthorizeURL(ctx, 42)
	require.NoError(t, err)
	state := strings.TrimPrefix(authURL, "https://strava.test/oauth/authorize?state=")

	u, err := f.svc.Complete(ctx, "good", state)
	require.NoError(t, err)
	require.True(t, u.Linked())
	require.EqualValues(t, 555, *u.AthleteID)
	require.Equal(t, "refresh-good", u.Credential.RefreshToken)
	require.Equal(t, "Ann", u.FirstName)
	require.Equal(t, []int64{42}, f.queue.users)
}

func TestCompleteKeepsChosenName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Upsert(ctx, &sport.User{TelegramID: 42, FirstName: "Grandma"}))

	state, err := f.svc.GenerateState(ctx, 42)
	require.NoError(t, err)

	u, err := f.svc.Complete(ctx, "good", state)
	require.NoError(t, err)
	require.Equal(t, "Grandma", u.FirstName)
	require.Empty(t, u.LastName)
}

func TestCompleteBadCodeLeavesUserUnlinked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.svc.GenerateState(ctx, 42)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, "bad", state)
	require.Error(t, err)

	u, err := f.users.Get(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, u)
	require.Empty(t, f.queue.users)
}

func TestAuthorizeURLWithoutOAuth(t *testing.T) {
	svc := NewService(Options{KV: kv.NewMemoryStore(), Secret: strings.Repeat("k", 32)})
	_, err := svc.AuthorizeURL(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotConfigured)
}
