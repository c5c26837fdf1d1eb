package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/podium/pkg/kv"
	"github.com/quatton/podium/pkg/leaderboard"
	"github.com/quatton/podium/pkg/papi"
	"github.com/quatton/podium/pkg/papi/services"
	"github.com/quatton/podium/pkg/papi/services/iam"
	"github.com/quatton/podium/pkg/papi/services/link"
	"github.com/quatton/podium/pkg/scoring"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store/memory"
	"github.com/quatton/podium/pkg/syncer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeQueue struct {
	mu         sync.Mutex
	users      []int64
	activities [][2]int64
	reconciles int
	reject     bool
}

func (q *fakeQueue) SubmitUser(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.users = append(q.users, id)
	return !q.reject
}

func (q *fakeQueue) SubmitActivity(athleteID, activityID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.activities = append(q.activities, [2]int64{athleteID, activityID})
	return !q.reject
}

func (q *fakeQueue) SubmitReconcileAll() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconciles++
	return !q.reject
}

func (q *fakeQueue) SubmitSyncAll() bool { return !q.reject }

type fakeSyncer struct{ calls []int64 }

func (s *fakeSyncer) SyncUser(_ context.Context, id int64) syncer.Result {
	s.calls = append(s.calls, id)
	return syncer.Result{RunID: uuid.New(), UserID: id, Status: syncer.StatusSynced, Fetched: 2, Upserted: 2}
}

type fakeOAuth struct{}

func (fakeOAuth) AuthCodeURL(state string) string {
	return "https://strava.test/oauth/authorize?state=" + url.QueryEscape(state)
}

func (fakeOAuth) ExchangeCode(_ context.Context, code string) (*sport.Credential, *sport.Athlete, error) {
	return &sport.Credential{AccessToken: "a-" + code, RefreshToken: "r-" + code, ExpiresAt: time.Now().Add(time.Hour)},
		&sport.Athlete{ID: 9001, FirstName: "Ann", LastName: "Lee"}, nil
}

type sentMessage struct {
	userID int64
	text   string
}

type captureNotifier struct{ sent []sentMessage }

func (n *captureNotifier) Notify(_ context.Context, userID int64, text string) error {
	n.sent = append(n.sent, sentMessage{userID, text})
	return nil
}

type fixture struct {
	handler    http.Handler
	users      *memory.Users
	activities *memory.Activities
	queue      *fakeQueue
	syncer     *fakeSyncer
	notifier   *captureNotifier
	token      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUsers()
	activities := memory.NewActivities()
	queue := &fakeQueue{}
	sy := &fakeSyncer{}
	notifier := &captureNotifier{}
	iamSvc := iam.NewIAMService(testSecret, time.Hour)

	svcs := &services.Services{
		Link: link.NewService(link.Options{
			OAuth:  fakeOAuth{},
			Users:  users,
			KV:     kv.NewMemoryStore(),
			Queue:  queue,
			Secret: testSecret,
		}),
		IAM:                iamSvc,
		Users:              users,
		Board:              leaderboard.New(users, activities),
		Weights:            scoring.NewProvider(memory.NewWeights(), nil),
		Syncer:             sy,
		Queue:              queue,
		Notifier:           notifier,
		Logger:             services.EmptyServices().Logger,
		WebhookVerifyToken: "hub-secret",
	}

	api := papi.NewApi()
	RegisterAPI(api.Api, svcs)

	token, err := iamSvc.IssueToken("bot")
	require.NoError(t, err)

	return &fixture{
		handler:    api.Router,
		users:      users,
		activities: activities,
		queue:      queue,
		syncer:     sy,
		notifier:   notifier,
		token:      token,
	}
}

func (f *fixture) do(t *testing.T, method, target, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (f *fixture) verified(t *testing.T, id int64, linked bool) {
	t.Helper()
	u := &sport.User{TelegramID: id, IsVerified: true, PhoneNumber: "+100"}
	if linked {
		athlete := id * 10
		u.AthleteID = &athlete
		u.Credential = &sport.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
	}
	require.NoError(t, f.users.Upsert(context.Background(), u))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookVerification(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/strava/webhook?hub.mode=subscribe&hub.verify_token=hub-secret&hub.challenge=abc123", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	require.Equal(t, "abc123", body["hub.challenge"])

	rec = f.do(t, http.MethodGet, "/strava/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=abc123", "", false)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookQueuesOnlyActivityCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/strava/webhook",
		`{"object_type":"activity","object_id":77,"aspect_type":"create","owner_id":5,"subscription_id":1,"event_time":1700000000}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "queued")

	rec = f.do(t, http.MethodPost, "/strava/webhook",
		`{"object_type":"activity","object_id":77,"aspect_type":"update","owner_id":5,"subscription_id":1,"event_time":1700000001,"updates":{"title":"Morning"}}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ignored")

	rec = f.do(t, http.MethodPost, "/strava/webhook",
		`{"object_type":"athlete","object_id":5,"aspect_type":"update","owner_id":5,"subscription_id":1,"event_time":1700000002,"updates":{"authorized":"false"}}`, false)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, [][2]int64{{5, 77}}, f.queue.activities)
}

func TestWebhookFullQueueAsksForRetry(t *testing.T) {
	f := newFixture(t)
	f.queue.reject = true
	rec := f.do(t, http.MethodPost, "/strava/webhook",
		`{"object_type":"activity","object_id":1,"aspect_type":"create","owner_id":5,"subscription_id":1,"event_time":1}`, false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUserEndpointsRequireToken(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 1, true)
	rec := f.do(t, http.MethodPost, "/api/users/1/sync", "", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncQueuesLinkedVerifiedUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users/1/sync", "", true)
	require.Equal(t, http.StatusForbidden, rec.Code)

	f.verified(t, 1, false)
	rec = f.do(t, http.MethodPost, "/api/users/1/sync", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)

	f.verified(t, 2, true)
	rec = f.do(t, http.MethodPost, "/api/users/2/sync", "", true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []int64{2}, f.queue.users)
}

func TestStatsSyncsFirst(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 3, true)
	ctx := context.Background()
	require.NoError(t, f.activities.UpsertMany(ctx, []sport.Activity{
		{ID: 1, UserID: 3, SportType: "Run", Distance: decimal.RequireFromString("5"), WeightedDistance: decimal.RequireFromString("5"), StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: 3, SportType: "Ride", Distance: decimal.RequireFromString("40"), WeightedDistance: decimal.RequireFromString("10"), StartDate: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
	}))

	rec := f.do(t, http.MethodGet, "/api/users/3/stats", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Total   string `json:"total_weighted_km"`
		Count   int    `json:"count"`
		BySport []struct {
			SportType string `json:"sport_type"`
		} `json:"by_sport"`
		Sync struct {
			Status string `json:"status"`
		} `json:"sync"`
	}
	decode(t, rec, &body)
	require.Equal(t, "15", body.Total)
	require.Equal(t, 2, body.Count)
	require.Equal(t, "Ride", body.BySport[0].SportType)
	require.Equal(t, "synced", body.Sync.Status)
	require.Equal(t, []int64{3}, f.syncer.calls)

	rec = f.do(t, http.MethodGet, "/api/users/3/stats?sync=false", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.syncer.calls, 1)
}

func TestRecentActivities(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 4, true)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, f.activities.UpsertMany(ctx, []sport.Activity{{
			ID: i, UserID: 4, SportType: "Run",
			Distance: decimal.NewFromInt(i), WeightedDistance: decimal.NewFromInt(i),
			StartDate: time.Date(2025, 5, int(i), 0, 0, 0, 0, time.UTC),
		}}))
	}

	rec := f.do(t, http.MethodGet, "/api/users/4/activities?limit=2", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Activities []struct {
			ID int64 `json:"id"`
		} `json:"activities"`
		Total int `json:"total"`
	}
	decode(t, rec, &body)
	require.Equal(t, 3, body.Total)
	require.Len(t, body.Activities, 2)
	require.EqualValues(t, 3, body.Activities[0].ID)
}

func TestRenameSplitsFirstWord(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 5, false)

	rec := f.do(t, http.MethodPut, "/api/users/5/name", `{"name":"  Jane   van Doe "}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := f.users.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "Jane", u.FirstName)
	require.Equal(t, "van Doe", u.LastName)

	rec = f.do(t, http.MethodPut, "/api/users/5/name", `{"name":"   "}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVerifyCreatesUser(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/users/6/verify",
		`{"phone_number":"+15550100","username":"@gran","first_name":"Rose"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		DisplayName string `json:"display_name"`
		Verified    bool   `json:"verified"`
		Linked      bool   `json:"linked"`
	}
	decode(t, rec, &body)
	require.Equal(t, "Rose", body.DisplayName)
	require.True(t, body.Verified)
	require.False(t, body.Linked)

	u, err := f.users.Get(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, "gran", u.TelegramUsername)
}

func TestConnectAndCallback(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 7, false)

	rec := f.do(t, http.MethodGet, "/api/users/7/connect", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		AuthorizeURL string `json:"authorize_url"`
	}
	decode(t, rec, &body)
	parsed, err := url.Parse(body.AuthorizeURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	callback := "/strava/auth?code=xyz&scope=read,activity:read_all&state=" + url.QueryEscape(state)
	rec = f.do(t, http.MethodGet, callback, "", false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := f.users.Get(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, u.Linked())
	require.EqualValues(t, 9001, *u.AthleteID)
	require.Equal(t, []int64{7}, f.queue.users)
	require.Len(t, f.notifier.sent, 1)
	require.EqualValues(t, 7, f.notifier.sent[0].userID)

	rec = f.do(t, http.MethodGet, callback, "", false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectRedirect(t *testing.T) {
	f := newFixture(t)
	f.verified(t, 8, false)
	rec := f.do(t, http.MethodGet, "/api/users/8/connect?redirect=true", "", true)
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://strava.test/oauth/authorize"))
}

func TestCallbackDeclined(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/strava/auth?error=access_denied&state=x", "", false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Upsert(ctx, &sport.User{TelegramID: 10, FirstName: "Ann"}))
	require.NoError(t, f.users.Upsert(ctx, &sport.User{TelegramID: 11, TelegramUsername: "bo"}))
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.activities.UpsertMany(ctx, []sport.Activity{
		{ID: 1, UserID: 10, SportType: "Run", Distance: decimal.NewFromInt(3), WeightedDistance: decimal.NewFromInt(3), StartDate: day},
		{ID: 2, UserID: 11, SportType: "Run", Distance: decimal.NewFromInt(8), WeightedDistance: decimal.NewFromInt(8), StartDate: day},
		{ID: 3, UserID: 12, SportType: "Run", Distance: decimal.NewFromInt(1), WeightedDistance: decimal.NewFromInt(1), StartDate: day},
	}))

	rec := f.do(t, http.MethodGet, "/api/leaderboard?limit=2", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []struct {
			Rank        int    `json:"rank"`
			DisplayName string `json:"display_name"`
			Total       string `json:"total_weighted_km"`
		} `json:"entries"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Entries, 2)
	require.Equal(t, "@bo", body.Entries[0].DisplayName)
	require.Equal(t, "8", body.Entries[0].Total)
	require.Equal(t, "Ann", body.Entries[1].DisplayName)
}

func TestWeightsAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/weights", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Weights []struct {
			SportType string `json:"sport_type"`
			Weight    string `json:"weight"`
		} `json:"weights"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Weights, 3)
	require.Equal(t, "Swim", listed.Weights[0].SportType)

	rec = f.do(t, http.MethodPut, "/api/admin/weights/Ride", `{"weight":"0.5"}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/admin/weights/Ride", `{"weight":"-1"}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/admin/weights/Ride", `{"weight":"0.5"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"weight":"0.5"`)
	require.Equal(t, 1, f.queue.reconciles)

	rec = f.do(t, http.MethodPut, "/api/admin/weights/Swim", `{"weight":"0"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/weights", "", false)
	decode(t, rec, &listed)
	require.Len(t, listed.Weights, 2)

	rec = f.do(t, http.MethodDelete, "/api/admin/weights/Ride", "", true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"weight":"0.25"`)
	require.Equal(t, 3, f.queue.reconciles)
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Cher")
	require.Equal(t, "Cher", first)
	require.Empty(t, last)

	first, last = splitName(" Mary  Ann   Smith ")
	require.Equal(t, "Mary", first)
	require.Equal(t, "Ann Smith", last)
}
