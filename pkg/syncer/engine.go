// Package syncer pulls activities from the fitness provider, scores them
// against the current weight table and keeps the activity store consistent
// with that table.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/podium/pkg/archive"
	"github.com/quatton/podium/pkg/events"
	"github.com/quatton/podium/pkg/metrics"
	"github.com/quatton/podium/pkg/notify"
	"github.com/quatton/podium/pkg/perr"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/scoring"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Tolerance is the smallest weighted distance change (km) worth writing.
var Tolerance = decimal.NewFromFloat(0.001)

// State is the phase a sync run reached.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateScoring     State = "scoring"
	StateReconciling State = "reconciling"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Status is the outcome reported to callers.
type Status string

const (
	StatusSynced    Status = "synced"
	StatusSkipped   Status = "skipped"
	StatusNotLinked Status = "not_linked"
	StatusFailed    Status = "failed"
)

// Operation names used for logs and metrics.
const (
	OpUser      = "user"
	OpActivity  = "activity"
	OpReconcile = "reconcile"
)

// Result reports one run for one user.
type Result struct {
	RunID     uuid.UUID
	Op        string
	UserID    int64
	State     State
	Status    Status
	Fetched   int
	Upserted  int
	Dropped   int
	Updated   int
	Removed   int
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
}

func (r Result) Failed() bool { return r.Status == StatusFailed }

// Fetcher yields provider records. strava.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, userID int64, cred *sport.Credential, after time.Time, before *time.Time) (iter.Seq2[sport.Record, error], error)
	FetchOne(ctx context.Context, userID int64, cred *sport.Credential, activityID int64) (*sport.Record, error)
}

// WeightSource returns a weight table snapshot. scoring.Provider implements it.
type WeightSource interface {
	Current(ctx context.Context) scoring.Table
}

// Options wires an Engine. Users, Activities, Weights and Fetcher are
// required; the rest default to no-ops.
type Options struct {
	Window     *Window
	Users      store.Users
	Activities store.Activities
	Weights    WeightSource
	Fetcher    Fetcher
	Locker     Locker
	Notifier   notify.Notifier
	Events     events.Publisher
	Archive    *archive.Archive
	Workers    int
	Logger     *plog.Logger
}

// Engine runs syncs. All entry points take the per-user lock, so runs for
// the same user never interleave while different users proceed in parallel.
type Engine struct {
	window     *Window
	users      store.Users
	activities store.Activities
	weights    WeightSource
	fetcher    Fetcher
	locker     Locker
	notifier   notify.Notifier
	events     events.Publisher
	archive    *archive.Archive
	workers    int
	logger     *plog.Logger
}

func New(opts Options) *Engine {
	e := &Engine{
		window:     opts.Window,
		users:      opts.Users,
		activities: opts.Activities,
		weights:    opts.Weights,
		fetcher:    opts.Fetcher,
		locker:     opts.Locker,
		notifier:   opts.Notifier,
		events:     opts.Events,
		archive:    opts.Archive,
		workers:    opts.Workers,
		logger:     opts.Logger,
	}
	if e.locker == nil {
		e.locker = NewLocalLocker()
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	if e.logger == nil {
		e.logger = plog.NewDiscard()
	}
	if e.workers <= 0 {
		e.workers = 4
	}
	return e
}

// Window returns the configured sync window, or nil.
func (e *Engine) Window() *Window { return e.window }

type run struct {
	Result
	logger *plog.Logger
}

func (e *Engine) begin(op string, userID int64) *run {
	id := uuid.New()
	return &run{
		Result: Result{
			RunID:     id,
			Op:        op,
			UserID:    userID,
			State:     StateIdle,
			StartedAt: time.Now(),
		},
		logger: e.logger.With("run_id", id.String(), "op", op, "user_id", userID),
	}
}

func (r *run) fail(err error) Result {
	r.State = StateFailed
	r.Status = StatusFailed
	r.Err = err
	return r.finish()
}

func (r *run) done(status Status) Result {
	r.State = StateDone
	r.Status = status
	return r.finish()
}

func (r *run) finish() Result {
	r.Elapsed = time.Since(r.StartedAt)
	metrics.RecordSyncRun(r.Op, string(r.Status), r.Elapsed)
	metrics.RecordActivities(metrics.OutcomeUpserted, r.Upserted)
	metrics.RecordActivities(metrics.OutcomeDropped, r.Dropped)
	metrics.RecordActivities(metrics.OutcomeUpdated, r.Updated)
	metrics.RecordActivities(metrics.OutcomeRemoved, r.Removed)

	if r.Err != nil {
		r.logger.Error("sync failed", "state", r.State, "code", perr.CodeOf(r.Err), "error", r.Err)
	} else {
		r.logger.Info("sync finished",
			"status", r.Status,
			"fetched", r.Fetched,
			"upserted", r.Upserted,
			"dropped", r.Dropped,
			"updated", r.Updated,
			"removed", r.Removed,
			"elapsed", r.Elapsed.Round(time.Millisecond),
		)
	}
	return r.Result
}

// SyncUser fetches the user's activities inside the sync window, scores them
// with a single weight snapshot, upserts the non-zero ones and reconciles
// every stored activity of the user against that snapshot. Nothing is
// written unless the whole fetch succeeded.
func (e *Engine) SyncUser(ctx context.Context, userID int64) Result {
	r := e.begin(OpUser, userID)
	if e.window == nil {
		r.logger.Info("no sync window configured, skipping")
		return r.done(StatusSkipped)
	}

	unlock, err := e.locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		return r.fail(fmt.Errorf("lock user %d: %w", userID, err))
	}
	defer unlock()

	user, err := e.users.Get(ctx, userID)
	if err != nil {
		return r.fail(perr.New(perr.CodeStore, fmt.Errorf("load user %d: %w", userID, err)))
	}
	if !user.Linked() {
		return r.done(StatusNotLinked)
	}

	r.State = StateFetching
	records, err := e.drain(ctx, userID, user.Credential)
	if err != nil {
		return r.fail(err)
	}
	r.Fetched = len(records)

	r.State = StateScoring
	table := e.weights.Current(ctx)
	keep := make([]sport.Activity, 0, len(records))
	raws := make([]sport.Record, 0, len(records))
	for _, rec := range records {
		act, ok := scoreRecord(userID, rec, table)
		if !ok {
			r.Dropped++
			continue
		}
		keep = append(keep, act)
		raws = append(raws, rec)
	}

	r.State = StateReconciling
	if len(keep) > 0 {
		if err := e.activities.UpsertMany(ctx, keep); err != nil {
			return r.fail(perr.New(perr.CodeStore, fmt.Errorf("upsert activities: %w", err)))
		}
		r.Upserted = len(keep)
	}
	removed, err := e.reconcileUser(ctx, r, table)
	if err != nil {
		return r.fail(err)
	}

	e.archiveRecords(ctx, r, raws)
	e.publish(ctx, r, keep, removed)
	return r.done(StatusSynced)
}

// drain pulls the whole sequence into memory, deduplicated by activity id
// with the last occurrence winning.
func (e *Engine) drain(ctx context.Context, userID int64, cred *sport.Credential) ([]sport.Record, error) {
	seq, err := e.fetcher.Fetch(ctx, userID, cred, e.window.Start, e.window.End)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int)
	var out []sport.Record
	for rec, err := range seq {
		if err != nil {
			if !perr.IsCode(err, perr.CodeFetch) && !perr.IsCode(err, perr.CodeCredentialRefresh) {
				err = perr.New(perr.CodeFetch, err)
			}
			return nil, err
		}
		if i, ok := index[rec.ID]; ok {
			out[i] = rec
			continue
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

func scoreRecord(userID int64, rec sport.Record, table scoring.Table) (sport.Activity, bool) {
	weighted := scoring.Score(rec.SportType, rec.DistanceMeters, table)
	if weighted.IsZero() {
		return sport.Activity{}, false
	}
	return sport.Activity{
		ID:               rec.ID,
		UserID:           userID,
		SportType:        rec.SportType,
		Distance:         scoring.Kilometers(rec.DistanceMeters),
		WeightedDistance: weighted,
		Name:             rec.Name,
		StartDate:        rec.StartDate,
	}, true
}

// reconcileUser recomputes every stored activity of the run's user with
// table. Rows whose score became zero are deleted; rows whose score moved by
// more than Tolerance are updated. The caller holds the user lock.
func (e *Engine) reconcileUser(ctx context.Context, r *run, table scoring.Table) ([]sport.Activity, error) {
	stored, err := e.activities.ListByUser(ctx, r.UserID)
	if err != nil {
		return nil, perr.New(perr.CodeStore, fmt.Errorf("list activities: %w", err))
	}

	updates := make(map[int64]decimal.Decimal)
	var removed []sport.Activity
	for _, a := range stored {
		next := scoring.ScoreKm(a.SportType, a.Distance, table)
		if next.IsZero() {
			removed = append(removed, a)
			continue
		}
		if next.Sub(a.WeightedDistance).Abs().GreaterThan(Tolerance) {
			updates[a.ID] = next
		}
	}

	if len(updates) > 0 {
		if err := e.activities.UpdateWeighted(ctx, updates); err != nil {
			return nil, perr.New(perr.CodeStore, fmt.Errorf("update weighted distances: %w", err))
		}
		r.Updated = len(updates)
	}
	if len(removed) > 0 {
		ids := make([]int64, len(removed))
		for i, a := range removed {
			ids[i] = a.ID
		}
		if err := e.activities.DeleteMany(ctx, r.UserID, ids); err != nil {
			return nil, perr.New(perr.CodeStore, fmt.Errorf("delete disallowed activities: %w", err))
		}
		r.Removed = len(removed)
	}
	return removed, nil
}

// SyncAll syncs every linked user with at most Workers runs in flight. A
// failure or panic in one user's run never affects the others.
func (e *Engine) SyncAll(ctx context.Context) ([]Result, error) {
	if e.window == nil {
		e.logger.Info("no sync window configured, skipping sync of all users")
		return nil, nil
	}
	users, err := e.users.ListLinked(ctx)
	if err != nil {
		return nil, perr.New(perr.CodeStore, fmt.Errorf("list linked users: %w", err))
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.TelegramID
	}
	return e.fanOut(ctx, OpUser, ids, e.SyncUser), nil
}

func (e *Engine) fanOut(ctx context.Context, op string, ids []int64, fn func(context.Context, int64) Result) []Result {
	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = e.isolated(ctx, op, id, fn)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	e.logger.Info("batch finished", "op", op, "users", len(ids), "failed", failed)
	return results
}

func (e *Engine) isolated(ctx context.Context, op string, userID int64, fn func(context.Context, int64) Result) (res Result) {
	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r := e.begin(op, userID)
			r.StartedAt = started
			r.logger.Error("sync panicked", "panic", p, "stack", string(debug.Stack()))
			res = r.fail(fmt.Errorf("panic: %v", p))
		}
	}()
	return fn(ctx, userID)
}

// SyncActivity handles a single new activity announced by the provider. The
// sync window does not apply. The owner is notified when the activity is
// stored.
func (e *Engine) SyncActivity(ctx context.Context, athleteID, activityID int64) Result {
	user, err := e.users.GetByAthlete(ctx, athleteID)
	if err != nil {
		r := e.begin(OpActivity, 0)
		return r.fail(perr.New(perr.CodeStore, fmt.Errorf("load athlete %d: %w", athleteID, err)))
	}
	if !user.Linked() {
		r := e.begin(OpActivity, 0)
		r.logger.Info("activity for unknown athlete", "athlete_id", athleteID, "activity_id", activityID)
		return r.done(StatusNotLinked)
	}

	r := e.begin(OpActivity, user.TelegramID)
	r.logger = r.logger.With("activity_id", activityID)

	unlock, err := e.locker.Lock(ctx, userLockKey(user.TelegramID))
	if err != nil {
		return r.fail(fmt.Errorf("lock user %d: %w", user.TelegramID, err))
	}
	defer unlock()

	// Reload under the lock so a refresh done by a concurrent run is seen.
	if user, err = e.users.Get(ctx, user.TelegramID); err != nil {
		return r.fail(perr.New(perr.CodeStore, err))
	}
	if !user.Linked() {
		return r.done(StatusNotLinked)
	}

	r.State = StateFetching
	rec, err := e.fetcher.FetchOne(ctx, user.TelegramID, user.Credential, activityID)
	if err != nil {
		return r.fail(err)
	}

	r.State = StateScoring
	var act sport.Activity
	ok := false
	if rec != nil {
		r.Fetched = 1
		act, ok = scoreRecord(user.TelegramID, *rec, e.weights.Current(ctx))
	}

	r.State = StateReconciling
	if !ok {
		r.Dropped = r.Fetched
		if err := e.activities.DeleteMany(ctx, user.TelegramID, []int64{activityID}); err != nil {
			return r.fail(perr.New(perr.CodeStore, err))
		}
		return r.done(StatusSynced)
	}

	if err := e.activities.UpsertMany(ctx, []sport.Activity{act}); err != nil {
		return r.fail(perr.New(perr.CodeStore, fmt.Errorf("upsert activity: %w", err)))
	}
	r.Upserted = 1

	e.archiveRecords(ctx, r, []sport.Record{*rec})
	e.publish(ctx, r, []sport.Activity{act}, nil)
	e.notify(ctx, user.TelegramID, NewActivityMessage(act))
	return r.done(StatusSynced)
}

// NewActivityMessage is the notification text for a freshly scored activity.
func NewActivityMessage(a sport.Activity) string {
	return fmt.Sprintf("🏃 New Activity Processed!\nType: %s\nDist: %s km\nWeighted: %s km",
		a.SportType, a.Distance.StringFixed(2), a.WeightedDistance.StringFixed(2))
}

// Reconcile recomputes the user's stored activities with the current weights.
func (e *Engine) Reconcile(ctx context.Context, userID int64) Result {
	r := e.begin(OpReconcile, userID)
	unlock, err := e.locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		return r.fail(fmt.Errorf("lock user %d: %w", userID, err))
	}
	defer unlock()

	r.State = StateReconciling
	removed, err := e.reconcileUser(ctx, r, e.weights.Current(ctx))
	if err != nil {
		return r.fail(err)
	}
	e.publish(ctx, r, nil, removed)
	return r.done(StatusSynced)
}

// ReconcileAll reconciles every user that owns stored activities.
func (e *Engine) ReconcileAll(ctx context.Context) ([]Result, error) {
	all, err := e.activities.ListAll(ctx)
	if err != nil {
		return nil, perr.New(perr.CodeStore, fmt.Errorf("list activities: %w", err))
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range all {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	return e.fanOut(ctx, OpReconcile, ids, e.Reconcile), nil
}

func (e *Engine) archiveRecords(ctx context.Context, r *run, recs []sport.Record) {
	if e.archive == nil {
		return
	}
	for _, rec := range recs {
		if err := e.archive.Put(ctx, r.UserID, rec); err != nil {
			r.logger.Warn("archive failed", "activity_id", rec.ID, "error", err)
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (e *Engine) publish(ctx context.Context, r *run, scored, removed []sport.Activity) {
	if len(scored)+len(removed) == 0 {
		return
	}
	evs := make([]events.Event, 0, len(scored)+len(removed))
	for _, a := range scored {
		evs = append(evs, events.FromActivity(events.TypeActivityScored, r.RunID.String(), a))
	}
	for _, a := range removed {
		evs = append(evs, events.FromActivity(events.TypeActivityRemoved, r.RunID.String(), a))
	}
	if err := e.events.Publish(ctx, evs...); err != nil {
		r.logger.Warn("publish events failed", "count", len(evs), "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, userID int64, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, userID, text); err != nil {
		e.logger.Warn("notification failed", "user_id", userID, "error", err)
	}
}
