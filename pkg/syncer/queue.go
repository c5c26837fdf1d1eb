package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/quatton/podium/pkg/plog"
)

// JobKind selects what a queued job runs.
type JobKind string

const (
	JobUser         JobKind = "user"
	JobActivity     JobKind = "activity"
	JobReconcileAll JobKind = "reconcile_all"
	JobSyncAll      JobKind = "sync_all"
)

// Job is one unit of background work.
type Job struct {
	Kind       JobKind
	UserID     int64
	AthleteID  int64
	ActivityID int64
}

func (j Job) key() string {
	switch j.Kind {
	case JobUser:
		return fmt.Sprintf("user:%d", j.UserID)
	case JobActivity:
		return fmt.Sprintf("activity:%d:%d", j.AthleteID, j.ActivityID)
	default:
		return string(j.Kind)
	}
}

// Runner is the engine surface the queue drives.
type Runner interface {
	SyncUser(ctx context.Context, userID int64) Result
	SyncActivity(ctx context.Context, athleteID, activityID int64) Result
	SyncAll(ctx context.Context) ([]Result, error)
	ReconcileAll(ctx context.Context) ([]Result, error)
}

// Queue runs jobs on a fixed set of background workers. A job equal to one
// that is still waiting is coalesced into it. Submit never blocks; when the
// buffer is full the job is rejected.
type Queue struct {
	runner  Runner
	logger  *plog.Logger
	workers int
	jobs    chan Job

	mu      sync.Mutex
	pending map[string]bool
	closed  bool

	wg sync.WaitGroup
}

func NewQueue(runner Runner, workers, size int, logger *plog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = plog.NewDiscard()
	}
	return &Queue{
		runner:  runner,
		logger:  logger,
		workers: workers,
		jobs:    make(chan Job, size),
		pending: make(map[string]bool),
	}
}

// Start launches the workers. They exit when ctx is done or Close is called.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Submit enqueues job and reports whether it was accepted. A job coalesced
// into a waiting duplicate counts as accepted.
func (q *Queue) Submit(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	key := job.key()
	if q.pending[key] {
		return true
	}
	select {
	case q.jobs <- job:
		q.pending[key] = true
		return true
	default:
		q.logger.Warn("sync queue full, dropping job", "kind", job.Kind, "key", key)
		return false
	}
}

func (q *Queue) SubmitUser(userID int64) bool {
	return q.Submit(Job{Kind: JobUser, UserID: userID})
}

func (q *Queue) SubmitActivity(athleteID, activityID int64) bool {
	return q.Submit(Job{Kind: JobActivity, AthleteID: athleteID, ActivityID: activityID})
}

func (q *Queue) SubmitReconcileAll() bool {
	return q.Submit(Job{Kind: JobReconcileAll})
}

func (q *Queue) SubmitSyncAll() bool {
	return q.Submit(Job{Kind: JobSyncAll})
}

// Close stops accepting jobs and waits for the workers to drain the buffer.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.mu.Lock()
			delete(q.pending, job.key())
			q.mu.Unlock()
			q.run(ctx, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	defer func() {
		if p := recover(); p != nil {
			q.logger.Error("queued job panicked", "kind", job.Kind, "panic", p)
		}
	}()

	switch job.Kind {
	case JobUser:
		q.runner.SyncUser(ctx, job.UserID)
	case JobActivity:
		q.runner.SyncActivity(ctx, job.AthleteID, job.ActivityID)
	case JobSyncAll:
		if _, err := q.runner.SyncAll(ctx); err != nil {
			q.logger.Error("sync all failed", "error", err)
		}
	case JobReconcileAll:
		if _, err := q.runner.ReconcileAll(ctx); err != nil {
			q.logger.Error("reconcile all failed", "error", err)
		}
	default:
		q.logger.Warn("unknown job kind", "kind", job.Kind)
	}
}
