// Package schedule runs the periodic background sync.
package schedule

import (
	"context"
	"fmt"

	"github.com/quatton/podium/pkg/plog"
	"github.com/robfig/cron/v3"
)

// DefaultSpec syncs every user at the top of each hour. Specs carry a
// leading seconds field.
const DefaultSpec = "0 0 * * * *"

// Submitter hands a full sync to the background queue.
type Submitter interface {
	SubmitSyncAll() bool
}

type Scheduler struct {
	cron   *cron.Cron
	queue  Submitter
	logger *plog.Logger
}

func NewScheduler(queue Submitter, logger *plog.Logger) *Scheduler {
	if logger == nil {
		logger = plog.NewDiscard()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		logger: logger,
	}
}

// Add registers the sync-all job on spec. An empty spec uses DefaultSpec.
func (s *Scheduler) Add(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	s.logger.Info("sync schedule registered", "spec", spec)
	return nil
}

func (s *Scheduler) tick() {
	if !s.queue.SubmitSyncAll() {
		s.logger.Warn("scheduled sync not queued")
	}
}

// Start runs the cron loop until ctx is done, then waits for a running tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Stop halts the scheduler without waiting.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
