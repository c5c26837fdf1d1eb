package services

import (
	"context"

	"github.com/quatton/podium/pkg/archive"
	"github.com/quatton/podium/pkg/leaderboard"
	"github.com/quatton/podium/pkg/notify"
	"github.com/quatton/podium/pkg/papi/services/iam"
	"github.com/quatton/podium/pkg/papi/services/link"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/scoring"
	"github.com/quatton/podium/pkg/store"
	"github.com/quatton/podium/pkg/syncer"
)

// SyncQueue is the background side of the sync engine.
type SyncQueue interface {
	SubmitUser(userID int64) bool
	SubmitActivity(athleteID, activityID int64) bool
	SubmitReconcileAll() bool
	SubmitSyncAll() bool
}

// UserSyncer runs a sync inline, for endpoints that answer with fresh totals.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID int64) syncer.Result
}

type Services struct {
	Link     *link.Service
	IAM      *iam.IAMService
	Users    store.Users
	Board    *leaderboard.Aggregator
	Weights  *scoring.Provider
	Syncer   UserSyncer
	Queue    SyncQueue
	Archive  *archive.Archive
	Notifier notify.Notifier
	Logger   *plog.Logger

	// WebhookVerifyToken must match hub.verify_token on subscription.
	WebhookVerifyToken string
}

func EmptyServices() *Services {
	return &Services{Logger: plog.NewDiscard()}
}
