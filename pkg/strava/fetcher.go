package strava

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/quatton/podium/pkg/metrics"
	"github.com/quatton/podium/pkg/perr"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/sport"
)

var ErrNoCredential = errors.New("strava: user has no credential")

// API is the subset of Client the Fetcher needs.
type API interface {
	Refresh(ctx context.Context, refreshToken string) (*sport.Credential, error)
	ListActivities(ctx context.Context, accessToken string, q ActivityQuery) ([]sport.Record, error)
	GetActivity(ctx context.Context, accessToken string, id int64) (*sport.Record, error)
}

// CredentialSaver persists a refreshed credential.
type CredentialSaver interface {
	SaveCredential(ctx context.Context, userID int64, cred sport.Credential) error
}

// Fetcher yields normalized activity records for a user, refreshing the
// user's credential first when it is about to expire.
type Fetcher struct {
	api     API
	saver   CredentialSaver
	logger  *plog.Logger
	perPage int
	now     func() time.Time
}

func NewFetcher(api API, saver CredentialSaver, perPage int, logger *plog.Logger) *Fetcher {
	if logger == nil {
		logger = plog.NewDiscard()
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Fetcher{api: api, saver: saver, logger: logger, perPage: perPage, now: time.Now}
}

// Fetch validates cred and returns a lazy sequence over the user's activities
// started after after (and before before, when set). Pages are requested
// only as the sequence is consumed. If cred is refreshed, *cred is updated in
// place before Fetch returns.
//
// A refresh failure returns an error with perr.CodeCredentialRefresh and no
// sequence. Errors met while paging are yielded once, ending the sequence.
func (f *Fetcher) Fetch(ctx context.Context, userID int64, cred *sport.Credential, after time.Time, before *time.Time) (iter.Seq2[sport.Record, error], error) {
	if err := f.ensureFresh(ctx, userID, cred); err != nil {
		return nil, err
	}
	token := cred.AccessToken
	afterCopy := after

	return func(yield func(sport.Record, error) bool) {
		for page := 1; ; page++ {
			recs, err := f.api.ListActivities(ctx, token, ActivityQuery{
				After:   &afterCopy,
				Before:  before,
				Page:    page,
				PerPage: f.perPage,
			})
			if err != nil {
				yield(sport.Record{}, err)
				return
			}
			for _, r := range recs {
				if !yield(r, nil) {
					return
				}
			}
			if len(recs) < f.perPage {
				return
			}
		}
	}, nil
}

// FetchOne returns a single activity, or nil when it does not exist.
func (f *Fetcher) FetchOne(ctx context.Context, userID int64, cred *sport.Credential, activityID int64) (*sport.Record, error) {
	if err := f.ensureFresh(ctx, userID, cred); err != nil {
		return nil, err
	}
	return f.api.GetActivity(ctx, cred.AccessToken, activityID)
}

func (f *Fetcher) ensureFresh(ctx context.Context, userID int64, cred *sport.Credential) error {
	if cred == nil || cred.RefreshToken == "" {
		return perr.New(perr.CodeCredentialRefresh, fmt.Errorf("user %d: %w", userID, ErrNoCredential))
	}
	if !cred.NeedsRefresh(f.now()) {
		return nil
	}

	f.logger.Debug("refreshing credential", "user_id", userID, "expires_at", cred.ExpiresAt)
	fresh, err := f.api.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.RecordRefresh(false)
		return perr.New(perr.CodeCredentialRefresh, fmt.Errorf("user %d: %w", userID, err))
	}
	metrics.RecordRefresh(true)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	*cred = *fresh

	if f.saver != nil {
		if err := f.saver.SaveCredential(ctx, userID, *cred); err != nil {
			f.logger.Warn("failed to persist refreshed credential", "user_id", userID, "error", err)
		}
	}
	return nil
}
