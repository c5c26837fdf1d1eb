// Package archive keeps the raw provider payload of every scored activity in
// S3-compatible object storage, keyed by user and activity id.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/quatton/podium/pkg/sport"
)

var ErrNotFound = errors.New("archived activity not found")

// ObjectStore is the object storage surface the archive needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	EnsureBucket(ctx context.Context) error
}

// ActivityKey is "users/{userID}/activities/{activityID}.json".
func ActivityKey(userID, activityID int64) string {
	return UserPrefix(userID) + "activities/" + strconv.FormatInt(activityID, 10) + ".json"
}

func UserPrefix(userID int64) string {
	return "users/" + strconv.FormatInt(userID, 10) + "/"
}

// Archive stores raw activity payloads.
type Archive struct {
	store ObjectStore
}

func New(store ObjectStore) *Archive {
	return &Archive{store: store}
}

// Put saves the raw payload of rec. Records without a payload are skipped.
func (a *Archive) Put(ctx context.Context, userID int64, rec sport.Record) error {
	if len(rec.Raw) == 0 {
		return nil
	}
	meta := map[string]string{
		"sport-type": rec.SportType,
		"user-id":    strconv.FormatInt(userID, 10),
	}
	if err := a.store.Put(ctx, ActivityKey(userID, rec.ID), bytes.NewReader(rec.Raw), int64(len(rec.Raw)), "application/json", meta); err != nil {
		return fmt.Errorf("archive activity %d: %w", rec.ID, err)
	}
	return nil
}

// Get returns the raw payload, or ErrNotFound.
func (a *Archive) Get(ctx context.Context, userID, activityID int64) ([]byte, error) {
	rc, err := a.store.Get(ctx, ActivityKey(userID, activityID))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *Archive) Delete(ctx context.Context, userID, activityID int64) error {
	return a.store.Delete(ctx, ActivityKey(userID, activityID))
}
