package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/archive"
	"github.com/quatton/podium/pkg/papi/schemas"
	"github.com/quatton/podium/pkg/papi/services"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/syncer"
)

// splitName turns "Jane van Doe" into ("Jane", "van Doe").
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func RegisterUsers(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "user-sync",
		Method:        http.MethodPost,
		Path:          "/api/users/{id}/sync",
		Summary:       "Queue a sync",
		Description:   "Queues a background sync of the user's Strava activities",
		Tags:          []string{TagUsers.String()},
		Security:      BearerAuth,
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *schemas.UserPath) (*schemas.SyncAcceptedOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}
		u, err := svcs.Users.Get(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load user")
		}
		if !u.Linked() {
			return nil, huma.Error404NotFound("no Strava account linked")
		}
		if !svcs.Queue.SubmitUser(input.ID) {
			return nil, huma.Error503ServiceUnavailable("sync queue is full")
		}
		resp := &schemas.SyncAcceptedOutput{Status: http.StatusAccepted}
		resp.Body.Status = "queued"
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-stats",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}/stats",
		Summary:     "Personal statistics",
		Description: "Syncs the user, then returns the weighted total and a per-sport breakdown",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.StatsInput) (*schemas.StatsOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}

		var result *syncer.Result
		if input.Sync && svcs.Syncer != nil {
			r := svcs.Syncer.SyncUser(ctx, input.ID)
			result = &r
		}

		summary, err := svcs.Board.Summary(ctx, input.ID)
		if err != nil {
			svcs.Logger.Error("failed to build stats", "user_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to load stats")
		}
		return schemas.NewStatsOutput(summary, result), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-activities",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}/activities",
		Summary:     "Recent activities",
		Description: "Lists the user's latest scored activities with the total stored count",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.ActivitiesInput) (*schemas.ActivitiesOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}
		page, err := svcs.Board.Recent(ctx, input.ID, input.Limit)
		if err != nil {
			svcs.Logger.Error("failed to list activities", "user_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to load activities")
		}
		return schemas.NewActivitiesOutput(page), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-activity-raw",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}/activities/{activityId}/raw",
		Summary:     "Archived provider payload",
		Description: "Returns the activity JSON exactly as Strava sent it",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.RawActivityInput) (*schemas.RawActivityOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}
		if svcs.Archive == nil {
			return nil, huma.Error404NotFound("archive is not configured")
		}
		raw, err := svcs.Archive.Get(ctx, input.ID, input.ActivityID)
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				return nil, huma.Error404NotFound("activity not archived")
			}
			svcs.Logger.Error("failed to read archive", "user_id", input.ID, "activity_id", input.ActivityID, "error", err)
			return nil, huma.Error500InternalServerError("failed to read archive")
		}
		return &schemas.RawActivityOutput{ContentType: "application/json", Body: raw}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-rename",
		Method:      http.MethodPut,
		Path:        "/api/users/{id}/name",
		Summary:     "Set display name",
		Description: "The first word becomes the first name and the remainder the last name",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.RenameInput) (*schemas.UserOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}
		first, last := splitName(input.Body.Name)
		if first == "" {
			return nil, huma.Error422UnprocessableEntity("name must not be blank")
		}
		ok, err := svcs.Users.UpdateName(ctx, input.ID, first, last)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to update name")
		}
		if !ok {
			return nil, huma.Error404NotFound("user not found")
		}
		u, err := svcs.Users.Get(ctx, input.ID)
		if err != nil || u == nil {
			return nil, huma.Error500InternalServerError("failed to reload user")
		}
		return schemas.NewUserOutput(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-verify",
		Method:      http.MethodPost,
		Path:        "/api/users/{id}/verify",
		Summary:     "Record a verified user",
		Description: "Stores the phone number and profile of a chat user the allow-list approved",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.VerifyInput) (*schemas.UserOutput, error) {
		if err := requireAdmin(ctx, svcs); err != nil {
			return nil, err
		}
		u := &sport.User{
			TelegramID:       input.ID,
			PhoneNumber:      strings.TrimSpace(input.Body.PhoneNumber),
			IsVerified:       true,
			FirstName:        strings.TrimSpace(input.Body.FirstName),
			LastName:         strings.TrimSpace(input.Body.LastName),
			TelegramUsername: strings.TrimPrefix(strings.TrimSpace(input.Body.Username), "@"),
		}
		if err := svcs.Users.Upsert(ctx, u); err != nil {
			svcs.Logger.Error("failed to verify user", "user_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to save user")
		}
		saved, err := svcs.Users.Get(ctx, input.ID)
		if err != nil || saved == nil {
			return nil, huma.Error500InternalServerError("failed to reload user")
		}
		return schemas.NewUserOutput(saved), nil
	})
}
