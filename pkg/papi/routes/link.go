package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/schemas"
	"github.com/quatton/podium/pkg/papi/services"
	"github.com/quatton/podium/pkg/papi/services/link"
)

const linkedMessage = "✅ Strava connected! Your activities are being synced."

func RegisterLink(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "user-connect",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}/connect",
		Summary:     "Start Strava linking",
		Description: "Returns the Strava authorize URL for a verified user. The embedded state is single use.",
		Tags:        []string{TagUsers.String(), TagStrava.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.ConnectInput) (*schemas.ConnectOutput, error) {
		if err := requireVerified(ctx, svcs, input.ID); err != nil {
			return nil, err
		}

		authorizeURL, err := svcs.Link.AuthorizeURL(ctx, input.ID)
		if err != nil {
			if errors.Is(err, link.ErrNotConfigured) {
				return nil, huma.Error503ServiceUnavailable("Strava OAuth is not configured")
			}
			svcs.Logger.Error("failed to start link", "user_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to generate state")
		}

		if input.Redirect {
			return &schemas.ConnectOutput{Status: http.StatusFound, Location: authorizeURL}, nil
		}
		return &schemas.ConnectOutput{
			Status: http.StatusOK,
			Body:   &schemas.ConnectBody{AuthorizeURL: authorizeURL},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "strava-auth-callback",
		Method:      http.MethodGet,
		Path:        "/strava/auth",
		Summary:     "Strava OAuth callback",
		Description: "Exchanges the authorization code, stores the credential and queues the first sync",
		Tags:        []string{TagStrava.String()},
	}, func(ctx context.Context, input *schemas.AuthCallbackInput) (*schemas.AuthCallbackOutput, error) {
		if input.Error != "" {
			return nil, huma.Error400BadRequest("authorization was declined: " + input.Error)
		}
		if input.Code == "" {
			return nil, huma.Error400BadRequest("code is required")
		}

		user, err := svcs.Link.Complete(ctx, input.Code, input.State)
		if err != nil {
			switch {
			case errors.Is(err, link.ErrStateAlreadyUsed), errors.Is(err, link.ErrInvalidState):
				return nil, huma.Error400BadRequest("invalid or expired state parameter")
			case errors.Is(err, link.ErrNotConfigured):
				return nil, huma.Error503ServiceUnavailable("Strava OAuth is not configured")
			}
			svcs.Logger.Error("failed to complete link", "error", err)
			return nil, huma.Error500InternalServerError("failed to link Strava account")
		}

		if svcs.Notifier != nil {
			if err := svcs.Notifier.Notify(ctx, user.TelegramID, linkedMessage); err != nil {
				svcs.Logger.Warn("link notification failed", "user_id", user.TelegramID, "error", err)
			}
		}

		resp := &schemas.AuthCallbackOutput{}
		resp.Body.Status = "linked"
		resp.Body.UserID = user.TelegramID
		if user.AthleteID != nil {
			resp.Body.AthleteID = *user.AthleteID
		}
		resp.Body.Message = "Success! You can close this window and return to the chat."
		return resp, nil
	})
}
