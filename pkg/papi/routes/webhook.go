package routes

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/schemas"
	"github.com/quatton/podium/pkg/papi/services"
)

func RegisterWebhook(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "strava-webhook-verify",
		Method:      http.MethodGet,
		Path:        "/strava/webhook",
		Summary:     "Webhook subscription handshake",
		Description: "Echoes hub.challenge when hub.verify_token matches the configured token",
		Tags:        []string{TagStrava.String()},
	}, func(ctx context.Context, input *schemas.WebhookVerifyInput) (*schemas.WebhookVerifyOutput, error) {
		want := svcs.WebhookVerifyToken
		if input.Mode != "subscribe" || want == "" ||
			subtle.ConstantTimeCompare([]byte(input.VerifyToken), []byte(want)) != 1 {
			return nil, huma.Error403Forbidden("verification failed")
		}
		resp := &schemas.WebhookVerifyOutput{}
		resp.Body.Challenge = input.Challenge
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "strava-webhook-event",
		Method:      http.MethodPost,
		Path:        "/strava/webhook",
		Summary:     "Webhook event intake",
		Description: "Queues newly created activities for scoring. Other events are acknowledged and ignored.",
		Tags:        []string{TagStrava.String()},
	}, func(ctx context.Context, input *schemas.WebhookEventInput) (*schemas.WebhookEventOutput, error) {
		ev := input.Body
		resp := &schemas.WebhookEventOutput{}

		if ev.ObjectType != "activity" || ev.AspectType != "create" {
			svcs.Logger.Debug("webhook event ignored", "object_type", ev.ObjectType, "aspect_type", ev.AspectType, "object_id", ev.ObjectID)
			resp.Body.Status = "ignored"
			return resp, nil
		}

		if svcs.Queue == nil || !svcs.Queue.SubmitActivity(ev.OwnerID, ev.ObjectID) {
			svcs.Logger.Warn("webhook activity not queued", "athlete_id", ev.OwnerID, "activity_id", ev.ObjectID)
			return nil, huma.Error503ServiceUnavailable("sync queue is full")
		}
		resp.Body.Status = "queued"
		return resp, nil
	})
}
