package schemas

// WebhookVerifyInput is the subscription handshake Strava performs when a
// webhook is registered.
type WebhookVerifyInput struct {
	Mode        string `query:"hub.mode" example:"subscribe"`
	VerifyToken string `query:"hub.verify_token"`
	Challenge   string `query:"hub.challenge"`
}

type WebhookVerifyOutput struct {
	Body struct {
		Challenge string `json:"hub.challenge"`
	}
}

// WebhookEvent is one push notification from Strava.
type WebhookEvent struct {
	ObjectType     string         `json:"object_type" example:"activity"`
	ObjectID       int64          `json:"object_id"`
	AspectType     string         `json:"aspect_type" example:"create"`
	OwnerID        int64          `json:"owner_id" doc:"Athlete id"`
	SubscriptionID int64          `json:"subscription_id"`
	EventTime      int64          `json:"event_time"`
	Updates        map[string]any `json:"updates,omitempty"`
}

type WebhookEventInput struct {
	Body WebhookEvent
}

type WebhookEventOutput struct {
	Body struct {
		Status string `json:"status" enum:"queued,ignored"`
	}
}
