package routes

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/services"
)

func requireAdmin(ctx context.Context, svcs *services.Services) error {
	if svcs.IAM.Get(ctx) == nil {
		return huma.Error401Unauthorized("Authentication required")
	}
	return nil
}

// requireVerified lets a request through only for users the allow-list
// approved.
func requireVerified(ctx context.Context, svcs *services.Services, userID int64) error {
	if err := requireAdmin(ctx, svcs); err != nil {
		return err
	}
	ok, err := svcs.Users.IsAuthorized(ctx, userID)
	if err != nil {
		svcs.Logger.Error("authorization lookup failed", "user_id", userID, "error", err)
		return huma.Error500InternalServerError("failed to check user")
	}
	if !ok {
		return huma.Error403Forbidden("user is not verified")
	}
	return nil
}
