package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/schemas"
	"github.com/quatton/podium/pkg/papi/services"
)

func RegisterLeaderboard(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "leaderboard",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard",
		Summary:     "Top users",
		Description: "Users ranked by total weighted distance. Ties keep the order users first appear in the activity log.",
		Tags:        []string{TagLeaderboard.String()},
	}, func(ctx context.Context, input *schemas.LeaderboardInput) (*schemas.LeaderboardOutput, error) {
		entries, err := svcs.Board.TopN(ctx, input.Limit)
		if err != nil {
			svcs.Logger.Error("failed to build leaderboard", "error", err)
			return nil, huma.Error500InternalServerError("failed to load leaderboard")
		}
		return schemas.NewLeaderboardOutput(entries), nil
	})
}
