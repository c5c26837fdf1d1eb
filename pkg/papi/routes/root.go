package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/services"
)

func RegisterAPI(api huma.API, svcs *services.Services) {
	if svcs == nil {
		svcs = services.EmptyServices()
	}
	if svcs.IAM != nil {
		api.UseMiddleware(svcs.IAM.Middleware(svcs.Logger))
	}

	RegisterHealth(api)
	RegisterLink(api, svcs)
	RegisterWebhook(api, svcs)
	RegisterUsers(api, svcs)
	RegisterLeaderboard(api, svcs)
	RegisterWeights(api, svcs)
}
