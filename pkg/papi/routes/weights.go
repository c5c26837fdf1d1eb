package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/papi/schemas"
	"github.com/quatton/podium/pkg/papi/services"
	"github.com/quatton/podium/pkg/perr"
	"github.com/shopspring/decimal"
)

func RegisterWeights(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "weights-list",
		Method:      http.MethodGet,
		Path:        "/api/weights",
		Summary:     "Scoring weights",
		Description: "Sports that currently score, with their multiplier",
		Tags:        []string{TagLeaderboard.String()},
	}, func(ctx context.Context, input *struct{}) (*schemas.WeightsOutput, error) {
		return schemas.NewWeightsOutput(svcs.Weights.Effective(ctx)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "weights-set",
		Method:        http.MethodPut,
		Path:          "/api/admin/weights/{sport}",
		Summary:       "Override a weight",
		Description:   "Stores a weight override and queues a rescore of every stored activity",
		Tags:          []string{TagAdmin.String()},
		Security:      BearerAuth,
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *schemas.SetWeightInput) (*schemas.WeightChangeOutput, error) {
		if err := requireAdmin(ctx, svcs); err != nil {
			return nil, err
		}
		w, err := decimal.NewFromString(input.Body.Weight)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("weight must be a decimal number")
		}
		if err := svcs.Weights.Set(ctx, input.Sport, w); err != nil {
			return nil, weightError(svcs, err)
		}
		return weightChanged(ctx, svcs, input.Sport), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "weights-reset",
		Method:        http.MethodDelete,
		Path:          "/api/admin/weights/{sport}",
		Summary:       "Drop a weight override",
		Description:   "Falls back to the built-in default and queues a rescore",
		Tags:          []string{TagAdmin.String()},
		Security:      BearerAuth,
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *schemas.SportPath) (*schemas.WeightChangeOutput, error) {
		if err := requireAdmin(ctx, svcs); err != nil {
			return nil, err
		}
		if err := svcs.Weights.Reset(ctx, input.Sport); err != nil {
			return nil, weightError(svcs, err)
		}
		return weightChanged(ctx, svcs, input.Sport), nil
	})
}

func weightError(svcs *services.Services, err error) error {
	if perr.IsCode(err, perr.CodeValidation) {
		return huma.Error422UnprocessableEntity(err.Error())
	}
	svcs.Logger.Error("failed to change weight", "error", err)
	return huma.Error500InternalServerError("failed to store weight")
}

func weightChanged(ctx context.Context, svcs *services.Services, sportType string) *schemas.WeightChangeOutput {
	resp := &schemas.WeightChangeOutput{Status: http.StatusAccepted}
	resp.Body.SportType = sportType
	resp.Body.Weight = svcs.Weights.Effective(ctx).Weight(sportType).String()
	resp.Body.Reconcile = "queued"
	if svcs.Queue == nil || !svcs.Queue.SubmitReconcileAll() {
		svcs.Logger.Warn("reconcile not queued after weight change", "sport_type", sportType)
		resp.Body.Reconcile = "rejected"
	}
	return resp
}
