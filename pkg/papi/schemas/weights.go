package schemas

import "github.com/quatton/podium/pkg/scoring"

type WeightEntry struct {
	SportType string `json:"sport_type" example:"Ride"`
	Weight    string `json:"weight" example:"0.25"`
}

type WeightsOutput struct {
	Body struct {
		Weights []WeightEntry `json:"weights"`
	}
}

// NewWeightsOutput lists the sports that currently score, heaviest first.
func NewWeightsOutput(t scoring.Table) *WeightsOutput {
	out := &WeightsOutput{}
	out.Body.Weights = []WeightEntry{}
	for _, e := range t.Sorted() {
		if !e.Weight.IsPositive() {
			continue
		}
		out.Body.Weights = append(out.Body.Weights, WeightEntry{SportType: e.SportType, Weight: e.Weight.String()})
	}
	return out
}

type SportPath struct {
	Sport string `path:"sport" doc:"Sport type label" example:"Ride"`
}

type SetWeightInput struct {
	SportPath
	Body struct {
		Weight string `json:"weight" pattern:"^[0-9]+(\\.[0-9]+)?$" doc:"Non-negative decimal multiplier; 0 disables the sport" example:"0.25"`
	}
}

type WeightChangeOutput struct {
	Status int `json:"-"`
	Body   struct {
		SportType string `json:"sport_type"`
		Weight    string `json:"weight" doc:"Effective weight after the change"`
		Reconcile string `json:"reconcile" enum:"queued,rejected"`
	}
}
