package schemas

import "github.com/quatton/podium/pkg/leaderboard"

type LeaderboardInput struct {
	Limit int `query:"limit" default:"3" minimum:"1" maximum:"100"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Total       string `json:"total_weighted_km"`
}

type LeaderboardOutput struct {
	Body struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
}

func NewLeaderboardOutput(entries []leaderboard.Entry) *LeaderboardOutput {
	out := &LeaderboardOutput{}
	out.Body.Entries = make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out.Body.Entries = append(out.Body.Entries, LeaderboardEntry{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Total:       e.Total.String(),
		})
	}
	return out
}
