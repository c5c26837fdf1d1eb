package schemas

import (
	"time"

	"github.com/quatton/podium/pkg/leaderboard"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/syncer"
)

// UserPath identifies a chat user by telegram id.
type UserPath struct {
	ID int64 `path:"id" doc:"Telegram user id" example:"123456789"`
}

type ConnectInput struct {
	UserPath
	Redirect bool `query:"redirect" doc:"Answer with a 302 to the authorize URL instead of a JSON body" default:"false"`
}

type ConnectOutput struct {
	Status   int    `json:"-"`
	Location string `header:"Location" doc:"Authorize URL when redirect=true"`
	Body     *ConnectBody
}

type ConnectBody struct {
	AuthorizeURL string `json:"authorize_url" doc:"Strava authorize URL to open"`
}

type AuthCallbackInput struct {
	Code  string `query:"code" doc:"Authorization code from Strava"`
	State string `query:"state" required:"true" doc:"State parameter issued by the connect endpoint"`
	Error string `query:"error" doc:"Set by Strava when the user declined"`
	Scope string `query:"scope" doc:"Scopes granted by the user"`
}

type AuthCallbackOutput struct {
	Body struct {
		Status    string `json:"status" example:"linked"`
		UserID    int64  `json:"user_id"`
		AthleteID int64  `json:"athlete_id,omitempty"`
		Message   string `json:"message"`
	}
}

// SyncResult is the public view of one sync run.
type SyncResult struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status" enum:"synced,skipped,not_linked,failed"`
	Fetched  int    `json:"fetched"`
	Upserted int    `json:"upserted"`
	Dropped  int    `json:"dropped"`
	Updated  int    `json:"updated"`
	Removed  int    `json:"removed"`
	Error    string `json:"error,omitempty"`
}

func NewSyncResult(r syncer.Result) *SyncResult {
	out := &SyncResult{
		RunID:    r.RunID.String(),
		Status:   string(r.Status),
		Fetched:  r.Fetched,
		Upserted: r.Upserted,
		Dropped:  r.Dropped,
		Updated:  r.Updated,
		Removed:  r.Removed,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type SyncAcceptedOutput struct {
	Status int `json:"-"`
	Body   struct {
		Status string `json:"status" example:"queued"`
	}
}

type StatsInput struct {
	UserPath
	Sync bool `query:"sync" default:"true" doc:"Sync with Strava before computing totals"`
}

type SportStats struct {
	SportType string `json:"sport_type"`
	Count     int    `json:"count"`
	Distance  string `json:"distance_km"`
	Weighted  string `json:"weighted_km"`
}

type StatsOutput struct {
	Body struct {
		UserID      int64        `json:"user_id"`
		DisplayName string       `json:"display_name"`
		Total       string       `json:"total_weighted_km" doc:"Exact decimal"`
		Count       int          `json:"count"`
		BySport     []SportStats `json:"by_sport"`
		Sync        *SyncResult  `json:"sync,omitempty"`
	}
}

func NewStatsOutput(s *leaderboard.Summary, r *syncer.Result) *StatsOutput {
	out := &StatsOutput{}
	out.Body.UserID = s.UserID
	out.Body.DisplayName = s.DisplayName
	out.Body.Total = s.Total.String()
	out.Body.Count = s.Count
	out.Body.BySport = make([]SportStats, 0, len(s.BySport))
	for _, st := range s.BySport {
		out.Body.BySport = append(out.Body.BySport, SportStats{
			SportType: st.SportType,
			Count:     st.Count,
			Distance:  st.Distance.String(),
			Weighted:  st.Weighted.String(),
		})
	}
	if r != nil {
		out.Body.Sync = NewSyncResult(*r)
	}
	return out
}

type ActivitiesInput struct {
	UserPath
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"200"`
}

type Activity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SportType string    `json:"sport_type"`
	Distance  string    `json:"distance_km"`
	Weighted  string    `json:"weighted_km"`
	StartDate time.Time `json:"start_date"`
}

type ActivitiesOutput struct {
	Body struct {
		Activities []Activity `json:"activities"`
		Total      int        `json:"total" doc:"Number of stored activities for the user"`
	}
}

func NewActivitiesOutput(p *leaderboard.RecentPage) *ActivitiesOutput {
	out := &ActivitiesOutput{}
	out.Body.Total = p.Total
	out.Body.Activities = make([]Activity, 0, len(p.Activities))
	for _, a := range p.Activities {
		out.Body.Activities = append(out.Body.Activities, NewActivity(a))
	}
	return out
}

func NewActivity(a sport.Activity) Activity {
	return Activity{
		ID:        a.ID,
		Name:      a.Name,
		SportType: a.SportType,
		Distance:  a.Distance.String(),
		Weighted:  a.WeightedDistance.String(),
		StartDate: a.StartDate,
	}
}

type RawActivityInput struct {
	UserPath
	ActivityID int64 `path:"activityId"`
}

type RawActivityOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type RenameInput struct {
	UserPath
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"128" doc:"First word becomes the first name, the rest the last name" example:"Jane van Doe"`
	}
}

type VerifyInput struct {
	UserPath
	Body struct {
		PhoneNumber string `json:"phone_number" minLength:"3" doc:"Phone number approved by the allow-list"`
		Username    string `json:"username,omitempty" doc:"Telegram handle"`
		FirstName   string `json:"first_name,omitempty"`
		LastName    string `json:"last_name,omitempty"`
	}
}

type UserOutput struct {
	Body struct {
		UserID      int64  `json:"user_id"`
		DisplayName string `json:"display_name"`
		Verified    bool   `json:"verified"`
		Linked      bool   `json:"linked"`
	}
}

func NewUserOutput(u *sport.User) *UserOutput {
	out := &UserOutput{}
	out.Body.UserID = u.TelegramID
	out.Body.DisplayName = sport.DisplayName(u, u.TelegramID)
	out.Body.Verified = u.IsVerified
	out.Body.Linked = u.Linked()
	return out
}
