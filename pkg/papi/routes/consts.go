package routes

var (
	BearerAuth = []map[string][]string{
		{"bearer": {}},
	}
)

type Tag string

const (
	TagHealth      Tag = "health"
	TagUsers       Tag = "users"
	TagStrava      Tag = "strava"
	TagLeaderboard Tag = "leaderboard"
	TagAdmin       Tag = "admin"
)

func (t Tag) String() string { return string(t) }
