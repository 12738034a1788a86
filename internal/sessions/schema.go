// Package sessions describes the online-gaming session dataset: its
// columns, the filter fields exposed to users, and how to read it from
// CSV or Parquet.
package sessions

import (
	"gamedash/internal/engine"
)

// Column names as they appear in the dataset header.
const (
	PlayerID                  = "PlayerID"
	Age                       = "Age"
	Gender                    = "Gender"
	Location                  = "Location"
	GameGenre                 = "GameGenre"
	PlayTimeHours             = "PlayTimeHours"
	InGamePurchases           = "InGamePurchases"
	GameDifficulty            = "GameDifficulty"
	SessionsPerWeek           = "SessionsPerWeek"
	AvgSessionDurationMinutes = "AvgSessionDurationMinutes"
	PlayerLevel               = "PlayerLevel"
	AchievementsUnlocked      = "AchievementsUnlocked"
	EngagementLevel           = "EngagementLevel"
)

// Schema is the required shape of the dataset. InGamePurchases is a 0/1
// flag kept numeric so its mean is a purchase rate.
var Schema = engine.Schema{
	{Name: PlayerID, Kind: engine.Categorical},
	{Name: Age, Kind: engine.Numeric},
	{Name: Gender, Kind: engine.Categorical},
	{Name: Location, Kind: engine.Categorical},
	{Name: GameGenre, Kind: engine.Categorical},
	{Name: PlayTimeHours, Kind: engine.Numeric},
	{Name: InGamePurchases, Kind: engine.Numeric},
	{Name: GameDifficulty, Kind: engine.Categorical},
	{Name: SessionsPerWeek, Kind: engine.Numeric},
	{Name: AvgSessionDurationMinutes, Kind: engine.Numeric},
	{Name: PlayerLevel, Kind: engine.Numeric},
	{Name: AchievementsUnlocked, Kind: engine.Numeric},
	{Name: EngagementLevel, Kind: engine.Categorical},
}

// FilterField is a user-facing filter and the column it constrains.
type FilterField struct {
	Param  string
	Column string
	Label  string
}

// FilterFields are the sidebar filters, in display order.
var FilterFields = []FilterField{
	{Param: "location", Column: Location, Label: "Location"},
	{Param: "genre", Column: GameGenre, Label: "Game Genre"},
	{Param: "difficulty", Column: GameDifficulty, Label: "Game Difficulty"},
}

// Predicate builds an engine predicate from filter parameters; get
// returns the selected values of one parameter.
func Predicate(get func(param string) []string) engine.Predicate {
	p := engine.Predicate{}
	for _, ff := range FilterFields {
		if vals := get(ff.Param); len(vals) > 0 {
			p[ff.Column] = vals
		}
	}
	return p
}

// AgeGroups buckets ages into five-year bands.
var AgeGroups = engine.BucketSpec{
	Edges:  []float64{14, 19, 24, 29, 34, 39, 44, 49},
	Labels: []string{"15-19", "20-24", "25-29", "30-34", "35-39", "40-44", "45-49"},
	Name:   "AgeGroup",
}
