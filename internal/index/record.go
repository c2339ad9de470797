// Package index pushes parsed plays into a search backend and prunes
// entries whose play no longer exists.
package index

import (
	"strconv"
	"time"

	"github.com/josephcasey/mybgg/internal/plays"
)

// Record is the flat document stored per play.
type Record struct {
	ObjectID        string `json:"objectID" dynamodbav:"objectID"`
	PlayID          int    `json:"play_id" dynamodbav:"play_id"`
	Villain         string `json:"villain" dynamodbav:"villain"`
	Hero            string `json:"hero" dynamodbav:"hero"`
	Hero1           string `json:"hero1" dynamodbav:"hero1"`
	Hero2           string `json:"hero2" dynamodbav:"hero2,omitempty"`
	TeamComposition string `json:"team_composition" dynamodbav:"team_composition,omitempty"`
	Aspect          string `json:"aspect" dynamodbav:"aspect,omitempty"`
	Date            string `json:"date" dynamodbav:"date"`
	DateTimestamp   int64  `json:"date_timestamp" dynamodbav:"date_timestamp"`
	Location        string `json:"location" dynamodbav:"location,omitempty"`
	Win             int    `json:"win" dynamodbav:"win"`
	PlayType        string `json:"play_type" dynamodbav:"play_type"`
}

func ObjectID(playID int) string { return "play" + strconv.Itoa(playID) }

// FromPlay flattens a parsed play. Unparsable dates get a zero timestamp.
func FromPlay(p plays.PlayRecord) Record {
	r := Record{
		ObjectID:        ObjectID(p.ID),
		PlayID:          p.ID,
		Villain:         p.Villain,
		Hero:            p.Hero,
		Hero1:           p.Hero1,
		Hero2:           p.Hero2,
		TeamComposition: p.TeamComposition,
		Aspect:          p.Aspect,
		Date:            p.Date,
		Location:        p.Location,
		PlayType:        p.PlayType,
	}
	if p.Win {
		r.Win = 1
	}
	if t, err := time.Parse("2006-01-02", p.Date); err == nil {
		r.DateTimestamp = t.Unix()
	}
	return r
}

// Replica is a secondary sort order.
type Replica struct {
	Suffix  string
	Ranking []string
}

// Schema is how the backend should index records.
type Schema struct {
	SearchableAttributes []string
	Facets               []string
	CustomRanking        []string
	Replicas             []Replica
	HitsPerPage          int
}

func DefaultSchema(hitsPerPage int) Schema {
	return Schema{
		SearchableAttributes: []string{"villain", "hero", "hero1", "hero2", "team_composition", "location"},
		Facets: []string{
			"searchable(villain)",
			"searchable(hero)",
			"hero1",
			"hero2",
			"aspect",
			"play_type",
			"win",
			"location",
		},
		CustomRanking: []string{"desc(date_timestamp)"},
		Replicas: []Replica{
			{Suffix: "_date_ascending", Ranking: []string{"asc(date_timestamp)"}},
			{Suffix: "_villain_ascending", Ranking: []string{"asc(villain)"}},
			{Suffix: "_hero_ascending", Ranking: []string{"asc(hero)"}},
		},
		HitsPerPage: hitsPerPage,
	}
}
