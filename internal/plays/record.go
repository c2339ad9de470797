package plays

import (
	"strings"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/bgg"
	"github.com/josephcasey/mybgg/internal/heroes"
	"github.com/josephcasey/mybgg/internal/logging"
)

const (
	PlayTypeSolo        = "solo"
	PlayTypeMultihanded = "multihanded"
)

// PlayRecord is one parsed play. It is not modified after Parse returns.
type PlayRecord struct {
	ID              int    `json:"id"`
	Villain         string `json:"villain"`
	Stage           Stage  `json:"-"`
	Hero            string `json:"hero"`
	Hero1           string `json:"hero1"`
	Hero2           string `json:"hero2,omitempty"`
	TeamComposition string `json:"team_composition,omitempty"`
	Aspect          string `json:"aspect,omitempty"`
	Win             bool   `json:"win"`
	Date            string `json:"date"`
	Location        string `json:"location,omitempty"`
	PlayType        string `json:"play_type"`
}

// Exclusion says why a play was left out of attribution.
type Exclusion int

const (
	Included Exclusion = iota
	ExcludedParentPlay
	ExcludedMultiPlayer
	ExcludedNoPlayers
)

func (e Exclusion) String() string {
	switch e {
	case ExcludedParentPlay:
		return "parent play"
	case ExcludedMultiPlayer:
		return "multiple players"
	case ExcludedNoPlayers:
		return "no players"
	default:
		return "included"
	}
}

// Parse turns one BGG play into a record. Plays whose comment mentions a
// parent play are duplicates; plays with several recorded players are
// skipped so co-op games are not counted once per seat.
func Parse(p bgg.Play, norm *heroes.Normalizer) (PlayRecord, Exclusion) {
	if strings.Contains(strings.ToLower(p.Comments), "parent play") {
		return PlayRecord{}, ExcludedParentPlay
	}
	switch {
	case len(p.Players) == 0:
		return PlayRecord{}, ExcludedNoPlayers
	case len(p.Players) > 1:
		return PlayRecord{}, ExcludedMultiPlayer
	}
	player := p.Players[0]

	vm := ParseVillain(p.Comments)
	rec := PlayRecord{
		ID:       p.ID,
		Villain:  vm.Name,
		Stage:    vm.Stage,
		Win:      player.Won(),
		Date:     p.Date,
		Location: p.Location,
		PlayType: PlayTypeSolo,
	}

	field := heroField(player)
	if norm.IsMultiHero(field) {
		parts := norm.Split(field)
		names := make([]string, 0, len(parts))
		for _, part := range parts {
			names = append(names, part.Hero)
			if rec.Aspect == "" {
				rec.Aspect = part.Aspect
			}
		}
		if len(parts) > 0 {
			rec.Hero1 = parts[0].Hero
			rec.Hero = rec.Hero1
		}
		if len(parts) > 1 {
			rec.Hero2 = parts[1].Hero
			rec.PlayType = PlayTypeMultihanded
			rec.TeamComposition = strings.Join(names, " + ")
			rec.Hero = rec.TeamComposition
		}
		return rec, Included
	}

	rec.Hero, rec.Aspect = norm.Normalize(field)
	rec.Hero1 = rec.Hero
	return rec, Included
}

// heroField is the player slot the hero was logged in: BGStats writes the
// hero into color and the person into name.
func heroField(p bgg.Player) string {
	c := strings.TrimSpace(p.Color)
	if c == "" || strings.EqualFold(c, "Unknown") {
		return strings.TrimSpace(p.Name)
	}
	return c
}

// Stats counts how a batch of plays was handled.
type Stats struct {
	Parsed      int
	ParentPlay  int
	MultiPlayer int
	NoPlayers   int
	ByStage     map[Stage]int
}

// ParseAll parses plays in order, logging each exclusion.
func ParseAll(ps []bgg.Play, norm *heroes.Normalizer, lg *zap.Logger) ([]PlayRecord, Stats) {
	lg = logging.OrNop(lg)
	st := Stats{ByStage: map[Stage]int{}}
	out := make([]PlayRecord, 0, len(ps))
	for _, p := range ps {
		rec, ex := Parse(p, norm)
		switch ex {
		case ExcludedParentPlay:
			st.ParentPlay++
		case ExcludedMultiPlayer:
			st.MultiPlayer++
		case ExcludedNoPlayers:
			st.NoPlayers++
		}
		if ex != Included {
			lg.Debug("play excluded", zap.Int("play_id", p.ID), zap.Stringer("reason", ex))
			continue
		}
		st.Parsed++
		st.ByStage[rec.Stage]++
		lg.Debug("play parsed",
			zap.Int("play_id", rec.ID),
			zap.String("villain", rec.Villain),
			zap.Stringer("stage", rec.Stage),
			zap.String("hero", rec.Hero),
			zap.Bool("win", rec.Win))
		out = append(out, rec)
	}
	return out, st
}
