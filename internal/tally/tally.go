// Package tally folds parsed plays into villain -> hero win/loss counts.
package tally

import (
	"math"
	"sort"

	"github.com/josephcasey/mybgg/internal/plays"
)

// HeroStat is the record of one hero against one villain.
type HeroStat struct {
	Hero     string
	Count    int
	WinCount int
	PlayIDs  []int
}

// VillainStat is a villain's distinct-play total.
type VillainStat struct {
	Villain string
	Plays   int
	Wins    int
}

type villainEntry struct {
	heroes []*HeroStat
	byHero map[string]*HeroStat
	seen   map[int]bool
	wins   int
}

// Tally keeps insertion order for villains and for heroes within a villain
// so ranking ties are stable.
type Tally struct {
	order     []string
	byVillain map[string]*villainEntry
}

func New() *Tally {
	return &Tally{byVillain: map[string]*villainEntry{}}
}

// Add attributes rec to (villain, hero). A play id already counted for the
// villain is ignored, as are records missing either name. It reports
// whether the record was counted.
func (t *Tally) Add(rec plays.PlayRecord) bool {
	if rec.Villain == "" || rec.Hero == "" {
		return false
	}
	v, ok := t.byVillain[rec.Villain]
	if !ok {
		v = &villainEntry{byHero: map[string]*HeroStat{}, seen: map[int]bool{}}
		t.byVillain[rec.Villain] = v
		t.order = append(t.order, rec.Villain)
	}
	if v.seen[rec.ID] {
		return false
	}
	v.seen[rec.ID] = true

	h, ok := v.byHero[rec.Hero]
	if !ok {
		h = &HeroStat{Hero: rec.Hero}
		v.byHero[rec.Hero] = h
		v.heroes = append(v.heroes, h)
	}
	h.Count++
	h.PlayIDs = append(h.PlayIDs, rec.ID)
	if rec.Win {
		h.WinCount++
		v.wins++
	}
	return true
}

// AddAll adds every record and returns how many were counted.
func (t *Tally) AddAll(recs []plays.PlayRecord) int {
	n := 0
	for _, r := range recs {
		if t.Add(r) {
			n++
		}
	}
	return n
}

// Villains lists villains in first-seen order.
func (t *Tally) Villains() []string {
	return append([]string(nil), t.order...)
}

// Distinct is the number of distinct plays recorded for villain.
func (t *Tally) Distinct(villain string) int {
	if v, ok := t.byVillain[villain]; ok {
		return len(v.seen)
	}
	return 0
}

// RankedHeroes is descending by count; ties keep first-seen order.
func (t *Tally) RankedHeroes(villain string) []HeroStat {
	v, ok := t.byVillain[villain]
	if !ok {
		return nil
	}
	out := make([]HeroStat, len(v.heroes))
	for i, h := range v.heroes {
		out[i] = *h
		out[i].PlayIDs = append([]int(nil), h.PlayIDs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// RankedVillains is descending by distinct plays; ties keep first-seen order.
func (t *Tally) RankedVillains() []VillainStat {
	out := make([]VillainStat, 0, len(t.order))
	for _, name := range t.order {
		v := t.byVillain[name]
		out = append(out, VillainStat{Villain: name, Plays: len(v.seen), Wins: v.wins})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Plays > out[j].Plays })
	return out
}

// Stat is one row of the summary tables.
type Stat struct {
	Name       string  `json:"name"`
	Plays      int     `json:"plays"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
	Difficulty string  `json:"difficulty"`
}

type Summary struct {
	Plays    int    `json:"plays"`
	Wins     int    `json:"wins"`
	Villains []Stat `json:"villains"`
	Heroes   []Stat `json:"heroes"`
}

// Difficulty labels a win rate given in percent.
func Difficulty(rate float64) string {
	switch {
	case rate >= 70:
		return "Easy"
	case rate >= 40:
		return "Medium"
	default:
		return "Hard"
	}
}

// Summary aggregates per villain and per hero, both sorted by plays.
func (t *Tally) Summary() Summary {
	var s Summary
	type acc struct{ plays, wins int }
	heroOrder := []string{}
	heroAcc := map[string]*acc{}

	for _, vs := range t.RankedVillains() {
		s.Villains = append(s.Villains, stat(vs.Villain, vs.Plays, vs.Wins))
		s.Plays += vs.Plays
		s.Wins += vs.Wins
	}
	for _, name := range t.order {
		for _, h := range t.byVillain[name].heroes {
			a, ok := heroAcc[h.Hero]
			if !ok {
				a = &acc{}
				heroAcc[h.Hero] = a
				heroOrder = append(heroOrder, h.Hero)
			}
			a.plays += h.Count
			a.wins += h.WinCount
		}
	}
	for _, name := range heroOrder {
		a := heroAcc[name]
		s.Heroes = append(s.Heroes, stat(name, a.plays, a.wins))
	}
	sort.SliceStable(s.Heroes, func(i, j int) bool { return s.Heroes[i].Plays > s.Heroes[j].Plays })
	return s
}

func stat(name string, n, wins int) Stat {
	rate := 0.0
	if n > 0 {
		rate = math.Round(float64(wins)/float64(n)*1000) / 10
	}
	return Stat{Name: name, Plays: n, Wins: wins, WinRate: rate, Difficulty: Difficulty(rate)}
}
