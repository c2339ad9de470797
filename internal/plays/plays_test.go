package plays

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephcasey/mybgg/internal/bgg"
	"github.com/josephcasey/mybgg/internal/heroes"
)

func TestParseVillain(t *testing.T) {
	cases := []struct {
		comment string
		want    VillainMatch
	}{
		{"Rhino 1/2 standard", VillainMatch{"Rhino", StageStrict}},
		{"Rhino 1/2\n#bgstats", VillainMatch{"Rhino", StageStrict}},
		{"Crossbones1/2", VillainMatch{"Crossbones", StageStrict}},
		{"vs. Ultron 2/3 expert", VillainMatch{"Ultron", StageStrict}},
		{"#bgstats\nGreen Goblin 1/2", VillainMatch{"Green Goblin", StageStrict}},
		{"Klaw A", VillainMatch{"Klaw", StageDifficulty}},
		{"Klaw A1/A2 expert", VillainMatch{"Klaw", StageDifficulty}},
		{"Red Skull B - heroic", VillainMatch{"Red Skull", StageDifficulty}},
		{"Klaw expert A", VillainMatch{"Klaw", StageDifficulty}},
		{"Rhino standard 1/2", VillainMatch{"Rhino", StageStrict}},
		{"Ultron Heroic 1 2/3", VillainMatch{"Ultron", StageStrict}},
		{"vs Mutagen Formula standard #mc", VillainMatch{"Mutagen Formula", StageTrailing}},
		{"Ronan heroic 2", VillainMatch{"Ronan", StageTrailing}},
		{"expert", VillainMatch{"expert", StageRaw}},
		{"", VillainMatch{}},
		{"#bgstats", VillainMatch{"#bgstats", StageRaw}},
	}
	for _, tc := range cases {
		t.Run(tc.comment, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseVillain(tc.comment))
		})
	}
}

func TestParseVillain_StrictBeatsLooserStages(t *testing.T) {
	// Matches both the strict and the difficulty pattern; strict must win.
	got := ParseVillain("Klaw A 1/2")
	assert.Equal(t, StageStrict, got.Stage)
	assert.Equal(t, "Klaw A", got.Name)
}

func TestParse_EndToEnd(t *testing.T) {
	play := bgg.Play{
		ID:       101,
		Date:     "2024-03-01",
		Location: "Home",
		Comments: "Rhino 1/2\n#bgstats",
		Players:  []bgg.Player{{Name: "Joe", Color: "Spider-Man", Win: "1"}},
	}
	rec, ex := Parse(play, heroes.New())
	require.Equal(t, Included, ex)

	want := PlayRecord{
		ID: 101, Villain: "Rhino", Hero: "Spider-Man", Hero1: "Spider-Man",
		Win: true, Date: "2024-03-01", Location: "Home", PlayType: PlayTypeSolo,
	}
	if diff := cmp.Diff(want, rec, cmpopts.IgnoreFields(PlayRecord{}, "Stage")); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Exclusions(t *testing.T) {
	norm := heroes.New()
	_, ex := Parse(bgg.Play{Comments: "See Parent Play for details", Players: []bgg.Player{{Color: "Thor"}}}, norm)
	assert.Equal(t, ExcludedParentPlay, ex)

	_, ex = Parse(bgg.Play{Comments: "Rhino 1/2", Players: []bgg.Player{{Color: "Thor"}, {Color: "Hulk"}}}, norm)
	assert.Equal(t, ExcludedMultiPlayer, ex)

	_, ex = Parse(bgg.Play{Comments: "Rhino 1/2"}, norm)
	assert.Equal(t, ExcludedNoPlayers, ex)
}

func TestParse_TeamInOneSeat(t *testing.T) {
	play := bgg.Play{
		ID:       7,
		Comments: "Kang A",
		Players:  []bgg.Player{{Name: "Joe", Color: "Team 1 - Gamora/Drax Aggression", Win: "0"}},
	}
	rec, ex := Parse(play, heroes.New())
	require.Equal(t, Included, ex)
	assert.Equal(t, "Kang", rec.Villain)
	assert.Equal(t, "Gamora", rec.Hero1)
	assert.Equal(t, "Drax", rec.Hero2)
	assert.Equal(t, "Gamora + Drax", rec.TeamComposition)
	assert.Equal(t, rec.TeamComposition, rec.Hero)
	assert.Equal(t, PlayTypeMultihanded, rec.PlayType)
	assert.False(t, rec.Win)
}

func TestParse_HeroFallsBackToPlayerName(t *testing.T) {
	play := bgg.Play{Comments: "Rhino 1/2", Players: []bgg.Player{{Name: "Colossus Protectio", Color: "Unknown", Win: "1"}}}
	rec, _ := Parse(play, heroes.New())
	assert.Equal(t, "Colossus", rec.Hero)
	assert.Equal(t, "Protection", rec.Aspect)
}

func TestParseAll_Stats(t *testing.T) {
	ps := []bgg.Play{
		{ID: 1, Comments: "Rhino 1/2", Players: []bgg.Player{{Color: "Hulk", Win: "1"}}},
		{ID: 2, Comments: "Klaw A", Players: []bgg.Player{{Color: "Thor"}}},
		{ID: 3, Comments: "parent play", Players: []bgg.Player{{Color: "Thor"}}},
		{ID: 4, Comments: "Rhino 1/2", Players: []bgg.Player{{Color: "Thor"}, {Color: "Hulk"}}},
	}
	recs, st := ParseAll(ps, heroes.New(), nil)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, st.Parsed)
	assert.Equal(t, 1, st.ParentPlay)
	assert.Equal(t, 1, st.MultiPlayer)
	assert.Equal(t, 1, st.ByStage[StageStrict])
	assert.Equal(t, 1, st.ByStage[StageDifficulty])
}
