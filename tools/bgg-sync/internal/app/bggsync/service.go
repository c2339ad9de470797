package bggsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/bgg"
	"github.com/josephcasey/mybgg/internal/cache"
	"github.com/josephcasey/mybgg/internal/heroes"
	"github.com/josephcasey/mybgg/internal/index"
	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/internal/plays"
	"github.com/josephcasey/mybgg/internal/tally"
)

const (
	ModeIndex        = "index"
	ModeExtractNames = "extract_names"
	ModeStats        = "stats"
)

// Service runs one download-parse-tally pass and then the mode's output.
type Service struct {
	Source    bgg.Source
	Store     cache.Store
	Backend   index.Backend // nil when indexing is skipped
	Schema    index.Schema
	User      string
	ParamSets []map[string]string
	Out       io.Writer
	Log       *zap.Logger
}

// Report summarises a run; it is also the Lambda response.
type Report struct {
	Mode       string        `json:"mode"`
	Downloaded int           `json:"downloaded"`
	Parsed     int           `json:"parsed"`
	Excluded   int           `json:"excluded"`
	Attributed int           `json:"attributed"`
	Indexed    int           `json:"indexed"`
	Heroes     int           `json:"heroes,omitempty"`
	Villains   int           `json:"villains,omitempty"`
	Summary    tally.Summary `json:"summary"`
}

func (s *Service) Run(ctx context.Context, mode string) (Report, error) {
	lg := logging.OrNop(s.Log)
	rep := Report{Mode: mode}
	switch mode {
	case ModeIndex, ModeExtractNames, ModeStats:
	default:
		return rep, fmt.Errorf("unknown mode %q", mode)
	}

	norm, err := s.normalizer(ctx)
	if err != nil {
		return rep, err
	}

	res, err := bgg.NewDownloader(s.Source, lg).Download(ctx, s.User, s.ParamSets)
	if err != nil {
		return rep, err
	}
	rep.Downloaded = len(res.Plays)
	if rep.Downloaded == 0 {
		return rep, errors.New("no plays imported, check the boardgamegeek section of config.json")
	}
	lg.Info("imported Marvel Champions plays", zap.Int("plays", rep.Downloaded), zap.String("user", s.User))

	recs, st := plays.ParseAll(res.Plays, norm, lg)
	rep.Parsed = st.Parsed
	rep.Excluded = st.ParentPlay + st.MultiPlayer + st.NoPlayers
	for stage, n := range st.ByStage {
		lg.Debug("villain stage", zap.Stringer("stage", stage), zap.Int("plays", n))
	}

	t := tally.New()
	rep.Attributed = t.AddAll(recs)
	rep.Summary = t.Summary()

	switch mode {
	case ModeExtractNames:
		h, v, err := s.extractNames(ctx, norm, recs)
		if err != nil {
			return rep, err
		}
		rep.Heroes, rep.Villains = h, v
	case ModeStats:
		if s.Out != nil {
			if err := WriteStats(s.Out, t); err != nil {
				return rep, fmt.Errorf("print stats: %w", err)
			}
		}
	case ModeIndex:
		logTally(lg, t)
		if s.Backend == nil {
			lg.Info("skipped indexing")
			return rep, nil
		}
		sr, err := index.NewUploader(s.Backend, s.Schema, lg).Sync(ctx, recs)
		rep.Indexed = sr.Upserted
		if err != nil {
			return rep, err
		}
		lg.Info("indexed plays and removed everything else", zap.Int("plays", sr.Records))
	}
	return rep, nil
}

// normalizer overlays the cached hero list from a previous extract run.
func (s *Service) normalizer(ctx context.Context) (*heroes.Normalizer, error) {
	if s.Store == nil {
		return heroes.New(), nil
	}
	c, err := heroes.LoadCatalog(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	return heroes.WithCatalog(c), nil
}

// extractNames saves the distinct hero and villain names, sorted.
func (s *Service) extractNames(ctx context.Context, norm *heroes.Normalizer, recs []plays.PlayRecord) (int, int, error) {
	if s.Store == nil {
		return 0, 0, errors.New("extract_names needs a cache store")
	}
	hs := map[string]bool{}
	vs := map[string]bool{}
	for _, r := range recs {
		for _, h := range []string{r.Hero1, r.Hero2} {
			if h != "" && !norm.IsMultiHero(h) {
				hs[h] = true
			}
		}
		if r.Villain != "" {
			vs[r.Villain] = true
		}
	}
	heroNames, villainNames := sortedKeys(hs), sortedKeys(vs)
	if err := s.Store.Save(ctx, cache.HeroNamesKey, heroNames); err != nil {
		return 0, 0, fmt.Errorf("save hero names: %w", err)
	}
	if err := s.Store.Save(ctx, cache.VillainNamesKey, villainNames); err != nil {
		return 0, 0, fmt.Errorf("save villain names: %w", err)
	}
	logging.OrNop(s.Log).Info("cached names", zap.Int("heroes", len(heroNames)), zap.Int("villains", len(villainNames)))
	return len(heroNames), len(villainNames), nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func logTally(lg *zap.Logger, t *tally.Tally) {
	for _, v := range t.RankedVillains() {
		fields := []zap.Field{zap.String("villain", v.Villain), zap.Int("plays", v.Plays), zap.Int("wins", v.Wins)}
		for i, h := range t.RankedHeroes(v.Villain) {
			if i == 3 {
				break
			}
			fields = append(fields, zap.Int(h.Hero, h.Count))
		}
		lg.Info("villain tally", fields...)
	}
}

// WriteStats prints the villain and hero summary tables.
func WriteStats(w io.Writer, t *tally.Tally) error {
	s := t.Summary()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "VILLAIN\tPLAYS\tWINS\tWIN %%\tDIFFICULTY\tTOP HEROES\n")
	for _, v := range s.Villains {
		var top []string
		for i, h := range t.RankedHeroes(v.Name) {
			if i == 3 {
				break
			}
			top = append(top, fmt.Sprintf("%s (%d)", h.Hero, h.Count))
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%s\t%s\n", v.Name, v.Plays, v.Wins, v.WinRate, v.Difficulty, strings.Join(top, ", "))
	}
	fmt.Fprintf(tw, "\nHERO\tPLAYS\tWINS\tWIN %%\t\t\n")
	for _, h := range s.Heroes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t\t\n", h.Name, h.Plays, h.Wins, h.WinRate)
	}
	rate := 0.0
	if s.Plays > 0 {
		rate = float64(s.Wins) / float64(s.Plays) * 100
	}
	fmt.Fprintf(tw, "\nTOTAL\t%d\t%d\t%.1f\t\t\n", s.Plays, s.Wins, rate)
	return tw.Flush()
}
