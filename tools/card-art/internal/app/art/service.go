package art

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/cache"
	"github.com/josephcasey/mybgg/internal/cardart"
	"github.com/josephcasey/mybgg/internal/heroes"
	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/internal/ocr"
	"github.com/josephcasey/mybgg/internal/web"
)

const (
	ModeHeroes   = "heroes"
	ModeVillains = "villains"
	ModeAll      = "all"
)

// Locator is what the service needs from cardart.Locator.
type Locator interface {
	LocateAll(ctx context.Context, kind cardart.Kind, subjects []string) (map[string]cardart.Result, cardart.Summary)
}

// Service looks up card art for the cached hero and villain names and
// writes one result document per kind.
type Service struct {
	Store cache.Store
	// NewLocator returns the locator for a kind, so each kind can pace
	// requests differently.
	NewLocator func(kind cardart.Kind) Locator
	Log        *zap.Logger
}

type Report struct {
	Heroes   *cardart.Summary `json:"heroes,omitempty"`
	Villains *cardart.Summary `json:"villains,omitempty"`
}

func (s *Service) Run(ctx context.Context, mode string) (Report, error) {
	var rep Report
	var kinds []cardart.Kind
	switch mode {
	case ModeHeroes:
		kinds = []cardart.Kind{cardart.Hero}
	case ModeVillains:
		kinds = []cardart.Kind{cardart.Villain}
	case ModeAll:
		kinds = []cardart.Kind{cardart.Hero, cardart.Villain}
	default:
		return rep, fmt.Errorf("unknown mode %q", mode)
	}

	for _, k := range kinds {
		subjects, err := s.subjects(ctx, k)
		if err != nil {
			return rep, err
		}
		results, sum := s.NewLocator(k).LocateAll(ctx, k, subjects)
		if err := s.Store.Save(ctx, resultKey(k), results); err != nil {
			return rep, fmt.Errorf("save %s results: %w", k, err)
		}
		logging.OrNop(s.Log).Info("wrote card art", zap.String("document", resultKey(k)), zap.Int("matched", sum.Matched), zap.Int("unmatched", sum.Unmatched))
		if k == cardart.Hero {
			rep.Heroes = &sum
		} else {
			rep.Villains = &sum
		}
	}
	return rep, nil
}

// subjects lists the names to look up. Heroes are the builtin catalog plus
// the cached names; villains come only from the cache.
func (s *Service) subjects(ctx context.Context, k cardart.Kind) ([]string, error) {
	if k == cardart.Hero {
		c, err := heroes.LoadCatalog(ctx, s.Store)
		if err != nil {
			return nil, err
		}
		return c.Names(), nil
	}
	var names []string
	err := s.Store.Load(ctx, cache.VillainNamesKey, &names)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%s missing, run bgg-sync --mode extract_names first: %w", cache.VillainNamesKey, err)
	}
	if err != nil {
		return nil, err
	}
	return names, nil
}

func resultKey(k cardart.Kind) string {
	if k == cardart.Villain {
		return cache.VillainImagesKey
	}
	return cache.HeroImagesKey
}

// LocatorSettings configure the production locators.
type LocatorSettings struct {
	BrowseURL    string
	HeroDelay    time.Duration
	VillainDelay time.Duration
	OCRKey       string
	OCREndpoint  string
	UseOCR       bool
}

// WebLocators builds locators over a polite fetcher per kind.
func WebLocators(st LocatorSettings, lg *zap.Logger) func(cardart.Kind) Locator {
	var reader cardart.TextReader
	if st.UseOCR && st.OCRKey != "" {
		reader = ocr.New(st.OCREndpoint, st.OCRKey, nil, lg)
	}
	return func(k cardart.Kind) Locator {
		delay := st.HeroDelay
		if k == cardart.Villain {
			delay = st.VillainDelay
		}
		f := web.New(web.Options{Delay: delay, Logger: lg})
		return cardart.NewLocator(f, cardart.Options{BrowseURL: st.BrowseURL, OCR: reader, Logger: lg})
	}
}
