package cardart

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
)

// Confidence tags how a hero/alter-ego pair was decided.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidencePattern Confidence = "pattern"
	ConfidenceLow     Confidence = "low"
)

// TextReader extracts printed text from an image.
type TextReader interface {
	ReadText(ctx context.Context, img []byte, filename string) (string, error)
}

// Candidate is a gallery image with its bytes, when they were fetched.
type Candidate struct {
	URL  string
	Data []byte
}

// Pair is the outcome of telling hero and alter-ego sides apart.
type Pair struct {
	HeroImage     string     `json:"hero_image"`
	AlterEgoImage string     `json:"alter_ego_image"`
	Confidence    Confidence `json:"confidence"`
}

// Strategy decides which of two images is the hero side.
type Strategy func(ctx context.Context, a, b Candidate) (heroFirst bool, ok bool)

// Disambiguator runs strategies in order; positional order is the last
// resort and always answers.
type Disambiguator struct {
	ocr TextReader
	log *zap.Logger
}

func NewDisambiguator(ocr TextReader, lg *zap.Logger) *Disambiguator {
	return &Disambiguator{ocr: ocr, log: logging.OrNop(lg)}
}

func (d *Disambiguator) Pair(ctx context.Context, a, b Candidate) Pair {
	chain := []struct {
		conf Confidence
		run  Strategy
	}{
		{ConfidenceHigh, d.byOCR},
		{ConfidencePattern, byFilename},
	}
	for _, s := range chain {
		if heroFirst, ok := s.run(ctx, a, b); ok {
			return orient(a, b, heroFirst, s.conf)
		}
	}
	return orient(a, b, true, ConfidenceLow)
}

func orient(a, b Candidate, heroFirst bool, c Confidence) Pair {
	if heroFirst {
		return Pair{HeroImage: a.URL, AlterEgoImage: b.URL, Confidence: c}
	}
	return Pair{HeroImage: b.URL, AlterEgoImage: a.URL, Confidence: c}
}

var heroWordRe = regexp.MustCompile(`(?i)\bhero\b`)

// byOCR answers only when exactly one image reads "HERO".
func (d *Disambiguator) byOCR(ctx context.Context, a, b Candidate) (bool, bool) {
	if d.ocr == nil || len(a.Data) == 0 || len(b.Data) == 0 {
		return false, false
	}
	ha, errA := d.readsHero(ctx, a)
	hb, errB := d.readsHero(ctx, b)
	if errA != nil || errB != nil {
		d.log.Debug("ocr unavailable", zap.NamedError("first", errA), zap.NamedError("second", errB))
		return false, false
	}
	if ha == hb {
		return false, false
	}
	return ha, true
}

func (d *Disambiguator) readsHero(ctx context.Context, c Candidate) (bool, error) {
	crops, err := Crop(c.Data, TypeLineRegions)
	if err != nil {
		return false, err
	}
	var lastErr error
	read := 0
	for i, crop := range crops {
		text, err := d.ocr.ReadText(ctx, crop, fmt.Sprintf("%s-%d.jpg", fileStem(c.URL), i))
		if err != nil {
			lastErr = err
			continue
		}
		read++
		// "ALTER-EGO" never contains the word on its own
		if heroWordRe.MatchString(text) {
			d.log.Debug("ocr hero", zap.String("url", c.URL), zap.String("text", strings.TrimSpace(text)))
			return true, nil
		}
	}
	if read == 0 && lastErr != nil {
		return false, lastErr
	}
	if read == 0 {
		return false, errors.New("no crops read")
	}
	return false, nil
}

var (
	heroSideRe     = regexp.MustCompile(`a$`)
	alterEgoSideRe = regexp.MustCompile(`b$`)
)

// byFilename relies on the wiki naming the hero side "...a" and the
// alter-ego side "...b".
func byFilename(_ context.Context, a, b Candidate) (bool, bool) {
	sa, sb := fileStem(a.URL), fileStem(b.URL)
	switch {
	case heroSideRe.MatchString(sa) && alterEgoSideRe.MatchString(sb):
		return true, true
	case alterEgoSideRe.MatchString(sa) && heroSideRe.MatchString(sb):
		return false, true
	}
	return false, false
}
