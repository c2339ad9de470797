package cardart

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/internal/web"
)

// Kind selects the source tables and aspect band for a subject.
type Kind int

const (
	Hero Kind = iota
	Villain
)

func (k Kind) String() string {
	if k == Villain {
		return "villain"
	}
	return "hero"
}

// Fetcher is the slice of web.Fetcher the locator needs.
type Fetcher interface {
	Get(ctx context.Context, url, referer string) (*web.Response, error)
}

// Result is the located art for one subject.
type Result struct {
	Subject           string     `json:"subject"`
	PrimaryImageURL   string     `json:"image,omitempty"`
	SecondaryImageURL string     `json:"alter_ego_image,omitempty"`
	Reason            string     `json:"reason"`
	SourceURL         string     `json:"source_url,omitempty"`
	Confidence        Confidence `json:"confidence,omitempty"`
	TriedURLs         []string   `json:"tried_urls,omitempty"`
}

func (r Result) Matched() bool { return r.PrimaryImageURL != "" }

// Summary counts the outcome of a LocateAll run.
type Summary struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

type Options struct {
	BrowseURL string
	OCR       TextReader
	Logger    *zap.Logger
}

type Locator struct {
	fetch     Fetcher
	pair      *Disambiguator
	log       *zap.Logger
	browseURL string

	dims map[string][2]int
}

func NewLocator(f Fetcher, o Options) *Locator {
	if o.BrowseURL == "" {
		o.BrowseURL = DefaultBrowseURL
	}
	lg := logging.OrNop(o.Logger)
	return &Locator{
		fetch:     f,
		pair:      NewDisambiguator(o.OCR, lg),
		log:       lg,
		browseURL: o.BrowseURL,
		dims:      map[string][2]int{},
	}
}

// LocateAll fetches the browse index once and locates each subject in
// order. A failed index fetch only removes that source.
func (l *Locator) LocateAll(ctx context.Context, kind Kind, subjects []string) (map[string]Result, Summary) {
	var links []Link
	if resp, err := l.fetch.Get(ctx, l.browseURL, ""); err != nil {
		l.log.Warn("browse index unavailable", zap.String("url", l.browseURL), zap.Error(err))
	} else if links, err = CandidateLinks(string(resp.Body), l.browseURL); err != nil {
		l.log.Warn("browse index unparsable", zap.Error(err))
	}

	out := make(map[string]Result, len(subjects))
	var sum Summary
	for _, s := range subjects {
		if ctx.Err() != nil {
			break
		}
		if _, dup := out[s]; dup {
			continue
		}
		r := l.Locate(ctx, kind, s, links)
		out[s] = r
		sum.Total++
		if r.Matched() {
			sum.Matched++
			l.log.Info("✓ FOUND", zap.String(kind.String(), s), zap.String("image", r.PrimaryImageURL), zap.String("source", r.SourceURL))
		} else {
			sum.Unmatched++
			l.log.Info("✗ NOT FOUND", zap.String(kind.String(), s), zap.String("reason", r.Reason))
		}
	}
	l.log.Info("card art summary",
		zap.String("kind", kind.String()),
		zap.Int("total", sum.Total),
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched))
	return out, sum
}

// Locate tries the dedicated page, the best index candidate and then the
// bundle pages. links may be nil.
func (l *Locator) Locate(ctx context.Context, kind Kind, subject string, links []Link) Result {
	res := Result{Subject: subject}
	var reasons []string
	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	tried := map[string]bool{}
	tryPage := func(u, why string) bool {
		if u == "" || tried[u] {
			return false
		}
		tried[u] = true
		res.TriedURLs = append(res.TriedURLs, u)
		ok, reason := l.fromGallery(ctx, kind, u, &res)
		if ok {
			res.Reason = why
			return true
		}
		fail("%s: %s", u, reason)
		return false
	}

	if u, ok := l.dedicatedPage(kind, subject); ok && tryPage(u, "dedicated page") {
		return res
	}

	if len(links) > 0 {
		name := subject
		if kind == Villain {
			name = NormalizeVillainName(subject)
		}
		if best, score, ok := BestCandidate(name, links); ok {
			if tryPage(best.URL, fmt.Sprintf("index candidate (score %d)", score)) {
				return res
			}
		} else {
			fail("no index candidate")
		}
	}

	bundles, band, terms := HeroBundleURLs, HeroBand, []string{subject}
	if kind == Villain {
		bundles, band, terms = VillainBundleURLs, VillainBand, SearchTerms(subject)
	}
	for _, u := range bundles {
		if ctx.Err() != nil {
			fail("cancelled")
			break
		}
		res.TriedURLs = append(res.TriedURLs, u)
		if ok, reason := l.fromBundle(ctx, u, terms, band, &res); ok {
			return res
		} else if reason != "" {
			fail("%s: %s", u, reason)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no source matched")
	}
	res.Reason = strings.Join(reasons, "; ")
	return res
}

func (l *Locator) dedicatedPage(kind Kind, subject string) (string, bool) {
	if kind == Villain {
		return KnownVillainPage(subject)
	}
	u, ok := HeroPages[subject]
	return u, ok
}

// fromGallery fills res from a page gallery. Two hero images are
// disambiguated; villains take the first.
func (l *Locator) fromGallery(ctx context.Context, kind Kind, pageURL string, res *Result) (bool, string) {
	resp, err := l.fetch.Get(ctx, pageURL, l.browseURL)
	if err != nil {
		l.log.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return false, "fetch failed"
	}
	imgs, err := GalleryImages(string(resp.Body))
	if err != nil {
		return false, "unparsable page"
	}
	if len(imgs) == 0 {
		return false, "no gallery"
	}
	imgs = resolveAll(pageURL, imgs)

	res.SourceURL = pageURL
	if kind == Villain || len(imgs) == 1 {
		res.PrimaryImageURL = imgs[0]
		return true, ""
	}
	a := Candidate{URL: imgs[0]}
	b := Candidate{URL: imgs[1]}
	if l.pair.ocr != nil {
		a.Data = l.imageBytes(ctx, a.URL, pageURL)
		b.Data = l.imageBytes(ctx, b.URL, pageURL)
	}
	p := l.pair.Pair(ctx, a, b)
	res.PrimaryImageURL = p.HeroImage
	res.SecondaryImageURL = p.AlterEgoImage
	res.Confidence = p.Confidence
	return true, ""
}

// fromBundle takes the first in-band image after a heading naming the
// subject. An empty reason means the page has no such heading.
func (l *Locator) fromBundle(ctx context.Context, pageURL string, terms []string, band Band, res *Result) (bool, string) {
	resp, err := l.fetch.Get(ctx, pageURL, l.browseURL)
	if err != nil {
		l.log.Debug("bundle fetch failed", zap.String("url", pageURL), zap.Error(err))
		return false, "fetch failed"
	}
	h, imgs, err := SectionImages(string(resp.Body), terms)
	if err != nil {
		return false, "unparsable page"
	}
	if h.Text == "" && h.ID == "" {
		return false, ""
	}
	imgs = resolveAll(pageURL, imgs)
	for _, u := range imgs {
		w, ht, ok := l.dimensions(ctx, u, pageURL)
		if !ok {
			continue
		}
		if r := Ratio(w, ht); band.Contains(r) {
			res.PrimaryImageURL = u
			res.SourceURL = pageURL
			res.Reason = fmt.Sprintf("bundle section %q (ratio %.2f)", h.Text, r)
			return true, ""
		}
	}
	return false, fmt.Sprintf("section %q has no portrait image in %.2f-%.2f", h.Text, band.Min, band.Max)
}

func (l *Locator) dimensions(ctx context.Context, u, referer string) (int, int, bool) {
	if d, ok := l.dims[u]; ok {
		return d[0], d[1], d[1] > 0
	}
	data := l.imageBytes(ctx, u, referer)
	w, h := 0, 0
	if data != nil {
		var err error
		if w, h, err = Dimensions(data); err != nil {
			l.log.Debug("image header unreadable", zap.String("url", u), zap.Error(err))
		}
	}
	l.dims[u] = [2]int{w, h}
	return w, h, h > 0
}

// imageBytes returns nil for fetch failures and non-image responses.
func (l *Locator) imageBytes(ctx context.Context, u, referer string) []byte {
	resp, err := l.fetch.Get(ctx, u, referer)
	if err != nil {
		l.log.Debug("image fetch failed", zap.String("url", u), zap.Error(err))
		return nil
	}
	if !strings.HasPrefix(strings.ToLower(resp.ContentType), "image/") {
		l.log.Debug("not an image", zap.String("url", u), zap.String("content_type", resp.ContentType))
		return nil
	}
	return resp.Body
}

func resolveAll(base string, refs []string) []string {
	b, err := url.Parse(base)
	if err != nil {
		return refs
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if u, err := url.Parse(r); err == nil {
			r = b.ResolveReference(u).String()
		}
		out = append(out, r)
	}
	return out
}
