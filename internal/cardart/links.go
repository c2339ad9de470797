package cardart

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/josephcasey/mybgg/internal/heroes"
)

// Link is a candidate subject page from the browse index.
type Link struct {
	URL  string
	Text string
}

// Slug is the last path segment, lower case.
func (l Link) Slug() string {
	u, err := url.Parse(l.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Base(strings.TrimRight(u.Path, "/")))
}

// path fragments that never lead to a subject page
var excludedPaths = []string{
	"/category/", "/tag/", "/page/", "/author/", "/browse",
	"/wp-content/", "/wp-admin", "/wp-login", "/wp-json", "/feed",
	"/about", "/contact", "/privacy", "/cart", "/account", "/search",
}

// excludedSlugs are expansion overview pages.
var excludedSlugs = func() map[string]bool {
	m := map[string]bool{}
	for _, u := range HeroBundleURLs {
		m[Link{URL: u}.Slug()] = true
	}
	for _, s := range []string{"heroes", "villains", "scenarios", "expansions", "packs", "modular-sets"} {
		m[s] = true
	}
	return m
}()

// CandidateLinks extracts subject page links from an index page. Links are
// made absolute against base; fragments, off-site and excluded pages are
// dropped and the rest deduplicated by URL, first occurrence wins.
func CandidateLinks(indexHTML string, base string) ([]Link, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base %q: %w", base, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(uncomment.Replace(indexHTML)))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	var out []Link
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), baseURL.Hostname()) {
			return
		}
		abs.Fragment = ""
		abs.RawQuery = ""
		if excluded(abs.Path) {
			return
		}
		u := abs.String()
		if seen[u] {
			return
		}
		seen[u] = true

		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = strings.TrimSpace(a.Find("img").AttrOr("alt", ""))
		}
		out = append(out, Link{URL: u, Text: text})
	})
	return out, nil
}

func excluded(p string) bool {
	lp := strings.ToLower(p)
	if lp == "" || lp == "/" {
		return true
	}
	for _, x := range excludedPaths {
		if strings.Contains(lp, x) {
			return true
		}
	}
	return excludedSlugs[path.Base(strings.TrimRight(lp, "/"))]
}

// Scores for BestCandidate, strongest first.
const (
	ScoreSlug      = 100
	ScoreText      = 80
	ScoreWordSet   = 60
	ScoreSubset    = 40
	ScoreSubstring = 20
)

// Score rates how well link names subject; 0 means no match.
func Score(subject string, l Link) int {
	subjSlug := Slugify(subject)
	if subjSlug == "" {
		return 0
	}
	slug := l.Slug()
	if slug == subjSlug {
		return ScoreSlug
	}
	if heroes.Fold(l.Text) == heroes.Fold(subject) {
		return ScoreText
	}
	sw := words(subject)
	best := 0
	for _, cand := range []string{slug, l.Text} {
		cw := words(cand)
		switch {
		case len(cw) > 0 && sameSet(sw, cw):
			return ScoreWordSet
		case len(cw) > 0 && subset(sw, cw):
			best = max(best, ScoreSubset)
		case strings.Contains(alnum(cand), alnum(subject)):
			best = max(best, ScoreSubstring)
		}
	}
	return best
}

// BestCandidate picks the highest scoring link. Equal scores keep the
// earlier link.
func BestCandidate(subject string, links []Link) (Link, int, bool) {
	var (
		best      Link
		bestScore int
	)
	for _, l := range links {
		if s := Score(subject, l); s > bestScore {
			best, bestScore = l, s
		}
	}
	return best, bestScore, bestScore > 0
}

// Slugify folds s to the wiki's slug form.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range heroes.Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if r == '.' || r == '\'' {
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func words(s string) []string {
	return strings.FieldsFunc(heroes.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range heroes.Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sameSet(a, b []string) bool {
	return subset(a, b) && subset(b, a)
}

func subset(a, b []string) bool {
	if len(a) == 0 {
		return false
	}
	have := map[string]bool{}
	for _, w := range b {
		have[w] = true
	}
	for _, w := range a {
		if !have[w] {
			return false
		}
	}
	return true
}

// uncomment unwraps commented-out markup so goquery sees it.
var uncomment = strings.NewReplacer("<!--", "", "-->", "")
