package cardart

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const gallerySelector = ".tiled-gallery__gallery, .tiled-gallery_gallery, .wp-block-gallery"

// headingScanLimit bounds how many siblings after a heading are searched.
const headingScanLimit = 20

// GalleryImages returns up to two image URLs from the first gallery on a
// page, the full-size file preferred over the thumbnail.
func GalleryImages(pageHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(uncomment.Replace(pageHTML)))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	gallery := doc.Find(gallerySelector).First()
	if gallery.Length() == 0 {
		return nil, nil
	}
	var out []string
	seen := map[string]bool{}
	gallery.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if u := imageURL(img); u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
		return len(out) < 2
	})
	return out, nil
}

// imageURL prefers data-orig-file, then src, skipping inline placeholders.
func imageURL(img *goquery.Selection) string {
	for _, attr := range []string{"data-orig-file", "src", "data-src", "data-lazy-src"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// Heading is a section title that matched a subject.
type Heading struct {
	ID   string
	Text string
}

// SectionImages finds the first h2 whose text or id contains one of terms
// and returns image URLs from the sibling elements that follow it, in
// document order.
func SectionImages(pageHTML string, terms []string) (Heading, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(uncomment.Replace(pageHTML)))
	if err != nil {
		return Heading{}, nil, fmt.Errorf("parse page: %w", err)
	}

	var found *goquery.Selection
	var h Heading
	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		id := s.AttrOr("id", "")
		if headingMatches(text, id, terms) {
			found = s
			h = Heading{ID: id, Text: text}
			return false
		}
		return true
	})
	if found == nil {
		return Heading{}, nil, nil
	}

	var out []string
	seen := map[string]bool{}
	add := func(img *goquery.Selection) {
		if u := imageURL(img); u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	found.NextAll().EachWithBreak(func(i int, sib *goquery.Selection) bool {
		if i >= headingScanLimit {
			return false
		}
		if goquery.NodeName(sib) == "img" {
			add(sib)
		}
		sib.Find("img").Each(func(_ int, img *goquery.Selection) { add(img) })
		return true
	})
	return h, out, nil
}

// headingMatches compares with and without punctuation, so "Spider-Man"
// finds "spiderman" ids and "sinister six" finds "Sinister Six".
func headingMatches(text, id string, terms []string) bool {
	lt, lid := strings.ToLower(text), strings.ToLower(id)
	nt, nid := alnum(text), alnum(id)
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if strings.Contains(lt, t) || (lid != "" && strings.Contains(lid, t)) {
			return true
		}
		if nt2 := alnum(t); len(nt2) >= 3 && (strings.Contains(nt, nt2) || strings.Contains(nid, nt2)) {
			return true
		}
	}
	return false
}
