package cardart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browseHTML = `<html><body>
<nav><a href="/">Home</a><a href="/category/heroes/">Heroes</a></nav>
<a href="#top">top</a>
<a href="mailto:x@example.com">mail</a>
<a href="https://elsewhere.example/rhino/">Rhino elsewhere</a>
<a href="/rhino/?ref=nav#gallery">Rhino</a>
<a href="/rhino/">Rhino again</a>
<a href="../spider-woman/"><img src="sw.jpg" alt="Spider-Woman"></a>
<a href="/core-set-2/">Core Set</a>
<a href="/tag/marauders/">tag</a>
<!-- <a href="/klaw/">Klaw</a> -->
<a href="/the-once-and-future-kang/">Kang</a>
</body></html>`

func TestCandidateLinks(t *testing.T) {
	links, err := CandidateLinks(browseHTML, DefaultBrowseURL)
	require.NoError(t, err)

	want := []Link{
		{URL: site + "rhino/", Text: "Rhino"},
		{URL: site + "spider-woman/", Text: "Spider-Woman"},
		{URL: site + "klaw/", Text: "Klaw"},
		{URL: site + "the-once-and-future-kang/", Text: "Kang"},
	}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		subject string
		link    Link
		want    int
	}{
		{"Spider-Woman", Link{URL: site + "spider-woman/", Text: "Jessica Drew"}, ScoreSlug},
		{"Ms. Marvel", Link{URL: site + "kamala/", Text: "Ms. Marvel"}, ScoreText},
		{"Doctor Strange", Link{URL: site + "strange-doctor/", Text: ""}, ScoreWordSet},
		{"Thor", Link{URL: site + "thor-odinson/", Text: ""}, ScoreSubset},
		{"Hulk", Link{URL: site + "shehulk/", Text: ""}, ScoreSubstring},
		{"Hulk", Link{URL: site + "rhino/", Text: "Rhino"}, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Score(tc.subject, tc.link), "%s vs %s", tc.subject, tc.link.URL)
	}
}

func TestBestCandidate_TiesKeepFirstSeen(t *testing.T) {
	links := []Link{
		{URL: site + "thor-odinson/"},
		{URL: site + "a/venom/"},
		{URL: site + "venom/"},
	}
	best, score, ok := BestCandidate("Venom", links)
	require.True(t, ok)
	assert.Equal(t, ScoreSlug, score)
	assert.Equal(t, site+"a/venom/", best.URL)

	_, _, ok = BestCandidate("Gamora", links)
	assert.False(t, ok)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ms-marvel", Slugify("Ms. Marvel"))
	assert.Equal(t, "spider-man", Slugify("Spider-Man"))
	assert.Equal(t, "star-lord", Slugify("Star-Lord "))
	assert.Equal(t, "galaxys-most-wanted", Slugify("Galaxy's Most Wanted"))
}
