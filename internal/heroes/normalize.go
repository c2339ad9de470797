// Package heroes turns the free-text hero field recorded with a play into a
// canonical hero name and an optional aspect.
package heroes

import (
	"regexp"
	"sort"
	"strings"
)

// Aspects in their canonical spelling.
var Aspects = []string{"Aggression", "Leadership", "Protection", "Justice", "Pool"}

type aspectSuffix struct {
	text   string
	aspect string
	re     *regexp.Regexp
}

// Truncations and misspellings seen in the BGG color field, which cuts
// long values short.
var aspectVariants = map[string]string{
	"Agression": "Aggression", "Aggresion": "Aggression", "Aggressio": "Aggression",
	"Aggressi": "Aggression", "Aggress": "Aggression", "Aggres": "Aggression", "Aggro": "Aggression",
	"Leadershi": "Leadership", "Leadersh": "Leadership", "Leaders": "Leadership",
	"Leadrship": "Leadership", "Leader": "Leadership",
	"Protectio": "Protection", "Protecti": "Protection", "Protect": "Protection",
	"Protecton": "Protection", "Protec": "Protection",
	"Justic": "Justice", "Justce": "Justice",
}

var (
	teamPrefixRe = regexp.MustCompile(`(?i)^\s*team\s*\d*\s*[-:]\s*`)
	trailingCCRe = regexp.MustCompile(`(?i)\s+cc$`)
	spaceRe      = regexp.MustCompile(`\s+`)

	// full names first, then variants longest first
	aspectSuffixes = buildSuffixes()
	dualAspectRe   = buildDualAspect()
)

func buildDualAspect() *regexp.Regexp {
	alts := make([]string, len(aspectSuffixes))
	for i, suf := range aspectSuffixes {
		alts[i] = regexp.QuoteMeta(suf.text)
	}
	a := "(" + strings.Join(alts, "|") + ")"
	return regexp.MustCompile(`(?i)\s+` + a + `\s*/\s*` + a + `$`)
}

func buildSuffixes() []aspectSuffix {
	out := make([]aspectSuffix, 0, len(Aspects)+len(aspectVariants))
	for _, a := range Aspects {
		out = append(out, aspectSuffix{text: a, aspect: a})
	}
	var variants []aspectSuffix
	for v, a := range aspectVariants {
		variants = append(variants, aspectSuffix{text: v, aspect: a})
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i].text) != len(variants[j].text) {
			return len(variants[i].text) > len(variants[j].text)
		}
		return variants[i].text < variants[j].text
	})
	out = append(out, variants...)
	// "Thor Aggression", "Thor - Aggression", "Thor-Aggression", "Thor (Aggression)"
	for i := range out {
		out[i].re = regexp.MustCompile(`(?i)[\s\-:(]+` + regexp.QuoteMeta(out[i].text) + `\)?$`)
	}
	return out
}

// Aliases maps informal spellings (lower case) to canonical names.
var Aliases = map[string]string{
	"spidey":        "Spider-Man",
	"spiderman":     "Spider-Man",
	"spider man":    "Spider-Man",
	"peter parker":  "Spider-Man",
	"cap":           "Captain America",
	"captain am":    "Captain America",
	"captain ameri": "Captain America",
	"cap america":   "Captain America",
	"cap marvel":    "Captain Marvel",
	"captain marv":  "Captain Marvel",
	"carol danvers": "Captain Marvel",
	"dr strange":    "Doctor Strange",
	"dr. strange":   "Doctor Strange",
	"doc strange":   "Doctor Strange",
	"ms marvel":     "Ms. Marvel",
	"ms. marv":      "Ms. Marvel",
	"spider woman":  "Spider-Woman",
	"spiderwoman":   "Spider-Woman",
	"ant man":       "Ant-Man",
	"antman":        "Ant-Man",
	"star lord":     "Star-Lord",
	"starlord":      "Star-Lord",
	"rocket":        "Rocket Raccoon",
	"miles":         "Miles Morales",
	"she hulk":      "She-Hulk",
	"shehulk":       "She-Hulk",
	"scarlet":       "Scarlet Witch",
	"wanda":         "Scarlet Witch",
	"winter sold":   "Winter Soldier",
	"bucky":         "Winter Soldier",
	"spider ham":    "Spider-Ham",
	"spiderham":     "Spider-Ham",
	"x23":           "X-23",
	"x 23":          "X-23",
	"iron heart":    "Ironheart",
	"quicksilv":     "Quicksilver",
	"nightcrawl":    "Nightcrawler",
	"war mach":      "War Machine",
	"black pant":    "Black Panther",
	"spdr":          "SP//dr",
	"sp/dr":         "SP//dr",
	"ghost spider":  "Ghost-Spider",
	"spider gwen":   "Ghost-Spider",
	"gwen":          "Ghost-Spider",
	"adam":          "Adam Warlock",
	"kitty pryde":   "Shadowcat",
	"jessica":       "Jessica Jones",
	"fury":          "Nick Fury",
}

// Part is one hero in a decomposed team string.
type Part struct {
	Hero   string
	Aspect string
}

// Normalizer resolves raw hero strings against a Catalog.
type Normalizer struct {
	catalog *Catalog
}

// New builds a Normalizer over the builtin catalog plus any extra names.
func New(extra ...string) *Normalizer {
	return &Normalizer{catalog: NewCatalog(Builtin, extra)}
}

// WithCatalog builds a Normalizer over c, typically from LoadCatalog.
func WithCatalog(c *Catalog) *Normalizer {
	return &Normalizer{catalog: c}
}

// Normalize returns the canonical hero and any detected aspect.
func (n *Normalizer) Normalize(raw string) (hero, aspect string) {
	s := clean(teamPrefixRe.ReplaceAllString(raw, ""))

	if m := dualAspectRe.FindStringSubmatchIndex(s); m != nil {
		base := strings.TrimSpace(s[:m[0]])
		if n.isDualAspect(base) {
			a1, a2 := canonicalAspect(s[m[2]:m[3]]), canonicalAspect(s[m[4]:m[5]])
			return n.resolve(base), a1 + "/" + a2
		}
	}

	s, aspect = stripAspect(s)
	s = strings.TrimSpace(trailingCCRe.ReplaceAllString(s, ""))
	if aspect == "" {
		// "Iron Man Leadership CC"
		s, aspect = stripAspect(s)
	}
	return n.resolve(s), aspect
}

func stripAspect(s string) (string, string) {
	for _, suf := range aspectSuffixes {
		if loc := suf.re.FindStringIndex(s); loc != nil {
			return strings.TrimSpace(strings.TrimRight(s[:loc[0]], " -:(")), suf.aspect
		}
	}
	return s, ""
}

func (n *Normalizer) resolve(s string) string {
	if s == "" {
		return ""
	}
	if canon, ok := Aliases[strings.ToLower(s)]; ok {
		return canon
	}
	if canon, ok := n.catalog.Lookup(s); ok {
		return canon
	}
	if len([]rune(s)) <= 3 {
		if canon, ok := n.catalog.Prefix(s); ok {
			return canon
		}
	}
	return s
}

func (n *Normalizer) isDualAspect(hero string) bool {
	h := n.resolve(hero)
	for _, d := range DualAspect {
		if strings.EqualFold(h, d) {
			return true
		}
	}
	return false
}

// separators in the order they are tried when splitting a team
var separators = []string{" / ", "/", " & ", ", ", ",", " and "}

// IsMultiHero reports whether raw names more than one hero. Canonical names
// that contain a separator and dual-aspect heroes are single heroes.
func (n *Normalizer) IsMultiHero(raw string) bool {
	hero, _ := n.Normalize(raw)
	if hero == "" {
		return false
	}
	if _, ok := n.catalog.Lookup(hero); ok {
		return false
	}
	return firstSeparator(hero) != ""
}

// Split decomposes a team string. Parts that reduce to nothing or to a bare
// aspect are dropped. A single hero yields one part.
func (n *Normalizer) Split(raw string) []Part {
	s := clean(teamPrefixRe.ReplaceAllString(raw, ""))
	if !n.IsMultiHero(s) {
		h, a := n.Normalize(s)
		if h == "" || isAspect(h) {
			return nil
		}
		return []Part{{Hero: h, Aspect: a}}
	}
	sep := firstSeparator(s)
	if sep == "" {
		h, a := n.Normalize(s)
		return []Part{{Hero: h, Aspect: a}}
	}
	var out []Part
	for _, piece := range splitSeparator(s, sep) {
		out = append(out, n.Split(piece)...)
	}
	return out
}

// splitSeparator splits on sep but leaves canonical names like SP//dr whole.
func splitSeparator(s, sep string) []string {
	if sep != "/" {
		return strings.Split(s, sep)
	}
	const guard = "\x00"
	s = strings.ReplaceAll(s, "//", guard)
	parts := strings.Split(s, "/")
	for i := range parts {
		parts[i] = strings.ReplaceAll(parts[i], guard, "//")
	}
	return parts
}

func firstSeparator(s string) string {
	for _, sep := range separators {
		if sep == "/" {
			if strings.Contains(strings.ReplaceAll(s, "//", ""), "/") {
				return sep
			}
			continue
		}
		if strings.Contains(s, sep) {
			return sep
		}
	}
	return ""
}

func isAspect(s string) bool {
	for _, a := range Aspects {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	_, ok := lookupVariant(s)
	return ok
}

func canonicalAspect(s string) string {
	for _, a := range Aspects {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	if a, ok := lookupVariant(s); ok {
		return a
	}
	return s
}

func lookupVariant(s string) (string, bool) {
	for v, a := range aspectVariants {
		if strings.EqualFold(s, v) {
			return a, true
		}
	}
	return "", false
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
