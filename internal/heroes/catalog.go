package heroes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/josephcasey/mybgg/internal/cache"
)

// Builtin is the canonical hero list, in release order. A cached list from
// a previous extract run is layered on top with Catalog.Merge.
var Builtin = []string{
	"Spider-Man", "Captain Marvel", "She-Hulk", "Iron Man", "Black Panther",
	"Captain America", "Ms. Marvel", "Thor", "Black Widow", "Doctor Strange",
	"Hulk", "Hawkeye", "Spider-Woman", "Ant-Man", "Wasp", "Quicksilver",
	"Scarlet Witch", "Groot", "Rocket Raccoon", "Star-Lord", "Gamora", "Drax",
	"Venom", "Adam Warlock", "Spectrum", "Nebula", "War Machine", "Valkyrie",
	"Vision", "Ghost-Spider", "Spider-Ham", "SP//dr", "Miles Morales",
	"Nova", "Ironheart", "Silk", "Colossus", "Shadowcat", "Cyclops", "Phoenix",
	"Storm", "Gambit", "Rogue", "Wolverine", "Cable", "Domino", "Psylocke",
	"Angel", "X-23", "Deadpool", "Bishop", "Magik", "Iceman", "Jubilee",
	"Nightcrawler", "Magneto", "Maria Hill", "Nick Fury",
	"Agent 13", "Winter Soldier", "Shuri", "Jessica Jones", "Daredevil",
}

// DualAspect heroes may list two aspects without being a team.
var DualAspect = []string{"Spider-Woman", "Adam Warlock"}

// Catalog is an ordered, de-duplicated set of canonical hero names.
type Catalog struct {
	names []string
	byKey map[string]string
}

func NewCatalog(names ...[]string) *Catalog {
	c := &Catalog{byKey: map[string]string{}}
	for _, list := range names {
		c.Merge(list)
	}
	return c
}

// LoadCatalog overlays the hero list cached by a previous run on Builtin.
// A store without the document yields the builtin catalog.
func LoadCatalog(ctx context.Context, s cache.Store) (*Catalog, error) {
	var cached []string
	if err := s.Load(ctx, cache.HeroNamesKey, &cached); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("load hero cache: %w", err)
	}
	return NewCatalog(Builtin, cached), nil
}

// Merge appends names not already present, keeping first-seen order.
func (c *Catalog) Merge(names []string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		k := Fold(n)
		if _, ok := c.byKey[k]; ok {
			continue
		}
		c.byKey[k] = n
		c.names = append(c.names, n)
	}
}

// Names returns a copy of the catalog in order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Lookup returns the canonical spelling of name, ignoring case and accents.
func (c *Catalog) Lookup(name string) (string, bool) {
	n, ok := c.byKey[Fold(name)]
	return n, ok
}

// Prefix returns the first catalog name starting with frag.
func (c *Catalog) Prefix(frag string) (string, bool) {
	k := Fold(frag)
	if k == "" {
		return "", false
	}
	for _, n := range c.names {
		if strings.HasPrefix(Fold(n), k) {
			return n, true
		}
	}
	return "", false
}

// Fold lowercases s, drops diacritics and trims it.
func Fold(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
