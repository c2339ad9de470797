// Package plays recovers villain, hero and outcome from logged BGG plays.
package plays

import (
	"regexp"
	"strings"
)

// Stage names the matcher that produced a villain.
type Stage int

const (
	StageNone Stage = iota
	StageStrict
	StageDifficulty
	StageTrailing
	StageRaw
)

func (s Stage) String() string {
	switch s {
	case StageStrict:
		return "strict"
	case StageDifficulty:
		return "difficulty"
	case StageTrailing:
		return "trailing"
	case StageRaw:
		return "raw"
	default:
		return "none"
	}
}

// VillainMatch is the cascade result.
type VillainMatch struct {
	Name  string
	Stage Stage
}

// Matcher is one cascade stage.
type Matcher struct {
	Stage Stage
	Match func(comment string) (string, bool)
}

var (
	strictRe     = regexp.MustCompile(`^(.*?\S)\s*\d+\s*/\s*\d+(?:\s|$)`)
	difficultyRe = regexp.MustCompile(`^(.*?\S)\s+[A-Z]\d*(?:/[A-Z]\d*)?(?:\s|$)`)
	leadingVsRe  = regexp.MustCompile(`(?i)^vs\.?\s+`)
	hashtagRe    = regexp.MustCompile(`#\S+`)
	modeWordsRe  = regexp.MustCompile(`(?i)(?:\s+(?:standard|expert|heroic(?:\s*\d+)?))+\s*$`)
)

// Cascade is tried in order; the first stage that matches wins and later
// stages are not consulted.
var Cascade = []Matcher{
	{StageStrict, perLine(strictRe)},
	{StageDifficulty, perLine(difficultyRe)},
	{StageTrailing, trailingFragment},
	{StageRaw, raw},
}

// ParseVillain runs the cascade over a play comment.
func ParseVillain(comment string) VillainMatch {
	for _, m := range Cascade {
		if name, ok := m.Match(comment); ok {
			return VillainMatch{Name: name, Stage: m.Stage}
		}
	}
	return VillainMatch{}
}

// perLine applies re to each meaningful line and returns the first capture.
func perLine(re *regexp.Regexp) func(string) (string, bool) {
	return func(comment string) (string, bool) {
		for _, line := range meaningfulLines(comment) {
			line = leadingVsRe.ReplaceAllString(line, "")
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if name := tidy(modeWordsRe.ReplaceAllString(" "+m[1], "")); name != "" {
				return name, true
			}
		}
		return "", false
	}
}

func trailingFragment(comment string) (string, bool) {
	lines := meaningfulLines(comment)
	if len(lines) == 0 {
		return "", false
	}
	s := strings.TrimSpace(hashtagRe.ReplaceAllString(lines[0], ""))
	s = leadingVsRe.ReplaceAllString(s, "")
	s = " " + s
	s = modeWordsRe.ReplaceAllString(s, "")
	s = tidy(s)
	return s, s != ""
}

func raw(comment string) (string, bool) {
	s := strings.TrimSpace(comment)
	return s, s != ""
}

// meaningfulLines drops blank lines and hashtag-only lines.
func meaningfulLines(comment string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(comment, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func tidy(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "-:,;"))
}
