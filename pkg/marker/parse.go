package marker

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// coordPattern matches one coordinate body. Source keys start with a
// letter and contain only letters, digits and underscores; the trailing
// digit run is the index; an optional "p<page>" scopes a page.
const coordPattern = `turn(\d+)([A-Za-z][A-Za-z0-9_]*?)(\d+)(?:p(\d+))?`

var (
	coordRe     = regexp.MustCompile(coordPattern)
	anchorRe    = regexp.MustCompile(Anchor + `\s*` + coordPattern)
	groupRe     = regexp.MustCompile(GroupStart + `(?:\s*` + Anchor + `\s*` + coordPattern + `)+\s*` + GroupEnd)
	highlightRe = regexp.MustCompile(HighlightStart + `(.*?)` + HighlightEnd + `\s*` + Anchor + `\s*` + coordPattern)
	bracketRe   = regexp.MustCompile(BracketOpen + `\s*` + coordPattern + `(?:\s*,\s*` + coordPattern + `)*\s*` + BracketClose)

	stripAnchorRe = regexp.MustCompile(` ?` + Anchor + `\s*` + coordPattern)
	stripGroupRe  = regexp.MustCompile(` ?` + groupRe.String())
	stripBracketRe = regexp.MustCompile(` ?` + bracketRe.String())

	controlReplacer = strings.NewReplacer(
		Anchor, "",
		GroupStart, "",
		GroupEnd, "",
		HighlightStart, "",
		HighlightEnd, "",
		BracketOpen, "",
		BracketClose, "",
	)
)

// Kind distinguishes the marker shapes of the grammar
type Kind string

const (
	KindStandalone Kind = "standalone"
	KindGroup      Kind = "group"
	KindHighlight  Kind = "highlight"
	KindBracket    Kind = "bracket"
)

// Match is one marker occurrence found in answer text. Start/End are
// byte offsets into the scanned string. Coords preserve appearance
// order within the marker.
type Match struct {
	Kind   Kind
	Start  int
	End    int
	Coords []Coordinate

	// Text is the highlighted span, set only for KindHighlight
	Text string
}

// Parse extracts every marker occurrence from generated answer text.
// Plain text interleaved with markers is ignored, and anything that
// does not match the grammar exactly is left alone: Parse never fails.
func Parse(s string) []Match {
	var matches []Match
	var claimed [][2]int

	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && end > c[0] {
				return true
			}
		}
		return false
	}

	claim := func(m Match) {
		matches = append(matches, m)
		claimed = append(claimed, [2]int{m.Start, m.End})
	}

	// Composite shapes are claimed before standalone anchors so the
	// anchors inside them are not reported twice.
	for _, loc := range highlightRe.FindAllStringSubmatchIndex(s, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		coord, ok := coordAt(s, loc, 2)
		if !ok {
			continue
		}
		claim(Match{
			Kind:   KindHighlight,
			Start:  loc[0],
			End:    loc[1],
			Coords: []Coordinate{coord},
			Text:   s[loc[2]:loc[3]],
		})
	}

	for _, loc := range groupRe.FindAllStringIndex(s, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		coords := scanCoords(anchorRe, s[loc[0]:loc[1]])
		if len(coords) == 0 {
			continue
		}
		claim(Match{Kind: KindGroup, Start: loc[0], End: loc[1], Coords: coords})
	}

	for _, loc := range bracketRe.FindAllStringIndex(s, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		coords := scanCoords(coordRe, s[loc[0]:loc[1]])
		if len(coords) == 0 {
			continue
		}
		claim(Match{Kind: KindBracket, Start: loc[0], End: loc[1], Coords: coords})
	}

	for _, loc := range anchorRe.FindAllStringSubmatchIndex(s, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		coord, ok := coordAt(s, loc, 1)
		if !ok {
			continue
		}
		claim(Match{Kind: KindStandalone, Start: loc[0], End: loc[1], Coords: []Coordinate{coord}})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

// Strip removes all marker control tokens from s, keeping highlighted
// spans as plain text. The result is safe for plain-text fallbacks.
func Strip(s string) string {
	s = highlightRe.ReplaceAllString(s, "$1")
	s = stripGroupRe.ReplaceAllString(s, "")
	s = stripBracketRe.ReplaceAllString(s, "")
	s = stripAnchorRe.ReplaceAllString(s, "")
	// Unmatched or malformed tokens are dropped as well; the coordinate
	// text next to them stays, as it is indistinguishable from prose.
	return controlReplacer.Replace(s)
}

// coordAt builds a Coordinate from a submatch index slice, where group
// n is the turn, n+1 the source key, n+2 the index and n+3 the page.
func coordAt(s string, loc []int, group int) (Coordinate, bool) {
	base := group * 2
	if len(loc) < base+8 || loc[base] < 0 {
		return Coordinate{}, false
	}
	turn, err := strconv.Atoi(s[loc[base]:loc[base+1]])
	if err != nil {
		return Coordinate{}, false
	}
	index, err := strconv.Atoi(s[loc[base+4]:loc[base+5]])
	if err != nil {
		return Coordinate{}, false
	}
	c := Coordinate{
		Turn:      turn,
		SourceKey: s[loc[base+2]:loc[base+3]],
		Index:     index,
	}
	if loc[base+6] >= 0 {
		page, err := strconv.Atoi(s[loc[base+6]:loc[base+7]])
		if err != nil {
			return Coordinate{}, false
		}
		c.Page = &page
	}
	return c, true
}

// scanCoords re-scans a composite marker body for every embedded
// coordinate in appearance order. Repeated capture groups only retain
// their last occurrence in Go regexp, hence the second pass.
func scanCoords(re *regexp.Regexp, body string) []Coordinate {
	var coords []Coordinate
	for _, loc := range re.FindAllStringSubmatchIndex(body, -1) {
		if c, ok := coordAt(body, loc, 1); ok {
			coords = append(coords, c)
		}
	}
	return coords
}
