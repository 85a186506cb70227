// Package marker defines the textual citation marker grammar embedded in
// model-generated answers. The grammar is a wire format: it is produced
// by the tool-result side and parsed by the rendering side, possibly in
// a different process, so the token set is versioned and must only be
// referenced through the named constants below.
package marker

import (
	"fmt"
	"strings"
)

// GrammarVersion names the current token set. Bump it when any token
// rune or coordinate rule changes.
const GrammarVersion = "cite-v1"

// Control tokens of grammar version cite-v1. The runes are Unicode
// private-use-area codepoints matching the wire format consumed by
// compatible chat front ends.
const (
	// Anchor precedes a single coordinate: "turn0search0"
	Anchor = ""
	// GroupStart/GroupEnd wrap multiple anchored coordinates that
	// support the same span of text.
	GroupStart = ""
	GroupEnd   = ""
	// HighlightStart/HighlightEnd wrap a quoted span followed by its
	// anchored coordinate.
	HighlightStart = ""
	HighlightEnd   = ""
	// BracketOpen/BracketClose delimit the secondary grammar: a
	// comma-separated coordinate list, e.g. "【turn0search0,turn0news1】"
	BracketOpen  = "【"
	BracketClose = "】"
)

// pageSep separates the index from an optional page number inside a
// coordinate ("turn0file2p5").
const pageSep = "p"

// Coordinate addresses one citation record by (turn, sourceKey, index)
// with an optional page scope.
type Coordinate struct {
	Turn      int
	SourceKey string
	Index     int
	Page      *int
}

// String renders the coordinate body without any control token
func (c Coordinate) String() string {
	if c.Page != nil {
		return fmt.Sprintf("turn%d%s%d%s%d", c.Turn, c.SourceKey, c.Index, pageSep, *c.Page)
	}
	return fmt.Sprintf("turn%d%s%d", c.Turn, c.SourceKey, c.Index)
}

// Standalone renders an anchored marker for one coordinate
func Standalone(c Coordinate) string {
	return Anchor + c.String()
}

// Group renders a grouped marker: multiple citations for one span
func Group(coords ...Coordinate) string {
	var b strings.Builder
	b.WriteString(GroupStart)
	for _, c := range coords {
		b.WriteString(Standalone(c))
	}
	b.WriteString(GroupEnd)
	return b.String()
}

// Highlight renders a highlighted span followed by its citation
func Highlight(text string, c Coordinate) string {
	return HighlightStart + text + HighlightEnd + Standalone(c)
}

// Bracket renders the secondary bracket-delimited form
func Bracket(coords ...Coordinate) string {
	bodies := make([]string, len(coords))
	for i, c := range coords {
		bodies[i] = c.String()
	}
	return BracketOpen + strings.Join(bodies, ",") + BracketClose
}
