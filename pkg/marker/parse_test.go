package marker_test

import (
	"testing"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/m-mizutani/gt"
)

func TestParseMultipleMarkers(t *testing.T) {
	a := marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0}
	b := marker.Coordinate{Turn: 0, SourceKey: "search", Index: 1}
	c := marker.Coordinate{Turn: 1, SourceKey: "news", Index: 0}

	s := "First claim." + marker.Standalone(a) +
		" Second claim." + marker.Group(b, c) +
		" Closing remark with no citation."

	matches := marker.Parse(s)
	gt.A(t, matches).Length(2)

	// Matches come back in appearance order
	gt.Equal(t, matches[0].Kind, marker.KindStandalone)
	gt.Equal(t, matches[0].Coords[0], a)
	gt.Equal(t, matches[1].Kind, marker.KindGroup)
	gt.Equal(t, matches[1].Coords, []marker.Coordinate{b, c})
	gt.True(t, matches[0].Start < matches[1].Start)
}

func TestParseAnchorsInsideGroupNotDoubleCounted(t *testing.T) {
	s := marker.Group(
		marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0},
		marker.Coordinate{Turn: 0, SourceKey: "news", Index: 1},
	)

	matches := marker.Parse(s)
	gt.A(t, matches).Length(1)
	gt.Equal(t, matches[0].Kind, marker.KindGroup)
}

func TestParseMalformedLeftAlone(t *testing.T) {
	cases := map[string]string{
		"no turn prefix":    marker.Anchor + "search0",
		"missing index":     marker.Anchor + "turn0search",
		"bare control rune": marker.Anchor,
		"empty group":       marker.GroupStart + marker.GroupEnd,
		"plain coordinate":  "turn0search0 without any control token is prose",
	}

	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			gt.A(t, marker.Parse(s)).Length(0)
		})
	}
}

func TestParseKeyWithDigitsAndPage(t *testing.T) {
	// The trailing digit run is the index; "p5" scopes a page. The key
	// itself may contain digits and underscores.
	matches := marker.Parse(marker.Anchor + "turn0file_search2p5")
	gt.A(t, matches).Length(1)

	coord := matches[0].Coords[0]
	gt.Equal(t, coord.SourceKey, "file_search")
	gt.Equal(t, coord.Index, 2)
	gt.V(t, coord.Page).NotNil()
	gt.Equal(t, *coord.Page, 5)
}

func TestStrip(t *testing.T) {
	a := marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0}
	b := marker.Coordinate{Turn: 0, SourceKey: "news", Index: 1}

	s := "The deal closed in June." + marker.Standalone(a) +
		" Both outlets confirmed it." + marker.Group(a, b) +
		" See " + marker.Bracket(a) + " for details."

	stripped := marker.Strip(s)
	gt.Equal(t, stripped, "The deal closed in June. Both outlets confirmed it. See for details.")
}

func TestStripKeepsHighlightedText(t *testing.T) {
	c := marker.Coordinate{Turn: 2, SourceKey: "ref", Index: 0}
	s := "The contract says " + marker.Highlight("net 30 payment terms", c) + " explicitly."

	stripped := marker.Strip(s)
	gt.Equal(t, stripped, "The contract says net 30 payment terms explicitly.")
}

func TestStripDropsStrayControlRunes(t *testing.T) {
	s := "Broken " + marker.GroupStart + "output" + marker.HighlightEnd + " here"
	stripped := marker.Strip(s)
	gt.Equal(t, stripped, "Broken output here")
}

func TestStripPlainTextUntouched(t *testing.T) {
	s := "No markers at all, just prose with turn0search0 spelled out."
	gt.Equal(t, marker.Strip(s), s)
}
