package citation_test

import (
	"testing"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/citation"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/gt"
)

func snapshotFixture(t *testing.T) *model.RunSnapshot {
	t.Helper()

	run := citation.NewRun()
	gt.NoError(t, run.AddBatch(newBatch(0, "search", "first", "second", "third")))
	gt.NoError(t, run.AddBatch(newBatch(1, "file_search", "report.pdf")))
	return run.Snapshot()
}

func TestResolve(t *testing.T) {
	resolver := citation.NewResolver(snapshotFixture(t))

	record := resolver.Resolve(0, "search", 1, nil)
	gt.V(t, record).NotNil()
	gt.Equal(t, record.Title, "second")
	gt.Equal(t, record.ID, "0_search_1")
	gt.Nil(t, record.Page)
}

func TestResolveMiss(t *testing.T) {
	resolver := citation.NewResolver(snapshotFixture(t))

	// Out-of-range coordinates yield nil, never an error
	gt.Nil(t, resolver.Resolve(5, "web_search", 0, nil))
	gt.Nil(t, resolver.Resolve(0, "search", 3, nil))
	gt.Nil(t, resolver.Resolve(0, "news", 0, nil))
	gt.Nil(t, resolver.Resolve(0, "search", -1, nil))
}

func TestResolvePageScope(t *testing.T) {
	resolver := citation.NewResolver(snapshotFixture(t))

	page := 7
	record := resolver.Resolve(1, "file_search", 0, &page)
	gt.V(t, record).NotNil()
	gt.V(t, record.Page).NotNil()
	gt.Equal(t, *record.Page, 7)
}

func TestResolveReturnsCopy(t *testing.T) {
	snap := snapshotFixture(t)
	resolver := citation.NewResolver(snap)

	record := resolver.Resolve(0, "search", 0, nil)
	record.Title = "mutated"

	again := resolver.Resolve(0, "search", 0, nil)
	gt.Equal(t, again.Title, "first")
}

func TestResolveMatchAppearanceOrder(t *testing.T) {
	resolver := citation.NewResolver(snapshotFixture(t))

	s := marker.Group(
		marker.Coordinate{Turn: 0, SourceKey: "search", Index: 2},
		marker.Coordinate{Turn: 9, SourceKey: "search", Index: 0}, // unknown, skipped
		marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0},
	)
	matches := marker.Parse(s)
	gt.A(t, matches).Length(1)

	records := resolver.ResolveMatch(matches[0])
	gt.A(t, records).Length(2)
	gt.Equal(t, records[0].Title, "third")
	gt.Equal(t, records[1].Title, "first")
}

func TestResolverNilSnapshot(t *testing.T) {
	resolver := citation.NewResolver(nil)
	gt.Nil(t, resolver.Resolve(0, "search", 0, nil))
}
