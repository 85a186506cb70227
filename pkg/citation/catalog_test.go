package citation_test

import (
	"strings"
	"testing"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/citation"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestCatalog(t *testing.T) {
	batches := []*model.CitationBatch{
		newBatch(0, "search", "First result", "Second result"),
		newBatch(0, "news", "A headline"),
	}

	catalog := citation.Catalog(batches)

	// Numbered across batches
	gt.S(t, catalog).Contains("1. First result")
	gt.S(t, catalog).Contains("2. Second result")
	gt.S(t, catalog).Contains("3. A headline")

	// Every line ends in the exact marker token for its record
	gt.S(t, catalog).Contains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0}))
	gt.S(t, catalog).Contains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "search", Index: 1}))
	gt.S(t, catalog).Contains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "news", Index: 0}))

	// Header plus one line per record
	gt.A(t, strings.Split(catalog, "\n")).Length(4)
}

func TestCatalogReflectsAccumulatedIndices(t *testing.T) {
	run := citation.NewRun()
	gt.NoError(t, run.AddBatch(newBatch(0, "search", "a", "b", "c")))

	// A later batch for the same bucket continues at index 3; the
	// catalog for that batch must carry the continued indices, not 0..n
	batch := newBatch(0, "search", "d", "e")
	gt.NoError(t, run.AddBatch(batch))

	catalog := citation.Catalog([]*model.CitationBatch{batch})
	gt.S(t, catalog).Contains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "search", Index: 3}))
	gt.S(t, catalog).Contains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "search", Index: 4}))
	gt.S(t, catalog).NotContains(marker.Standalone(marker.Coordinate{Turn: 0, SourceKey: "search", Index: 0}))
}

func TestCatalogEmpty(t *testing.T) {
	gt.Equal(t, citation.Catalog(nil), "")
	gt.Equal(t, citation.Catalog([]*model.CitationBatch{{Turn: 0, SourceKey: "search"}}), "")
}
