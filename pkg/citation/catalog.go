package citation

import (
	"fmt"
	"strings"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
)

// Catalog renders the enumerated citation list that is appended to a
// tool's returned text. Every line ends in the exact marker token for
// that record so the model can copy it instead of inventing its own
// citation formatting.
func Catalog(batches []*model.CitationBatch) string {
	var lines []string
	n := 0

	for _, batch := range batches {
		for _, src := range batch.Sources {
			n++
			lines = append(lines, fmt.Sprintf("%d. %s [%s]: %s",
				n, catalogTitle(src), catalogMeta(src), marker.Standalone(marker.Coordinate{
					Turn:      src.Turn,
					SourceKey: src.SourceKey,
					Index:     src.Index,
				})))
		}
	}

	if len(lines) == 0 {
		return ""
	}

	header := "Citations (place these markers directly after the sentence they support, copied exactly):"
	return header + "\n" + strings.Join(lines, "\n")
}

func catalogTitle(src *model.Citation) string {
	if src.Title != "" {
		return src.Title
	}
	if src.URL != "" {
		return src.URL
	}
	if src.FileID != "" {
		return src.FileID
	}
	return "(untitled)"
}

func catalogMeta(src *model.Citation) string {
	switch {
	case src.URL != "":
		return src.URL
	case len(src.Pages) > 0:
		pages := make([]string, len(src.Pages))
		for i, p := range src.Pages {
			pages[i] = fmt.Sprintf("%d", p)
		}
		return fmt.Sprintf("%s p.%s", string(src.Origin), strings.Join(pages, ","))
	case src.Attribution != "":
		return src.Attribution
	default:
		return string(src.Origin)
	}
}
