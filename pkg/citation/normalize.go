package citation

import (
	"strings"
	"unicode"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrUnknownRawResult = goerr.New("unknown raw tool result")

// Source keys of the web search aggregator sections. These match the
// markers compatible front ends expect ("turn0search0", "turn0news1").
const (
	sourceKeySearch = "search"
	sourceKeyNews   = "news"
	sourceKeyImage  = "image"
	sourceKeyRef    = "ref"
)

// defaultFileSourceKey is used when a file search tool has no usable name
const defaultFileSourceKey = "file_search"

// Normalize converts one tool call's raw output into citation batches.
// Dispatch is on the explicit origin tag; there is no shape sniffing at
// this level. Record indices equal the position in the call's own result
// list; the accumulator reassigns them when merging into the run.
func Normalize(turn int, raw *model.RawToolResult) ([]*model.CitationBatch, error) {
	if raw == nil {
		return nil, nil
	}

	switch raw.Origin {
	case model.OriginWeb:
		if raw.Web == nil {
			return nil, goerr.Wrap(ErrUnknownRawResult, "web origin without payload")
		}
		return normalizeWeb(turn, raw.Web), nil
	case model.OriginFile:
		if raw.File == nil {
			return nil, goerr.Wrap(ErrUnknownRawResult, "file origin without payload")
		}
		return normalizeFile(turn, raw.ToolName, raw.File), nil
	case model.OriginConnector, model.OriginSharePoint:
		if raw.Connector == nil {
			return nil, goerr.Wrap(ErrUnknownRawResult, "connector origin without payload")
		}
		return normalizeConnector(turn, raw.Connector), nil
	default:
		return nil, goerr.Wrap(ErrUnknownRawResult, "unsupported origin",
			goerr.V("origin", raw.Origin), goerr.V("tool", raw.ToolName))
	}
}

func normalizeWeb(turn int, res *model.WebSearchResult) []*model.CitationBatch {
	var batches []*model.CitationBatch

	section := func(key string, sources []model.WebSource) {
		if len(sources) == 0 {
			return
		}
		batch := &model.CitationBatch{Turn: turn, SourceKey: key}
		for i, src := range sources {
			batch.Sources = append(batch.Sources, &model.Citation{
				ID:          model.CitationID(turn, key, i),
				Turn:        turn,
				Index:       i,
				Origin:      model.OriginWeb,
				SourceKey:   key,
				Title:       src.Title,
				Snippet:     src.Snippet,
				Attribution: src.Attribution,
				URL:         src.Link,
				Metadata:    webMetadata(src),
			})
		}
		batches = append(batches, batch)
	}

	section(sourceKeySearch, res.Organic)
	section(sourceKeyNews, res.TopStories)
	section(sourceKeyImage, res.Images)
	section(sourceKeyRef, res.References)

	return batches
}

func webMetadata(src model.WebSource) map[string]any {
	meta := map[string]any{}
	if src.Date != "" {
		meta["date"] = src.Date
	}
	if src.ImageURL != "" {
		meta["image_url"] = src.ImageURL
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func normalizeFile(turn int, toolName string, res *model.FileSearchResult) []*model.CitationBatch {
	if len(res.Matches) == 0 {
		return nil
	}

	key := SanitizeSourceKey(toolName)
	if key == "" {
		key = defaultFileSourceKey
	}

	batch := &model.CitationBatch{Turn: turn, SourceKey: key}
	for i, m := range res.Matches {
		batch.Sources = append(batch.Sources, &model.Citation{
			ID:            model.CitationID(turn, key, i),
			Turn:          turn,
			Index:         i,
			Origin:        model.OriginFile,
			SourceKey:     key,
			Title:         m.Filename,
			Snippet:       m.Content,
			FileID:        m.FileID,
			Pages:         m.Pages,
			PageRelevance: m.PageRelevance,
			Relevance:     m.Relevance,
		})
	}

	return []*model.CitationBatch{batch}
}

func normalizeConnector(turn int, res *model.ConnectorResult) []*model.CitationBatch {
	if len(res.Items) == 0 {
		return nil
	}

	key := SanitizeSourceKey(res.Name)
	if key == "" {
		key = "connector"
	}

	batch := &model.CitationBatch{Turn: turn, SourceKey: key}
	for i, item := range res.Items {
		batch.Sources = append(batch.Sources, &model.Citation{
			ID:        model.CitationID(turn, key, i),
			Turn:      turn,
			Index:     i,
			Origin:    inferOrigin(item),
			SourceKey: key,
			Title:     item.Title,
			Snippet:   item.Snippet,
			URL:       item.URL,
			FileID:    item.FileID,
			Pages:     item.Pages,
			Relevance: item.Relevance,
			Metadata:  item.Metadata,
		})
	}

	return []*model.CitationBatch{batch}
}

// inferOrigin classifies a connector item that carries no explicit
// origin tag. A record with a link but no file identifier is web; remote
// document storage metadata selects the matching connector type; no
// signal at all defaults to file.
func inferOrigin(item model.ConnectorItem) model.Origin {
	if item.Origin != "" && item.Origin.Validate() == nil {
		return item.Origin
	}

	if storage, ok := item.Metadata["storage_type"].(string); ok {
		if strings.EqualFold(storage, string(model.OriginSharePoint)) {
			return model.OriginSharePoint
		}
	}

	if item.URL != "" && item.FileID == "" {
		return model.OriginWeb
	}

	return model.OriginFile
}

// SanitizeSourceKey converts a tool or connector display name into a
// marker-safe token: lower case, runs of whitespace and punctuation
// collapsed to single underscores, and always starting with a letter.
//
//	"SharePoint"        -> "sharepoint"
//	"Neo NL"            -> "neo_nl"
//	"My Connector Name" -> "my_connector_name"
func SanitizeSourceKey(name string) string {
	var b strings.Builder
	pendingSep := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			pendingSep = true
		default:
			// Non-ASCII letters and anything unmappable collapse too
			pendingSep = true
		}
	}

	key := b.String()
	key = strings.TrimLeft(key, "0123456789_")
	if key == "" {
		return ""
	}
	return key
}
