package model

// RawToolResult is the tagged union of citable tool outputs. Tools set
// Origin explicitly as early as possible so the normalizer can dispatch
// on the tag instead of sniffing shapes.
type RawToolResult struct {
	Origin   Origin
	ToolName string

	Web       *WebSearchResult
	File      *FileSearchResult
	Connector *ConnectorResult
}

// WebSource is one entry of a web-search aggregator response
type WebSource struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet,omitempty"`
	Date        string `json:"date,omitempty"`
	Attribution string `json:"attribution,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// WebSearchResult is the raw aggregator payload of one web search call.
// Each non-empty section becomes its own citation batch.
type WebSearchResult struct {
	Organic         []WebSource `json:"organic,omitempty"`
	TopStories      []WebSource `json:"top_stories,omitempty"`
	Images          []WebSource `json:"images,omitempty"`
	References      []WebSource `json:"references,omitempty"`
	RelatedSearches []string    `json:"related_searches,omitempty"`
}

// FileMatch is one semantic file-search hit
type FileMatch struct {
	FileID        string          `json:"file_id"`
	Filename      string          `json:"filename"`
	Content       string          `json:"content,omitempty"`
	Pages         []int           `json:"pages,omitempty"`
	PageRelevance map[int]float64 `json:"page_relevance,omitempty"`
	Relevance     float64         `json:"relevance,omitempty"`
}

// FileSearchResult is the raw payload of one file search call
type FileSearchResult struct {
	Matches []FileMatch `json:"matches"`
}

// ConnectorItem is one entry returned by a knowledge-base connector.
// Origin may be left empty; the normalizer then infers it from the
// item's fields and metadata.
type ConnectorItem struct {
	Origin    Origin         `json:"origin,omitempty"`
	Title     string         `json:"title"`
	Snippet   string         `json:"snippet,omitempty"`
	URL       string         `json:"url,omitempty"`
	FileID    string         `json:"file_id,omitempty"`
	Pages     []int          `json:"pages,omitempty"`
	Relevance float64        `json:"relevance,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ConnectorResult is the raw payload of one connector call. Name is the
// connector's display name and becomes the source key after sanitizing.
type ConnectorResult struct {
	Name  string          `json:"name"`
	Items []ConnectorItem `json:"items"`
}
