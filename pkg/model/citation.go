package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidOrigin    = goerr.New("invalid citation origin")
	ErrInvalidSourceKey = goerr.New("invalid source key")
)

// Origin identifies which kind of tool produced a citation
type Origin string

const (
	OriginWeb        Origin = "web"
	OriginFile       Origin = "file"
	OriginConnector  Origin = "connector"
	OriginSharePoint Origin = "sharepoint"
)

// Validate checks if the origin is valid
func (o Origin) Validate() error {
	switch o {
	case OriginWeb, OriginFile, OriginConnector, OriginSharePoint:
		return nil
	default:
		return goerr.Wrap(ErrInvalidOrigin, "unknown origin", goerr.V("origin", o))
	}
}

// Citation is the canonical record for one cited source. Every tool
// result is normalized into this shape regardless of where it came from.
type Citation struct {
	ID          string          `json:"id" firestore:"id"`
	Turn        int             `json:"turn" firestore:"turn"`
	Index       int             `json:"index" firestore:"index"`
	Origin      Origin          `json:"origin" firestore:"origin"`
	SourceKey   string          `json:"source_key" firestore:"source_key"`
	Title       string          `json:"title" firestore:"title"`
	Snippet     string          `json:"snippet,omitempty" firestore:"snippet,omitempty"`
	Attribution string          `json:"attribution,omitempty" firestore:"attribution,omitempty"`
	URL         string          `json:"url,omitempty" firestore:"url,omitempty"`
	FileID      string          `json:"file_id,omitempty" firestore:"file_id,omitempty"`
	Pages       []int           `json:"pages,omitempty" firestore:"pages,omitempty"`
	PageRelevance map[int]float64 `json:"page_relevance,omitempty" firestore:"-"`
	Relevance   float64         `json:"relevance,omitempty" firestore:"relevance,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty" firestore:"metadata,omitempty"`

	// Page is set by the resolver when the marker was page-scoped.
	// It never participates in identity.
	Page *int `json:"page,omitempty" firestore:"-"`
}

// CitationID builds the deterministic record id. The same (turn,
// sourceKey, index) triple must always map to the same id within a run.
func CitationID(turn int, sourceKey string, index int) string {
	return fmt.Sprintf("%d_%s_%d", turn, sourceKey, index)
}

// Clone returns a deep copy so resolver callers can annotate the record
// without touching the accumulated store.
func (c *Citation) Clone() *Citation {
	if c == nil {
		return nil
	}
	dup := *c
	if c.Pages != nil {
		dup.Pages = append([]int(nil), c.Pages...)
	}
	if c.PageRelevance != nil {
		dup.PageRelevance = make(map[int]float64, len(c.PageRelevance))
		for k, v := range c.PageRelevance {
			dup.PageRelevance[k] = v
		}
	}
	if c.Metadata != nil {
		dup.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			dup.Metadata[k] = v
		}
	}
	if c.Page != nil {
		p := *c.Page
		dup.Page = &p
	}
	return &dup
}

// CitationBatch is the unit produced by one normalizer call: the
// citations of a single tool call under a single source key.
type CitationBatch struct {
	Turn      int         `json:"turn"`
	SourceKey string      `json:"source_key"`
	Sources   []*Citation `json:"sources"`
}

// AttachmentTypeCitations is the type tag of serialized citation buckets.
const AttachmentTypeCitations = "citations"

// Attachment is the persisted shape of one (turn, sourceKey) bucket.
type Attachment struct {
	Type      string      `json:"type" firestore:"type"`
	Turn      int         `json:"turn" firestore:"turn"`
	SourceKey string      `json:"source_key" firestore:"source_key"`
	Sources   []*Citation `json:"sources" firestore:"sources"`
}
