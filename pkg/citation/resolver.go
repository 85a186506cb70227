package citation

import (
	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
)

// Resolver maps parsed marker coordinates back to citation records. It
// reads a frozen run snapshot only, so every lookup is pure; a missing
// coordinate yields nil, never an error, since the model may reference
// content that was never flushed.
type Resolver struct {
	index map[string][]*model.Citation
}

// NewResolver builds a resolver over a serialized run snapshot
func NewResolver(snap *model.RunSnapshot) *Resolver {
	index := make(map[string][]*model.Citation)
	if snap != nil {
		for _, att := range snap.Attachments {
			if att.Type != model.AttachmentTypeCitations {
				continue
			}
			index[storeKey(att.Turn, att.SourceKey)] = att.Sources
		}
	}
	return &Resolver{index: index}
}

// Resolve returns a copy of the record at (turn, sourceKey, index) with
// the requested page attached, or nil when the coordinate does not
// exist in the snapshot.
func (r *Resolver) Resolve(turn int, sourceKey string, index int, page *int) *model.Citation {
	sources, ok := r.index[storeKey(turn, sourceKey)]
	if !ok || index < 0 || index >= len(sources) {
		return nil
	}

	record := sources[index].Clone()
	if page != nil {
		p := *page
		record.Page = &p
	}
	return record
}

// ResolveCoordinate resolves one parsed marker coordinate
func (r *Resolver) ResolveCoordinate(c marker.Coordinate) *model.Citation {
	return r.Resolve(c.Turn, c.SourceKey, c.Index, c.Page)
}

// ResolveMatch resolves every coordinate of a parsed marker in its
// appearance order within the marker, skipping coordinates that do not
// exist in the snapshot.
func (r *Resolver) ResolveMatch(m marker.Match) []*model.Citation {
	records := make([]*model.Citation, 0, len(m.Coords))
	for _, c := range m.Coords {
		if record := r.ResolveCoordinate(c); record != nil {
			records = append(records, record)
		}
	}
	return records
}
