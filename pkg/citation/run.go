// Package citation implements the citation accumulation engine: per-run
// turn assignment, normalization of raw tool outputs into canonical
// records, append-only accumulation, catalog generation and marker
// resolution over a frozen snapshot.
package citation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrRunFrozen = goerr.New("citation run already frozen")

// Run is the per-run citation context. One Run is created per assistant
// run and passed to every call site; there is deliberately no package
// level counter, so turn ids can never bleed across requests.
//
// Turn ids are issued by a single counter shared by all tools of the
// run. Keying the counter by tool name would hand the same id to two
// different tools ("first call" each) and corrupt every downstream
// lookup, so the counter is structurally one per Run.
type Run struct {
	id model.RunID

	mu       sync.Mutex
	nextTurn int
	store    map[string][]*model.Citation
	order    []string
	frozen   bool
}

// NewRun creates the citation context for one assistant run
func NewRun() *Run {
	return &Run{
		id:    model.NewRunID(),
		store: make(map[string][]*model.Citation),
	}
}

// ID returns the run id
func (r *Run) ID() model.RunID {
	return r.id
}

// NextTurn issues the next globally unique turn id for this run. Ids
// start at 0 and are never reused, even for cancelled or failed tool
// calls.
func (r *Run) NextTurn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	turn := r.nextTurn
	r.nextTurn++
	return turn
}

// AddBatch appends a normalized batch to the (turn, sourceKey) bucket.
// Indices continue from the existing bucket length and each record's id
// is recomputed to match; records already in the bucket are never
// renumbered. Repeated batches for the same bucket are expected.
func (r *Run) AddBatch(batch *model.CitationBatch) error {
	if batch == nil || len(batch.Sources) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return goerr.Wrap(ErrRunFrozen, "cannot accumulate after snapshot",
			goerr.V("turn", batch.Turn), goerr.V("source_key", batch.SourceKey))
	}

	key := storeKey(batch.Turn, batch.SourceKey)
	existing, ok := r.store[key]
	if !ok {
		r.order = append(r.order, key)
	}

	base := len(existing)
	for i, src := range batch.Sources {
		src.Turn = batch.Turn
		src.SourceKey = batch.SourceKey
		src.Index = base + i
		src.ID = model.CitationID(batch.Turn, batch.SourceKey, src.Index)
		existing = append(existing, src)
	}
	r.store[key] = existing

	return nil
}

// GetCitation returns the record at (turn, sourceKey, index), or nil
func (r *Run) GetCitation(turn int, sourceKey string, index int) *model.Citation {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources, ok := r.store[storeKey(turn, sourceKey)]
	if !ok || index < 0 || index >= len(sources) {
		return nil
	}
	return sources[index]
}

// GetAll flattens the store into one batch per (turn, sourceKey) bucket
// in insertion order.
func (r *Run) GetAll() []*model.CitationBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batchesLocked()
}

func (r *Run) batchesLocked() []*model.CitationBatch {
	batches := make([]*model.CitationBatch, 0, len(r.order))
	for _, key := range r.order {
		sources := r.store[key]
		if len(sources) == 0 {
			continue
		}
		batches = append(batches, &model.CitationBatch{
			Turn:      sources[0].Turn,
			SourceKey: sources[0].SourceKey,
			Sources:   append([]*model.Citation(nil), sources...),
		})
	}
	return batches
}

// Snapshot freezes the run and serializes the store into attachments.
// Any AddBatch after Snapshot fails with ErrRunFrozen, so a persisted
// snapshot can never diverge from what was accumulated.
func (r *Run) Snapshot() *model.RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true

	batches := r.batchesLocked()
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].Turn != batches[j].Turn {
			return batches[i].Turn < batches[j].Turn
		}
		return batches[i].SourceKey < batches[j].SourceKey
	})

	attachments := make([]*model.Attachment, 0, len(batches))
	for _, b := range batches {
		attachments = append(attachments, &model.Attachment{
			Type:      model.AttachmentTypeCitations,
			Turn:      b.Turn,
			SourceKey: b.SourceKey,
			Sources:   b.Sources,
		})
	}

	return &model.RunSnapshot{
		RunID:       r.id,
		CreatedAt:   time.Now(),
		Attachments: attachments,
	}
}

func storeKey(turn int, sourceKey string) string {
	return fmt.Sprintf("%d_%s", turn, sourceKey)
}
