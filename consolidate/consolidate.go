package consolidate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
	"github.com/c360studio/semstreams/pkg/errs"
)

// DefaultMaxDepth bounds subcrate nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 32

// Options controls a consolidation run.
type Options struct {
	// AddSubcrateType tags synthesized folders with the Subcrate type.
	AddSubcrateType bool
	// ExtendContext appends the consolidation terms to the output context.
	ExtendContext bool
	// ConformsToPolicy selects how RO-Crate conformance is removed from folders.
	ConformsToPolicy ConformsToPolicy
	// LoadConcurrency > 1 loads the sibling subcrates of each document
	// concurrently, at most this many at a time.
	LoadConcurrency int
	// MaxDepth is the deepest subcrate nesting that is followed.
	MaxDepth int

	Logger   *slog.Logger
	Observer Observer
}

// DefaultOptions returns the options used by the CLI unless overridden.
func DefaultOptions() Options {
	return Options{
		AddSubcrateType:  true,
		ExtendContext:    true,
		ConformsToPolicy: StripProperty,
		LoadConcurrency:  1,
		MaxDepth:         DefaultMaxDepth,
	}
}

// MergeCrate is a document placed under an explicit folder.
type MergeCrate struct {
	Graph jsonld.Graph
	// FolderID is the destination folder, for example "./imported/".
	FolderID string
	// Name, when set, becomes the folder's name.
	Name string
}

// Input is the material for one run.
type Input struct {
	Graph jsonld.Graph
	// Context is the main document's @context. Null means the RO-Crate 1.1 context.
	Context jsonld.Value
	Merges  []MergeCrate
}

// Stats summarizes a run.
type Stats struct {
	DocumentsConsolidated int `json:"documents_consolidated"`
	TotalEntities         int `json:"total_entities"`
	MergedEntities        int `json:"merged_entities"`
	SubcratesSkipped      int `json:"subcrates_skipped"`
	Folders               int `json:"folders"`
}

// Result is the consolidated document.
type Result struct {
	Context jsonld.Value
	Graph   jsonld.Graph
	Stats   Stats
}

// Document returns the result as a document ready to encode.
func (r *Result) Document() *jsonld.Document {
	return &jsonld.Document{Context: r.Context, Graph: r.Graph}
}

// Consolidate flattens the main graph, every subcrate reachable from it
// through loader, and every explicit merge into one graph.
func Consolidate(ctx context.Context, in Input, loader Loader, opts Options) (*Result, error) {
	for i, mc := range in.Merges {
		if err := ValidateFolderID(mc.FolderID); err != nil {
			return nil, errs.WrapInvalid(fmt.Errorf("merge %d: %w", i, err), "consolidate", "Consolidate", "validate folder id")
		}
	}

	if loader == nil {
		loader = NoOpLoader{}
	}
	w := newWalker(loader, opts)

	if _, err := w.collectHierarchy(ctx, in.Graph, "", ""); err != nil {
		return nil, err
	}
	for _, mc := range in.Merges {
		if err := w.mergeExplicit(ctx, mc); err != nil {
			return nil, err
		}
	}

	graph, err := w.finalize()
	if err != nil {
		return nil, err
	}

	outCtx := in.Context
	if outCtx.IsNull() {
		outCtx = jsonld.String(rocrate.DefaultContext)
	}
	if opts.ExtendContext {
		outCtx = rocrate.ExtendContext(outCtx)
	}

	w.logger.Debug("Consolidation complete",
		slog.Int("documents", w.stats.DocumentsConsolidated),
		slog.Int("entities", w.stats.TotalEntities),
		slog.Int("merged", w.stats.MergedEntities),
		slog.Int("skipped", w.stats.SubcratesSkipped))

	return &Result{Context: outCtx, Graph: graph, Stats: w.stats}, nil
}
