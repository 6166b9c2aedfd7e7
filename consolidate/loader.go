package consolidate

import (
	"context"
	"time"

	"github.com/c360studio/semcrate/jsonld"
)

// Loader fetches the graph of a discovered subcrate.
//
// subcrateID is the reference's original "@id" as written in the parent
// document and parentNamespace is the namespace of that parent ("" for the
// top-level document). Loaders used with Options.LoadConcurrency > 1 must be
// safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error)
}

// ReferenceLoader is implemented by loaders that can use the parent's
// reference entity, for example to follow its subjectOf link. ref carries
// the ids already rewritten into the consolidated namespace; subcrateID is
// still the original one. The walker prefers LoadReference when the
// reference entity is known.
type ReferenceLoader interface {
	Loader
	LoadReference(ctx context.Context, subcrateID string, ref *jsonld.Object, parentNamespace string) (jsonld.Graph, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	return f(ctx, subcrateID, parentNamespace)
}

// NoOpLoader never loads anything. Use it to consolidate explicit merges
// only, without discovering nested subcrates.
type NoOpLoader struct{}

// Load always fails with ErrLoaderDisabled.
func (NoOpLoader) Load(_ context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	return nil, &LoadError{SubcrateID: subcrateID, ParentNamespace: parentNamespace, Err: ErrLoaderDisabled}
}

// Observer receives per-subcrate load outcomes. Implementations must be
// safe for concurrent use.
type Observer interface {
	SubcrateLoaded(subcrateID string, d time.Duration, err error)
}
