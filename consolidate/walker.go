package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
	"github.com/c360studio/semstreams/pkg/errs"
)

// entry is an accumulated entity. An absorbed entry was folded into a
// folder and is left out of the output.
type entry struct {
	CollectedEntity
	absorbed bool
}

type folderEntry struct {
	entity    *jsonld.Object
	namespace string
	parent    string
}

// child is a subcrate claimed for loading.
type child struct {
	id        string
	namespace string
	parent    string
	folderID  string
	ref       *entry
	graph     jsonld.Graph
	err       error
}

// walker holds the state of one consolidation run. Only the goroutine that
// runs collectHierarchy touches it; concurrent loads write to their own child.
type walker struct {
	loader   Loader
	opts     Options
	logger   *slog.Logger
	maxDepth int

	visited   map[string]struct{}
	locations map[string]struct{}
	fragments *FragmentRegistry

	local   []*entry
	shared  []*entry
	folders []folderEntry

	root       *jsonld.Object
	descriptor *jsonld.Object
	stats      Stats
}

func newWalker(loader Loader, opts Options) *walker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &walker{
		loader:    loader,
		opts:      opts,
		logger:    logger,
		maxDepth:  maxDepth,
		visited:   make(map[string]struct{}),
		locations: map[string]struct{}{".": {}},
		fragments: NewFragmentRegistry(),
	}
}

// collectHierarchy absorbs graph under namespace and recurses into the
// subcrates it references. rootID, when set, is the id the document's root
// is rewritten to. It returns the document's root entity with references
// rewritten, or nil when the document has none.
func (w *walker) collectHierarchy(ctx context.Context, graph jsonld.Graph, namespace, rootID string) (*jsonld.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.stats.DocumentsConsolidated++

	c := Collect(graph, namespace)

	ids := make([]string, 0, len(c.Local)+1)
	for _, e := range c.Local {
		ids = append(ids, e.OriginalID)
	}
	if c.Root != nil {
		ids = append(ids, c.Root.OriginalID)
	}
	m := BuildIDMap(ids, namespace, w.fragments)
	if rootID != "" && c.Root != nil {
		m[c.Root.OriginalID] = rootID
	}

	var docRoot *jsonld.Object
	if namespace == "" {
		if c.Root != nil {
			w.root = c.Root.Entity
		}
		if c.Descriptor != nil {
			w.descriptor = c.Descriptor.Entity
		}
	} else if c.Root != nil {
		docRoot = c.Root.Entity
		RewriteEntity(docRoot, c.Root.OriginalID, m)
	}

	refs := make(map[string]*entry, len(c.SubcrateIDs))
	for _, ce := range c.Local {
		RewriteEntity(ce.Entity, ce.OriginalID, m)
		e := &entry{CollectedEntity: ce}
		w.local = append(w.local, e)
		refs[ce.OriginalID] = e
	}
	for _, ce := range c.Shared {
		RewriteEntity(ce.Entity, ce.OriginalID, m)
		e := &entry{CollectedEntity: ce}
		w.shared = append(w.shared, e)
		refs[ce.OriginalID] = e
	}

	w.logger.Debug("Collected document",
		slog.String("namespace", namespace),
		slog.Int("local", len(c.Local)),
		slog.Int("shared", len(c.Shared)),
		slog.Int("subcrates", len(c.SubcrateIDs)))

	if err := w.descend(ctx, c.SubcrateIDs, namespace, refs); err != nil {
		return nil, err
	}
	return docRoot, nil
}

// descend loads and absorbs the subcrates referenced by one document.
func (w *walker) descend(ctx context.Context, subcrateIDs []string, namespace string, refs map[string]*entry) error {
	if w.opts.LoadConcurrency <= 1 {
		for _, id := range subcrateIDs {
			ch := w.claim(id, namespace, refs[id])
			if ch == nil {
				continue
			}
			ch.graph, ch.err = w.load(ctx, ch, namespace)
			if err := w.absorb(ctx, ch); err != nil {
				return err
			}
		}
		return nil
	}

	var children []*child
	for _, id := range subcrateIDs {
		if ch := w.claim(id, namespace, refs[id]); ch != nil {
			children = append(children, ch)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.LoadConcurrency)
	for _, ch := range children {
		g.Go(func() error {
			ch.graph, ch.err = w.load(gctx, ch, namespace)
			return nil
		})
	}
	_ = g.Wait()

	for _, ch := range children {
		if err := w.absorb(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// claim reserves the namespace of a discovered subcrate. It returns nil when
// the subcrate must not be followed: its namespace or location was already
// visited, or it is nested too deep.
func (w *walker) claim(id, parentNamespace string, ref *entry) *child {
	name := NamespaceFromFolderID(id)
	if name == "" {
		w.logger.Debug("Ignoring subcrate reference without a name", slog.String("id", id))
		return nil
	}
	ns := ChildNamespace(parentNamespace, name)

	if _, seen := w.visited[ns]; seen {
		w.logger.Debug("Subcrate namespace already visited", slog.String("id", id), slog.String("namespace", ns))
		return nil
	}
	loc := locationKey(id, parentNamespace)
	if _, seen := w.locations[loc]; seen {
		w.stats.SubcratesSkipped++
		w.logger.Info("Subcrate location already visited, keeping reference",
			slog.String("id", id), slog.String("namespace", ns), slog.String("location", loc))
		return nil
	}
	if depth := strings.Count(ns, "/") + 1; depth > w.maxDepth {
		w.stats.SubcratesSkipped++
		w.logger.Warn("Subcrate nested too deep, keeping reference",
			slog.String("id", id), slog.String("namespace", ns), slog.Int("max_depth", w.maxDepth))
		return nil
	}

	w.visited[ns] = struct{}{}
	w.locations[loc] = struct{}{}

	folderID := "./" + ns + "/"
	if ref != nil && Classify(ref.OriginalID) != KindAbsolute {
		if rewritten, ok := ref.Entity.ID(); ok {
			folderID = rewritten
		}
	}
	return &child{id: id, namespace: ns, parent: parentNamespace, folderID: folderID, ref: ref}
}

// locationKey identifies where a subcrate lives, so that references that
// climb back to an ancestor ("../") are recognized as cycles.
func locationKey(id, parentNamespace string) string {
	if Classify(id) == KindAbsolute {
		return strings.TrimRight(id, "/")
	}
	return path.Clean(path.Join(parentNamespace, strings.TrimPrefix(id, "./")))
}

func (w *walker) load(ctx context.Context, ch *child, parentNamespace string) (jsonld.Graph, error) {
	start := time.Now()

	var (
		graph jsonld.Graph
		err   error
	)
	if rl, ok := w.loader.(ReferenceLoader); ok && ch.ref != nil {
		graph, err = rl.LoadReference(ctx, ch.id, ch.ref.Entity, parentNamespace)
	} else {
		graph, err = w.loader.Load(ctx, ch.id, parentNamespace)
	}

	var le *LoadError
	if err != nil && !errors.As(err, &le) {
		err = &LoadError{SubcrateID: ch.id, ParentNamespace: parentNamespace, Err: err}
	}

	if w.opts.Observer != nil {
		w.opts.Observer.SubcrateLoaded(ch.id, time.Since(start), err)
	}
	return graph, err
}

// absorb recurses into a loaded subcrate and replaces it with a folder.
// A subcrate that failed to load is skipped and its reference kept.
func (w *walker) absorb(ctx context.Context, ch *child) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ch.err != nil {
		w.stats.SubcratesSkipped++
		w.logger.Warn("Subcrate not loaded, keeping reference",
			slog.String("id", ch.id), slog.String("error", ch.err.Error()))
		return nil
	}

	// A shared reference stays in the output; the folder gets a copy of its
	// properties.
	var parentRef *jsonld.Object
	shared := false
	if ch.ref != nil {
		shared = Classify(ch.ref.OriginalID) == KindAbsolute
		parentRef = ch.ref.Entity
		if shared {
			parentRef = parentRef.Clone()
		}
	}
	folder, err := w.nest(ctx, ch.graph, ch.namespace, ch.parent, ch.folderID, parentRef)
	if err != nil {
		return err
	}
	if folder && ch.ref != nil && !shared {
		ch.ref.absorbed = true
	}
	return nil
}

// nest walks a subcrate graph under namespace and appends its folder.
// It reports whether a folder was produced.
func (w *walker) nest(ctx context.Context, graph jsonld.Graph, namespace, parent, folderID string, parentRef *jsonld.Object) (bool, error) {
	localStart := len(w.local)
	folderStart := len(w.folders)

	subRoot, err := w.collectHierarchy(ctx, graph, namespace, folderID)
	if err != nil {
		return false, err
	}
	if subRoot == nil {
		w.logger.Warn("Subcrate has no root entity, no folder created", slog.String("namespace", namespace))
		return false, nil
	}

	var consolidated []string
	for _, e := range w.local[localStart:] {
		if e.absorbed || !inNamespace(e.Namespace, namespace) {
			continue
		}
		if id, ok := e.Entity.ID(); ok {
			consolidated = append(consolidated, id)
		}
	}
	for _, f := range w.folders[folderStart:] {
		if id, ok := f.entity.ID(); ok {
			consolidated = append(consolidated, id)
		}
	}

	folder := ComposeFolder(FolderSpec{
		ID:              folderID,
		ParentRef:       parentRef,
		SubcrateRoot:    subRoot,
		ConsolidatedIDs: consolidated,
		AddSubcrateType: w.opts.AddSubcrateType,
		Policy:          w.opts.ConformsToPolicy,
	})
	w.folders = append(w.folders, folderEntry{
		entity:    folder,
		namespace: namespace,
		parent:    parent,
	})
	return true, nil
}

// mergeExplicit places an explicitly supplied crate under its folder.
func (w *walker) mergeExplicit(ctx context.Context, mc MergeCrate) error {
	ns := NamespaceFromFolderID(mc.FolderID)
	if _, seen := w.visited[ns]; seen {
		return errs.WrapInvalid(fmt.Errorf("%w: %q", ErrDuplicateFolderID, mc.FolderID),
			"consolidate", "Consolidate", "merge crate")
	}
	w.visited[ns] = struct{}{}
	folderID := "./" + ns + "/"

	// A top-level entity already describing the folder supplies its properties.
	var existing *entry
	for _, e := range w.local {
		if e.absorbed || e.Namespace != "" {
			continue
		}
		if id, _ := e.Entity.ID(); id == folderID || id == mc.FolderID {
			existing = e
			break
		}
	}

	var parentRef *jsonld.Object
	if existing != nil {
		parentRef = existing.Entity
	}
	if mc.Name != "" {
		synthetic := jsonld.NewObject()
		synthetic.SetID(folderID)
		synthetic.Set(jsonld.KeyType, jsonld.String(rocrate.TypeDataset))
		synthetic.Set(rocrate.PropName, jsonld.String(mc.Name))
		if parentRef != nil {
			parentRef = MergeEntities(parentRef, synthetic)
		} else {
			parentRef = synthetic
		}
	}

	w.logger.Debug("Merging crate", slog.String("folder", folderID), slog.String("namespace", ns))

	folder, err := w.nest(ctx, mc.Graph, ns, "", folderID, parentRef)
	if err != nil {
		return err
	}
	if folder && existing != nil {
		existing.absorbed = true
	}
	return nil
}

// finalize merges shared entities and assembles the output graph.
func (w *walker) finalize() (jsonld.Graph, error) {
	if w.descriptor == nil {
		return nil, errs.WrapInvalid(ErrMissingDescriptor, "consolidate", "Consolidate", "assemble graph")
	}
	if w.root == nil {
		return nil, errs.WrapInvalid(ErrMissingRoot, "consolidate", "Consolidate", "assemble graph")
	}

	var shared []*jsonld.Object
	for _, e := range w.shared {
		if !e.absorbed {
			shared = append(shared, e.Entity)
		}
	}
	merged := MergeByID(shared)
	w.stats.MergedEntities = len(shared) - len(merged)

	var topFolders []string
	for _, f := range w.folders {
		if f.parent == "" {
			if id, ok := f.entity.ID(); ok {
				topFolders = append(topFolders, id)
			}
		}
	}
	UpdateRootHasPart(w.root, topFolders)

	graph := make(jsonld.Graph, 0, 2+len(w.local)+len(w.folders)+len(merged))
	graph = append(graph, w.descriptor, w.root)
	for _, e := range w.local {
		if !e.absorbed {
			graph = append(graph, e.Entity)
		}
	}
	for _, f := range w.folders {
		graph = append(graph, f.entity)
	}
	graph = append(graph, merged...)

	w.stats.Folders = len(w.folders)
	w.stats.TotalEntities = len(graph)
	return graph, nil
}
