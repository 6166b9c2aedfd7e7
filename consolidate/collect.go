package consolidate

import (
	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
)

// CollectedEntity is an entity together with where it came from.
type CollectedEntity struct {
	Entity     *jsonld.Object
	OriginalID string
	Namespace  string
}

// Collection partitions one document's graph.
type Collection struct {
	// Local holds relative and fragment entities, in graph order.
	Local []CollectedEntity
	// Shared holds absolute-id entities, merged across documents later.
	Shared []CollectedEntity
	// SubcrateIDs lists the ids of subcrate references, in graph order.
	SubcrateIDs []string

	Root       *CollectedEntity
	Descriptor *CollectedEntity
}

// Collect partitions graph. Entities are deep-copied, so the caller's graph
// is never modified by later rewriting. Entities without a string "@id" are
// ignored. When a document carries several roots or descriptors the last one
// wins.
func Collect(graph jsonld.Graph, namespace string) *Collection {
	c := &Collection{}
	for _, entity := range graph {
		id, ok := entity.ID()
		if !ok {
			continue
		}

		collected := CollectedEntity{
			Entity:     entity.Clone(),
			OriginalID: id,
			Namespace:  namespace,
		}

		kind := Classify(id)
		switch kind {
		case KindRoot:
			c.Root = &collected
		case KindMetadataDescriptor:
			c.Descriptor = &collected
		case KindAbsolute:
			c.Shared = append(c.Shared, collected)
		default:
			c.Local = append(c.Local, collected)
		}

		if kind != KindRoot && IsSubcrateReference(entity) {
			c.SubcrateIDs = append(c.SubcrateIDs, id)
		}
	}
	return c
}

// IsSubcrateReference reports whether entity is a Dataset that conforms to
// an RO-Crate profile, meaning its contents are described by a crate of its own.
func IsSubcrateReference(entity *jsonld.Object) bool {
	if !entity.HasType(rocrate.TypeDataset) {
		return false
	}
	conformsTo, ok := entity.Get(rocrate.PropConformsTo)
	if !ok {
		return false
	}
	return rocrate.ConformsToROCrate(conformsTo)
}

// ReferencedIDs returns every identifier referenced from the entity's
// properties, without duplicates, in first-seen order. The entity's own id
// is not included.
func ReferencedIDs(entity *jsonld.Object) []string {
	var ids []string
	seen := make(map[string]struct{})

	var walk func(v jsonld.Value)
	walk = func(v jsonld.Value) {
		switch v.Kind() {
		case jsonld.KindArray:
			items, _ := v.AsArray()
			for _, item := range items {
				walk(item)
			}
		case jsonld.KindObject:
			obj, _ := v.AsObject()
			if id, ok := obj.ID(); ok {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
			obj.Range(func(key string, child jsonld.Value) bool {
				if key != jsonld.KeyID {
					walk(child)
				}
				return true
			})
		}
	}

	entity.Range(func(key string, v jsonld.Value) bool {
		if key != jsonld.KeyID {
			walk(v)
		}
		return true
	})
	return ids
}

// SubjectOfURL returns the first http(s) identifier named by the entity's
// subjectOf property. Subcrate references use it to point at their metadata file.
func SubjectOfURL(entity *jsonld.Object) (string, bool) {
	v, ok := entity.Get(rocrate.PropSubjectOf)
	if !ok {
		return "", false
	}

	candidates := []jsonld.Value{v}
	if items, ok := v.AsArray(); ok {
		candidates = items
	}
	for _, c := range candidates {
		id, ok := c.AsString()
		if !ok {
			id, ok = c.RefID()
		}
		if ok && isHTTPURL(id) {
			return id, true
		}
	}
	return "", false
}
