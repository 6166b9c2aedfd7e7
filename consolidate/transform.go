package consolidate

import (
	"slices"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
)

// ConformsToPolicy selects how an RO-Crate conformsTo is removed from a folder.
type ConformsToPolicy int

const (
	// StripProperty drops the whole conformsTo property when any entry
	// names an RO-Crate profile.
	StripProperty ConformsToPolicy = iota
	// FilterEntries drops only the RO-Crate entries and keeps the rest.
	FilterEntries
)

// String returns the policy name used in configuration.
func (p ConformsToPolicy) String() string {
	switch p {
	case StripProperty:
		return "strip"
	case FilterEntries:
		return "filter"
	default:
		return "unknown"
	}
}

// ParseConformsToPolicy parses "strip" or "filter". An empty string is StripProperty.
func ParseConformsToPolicy(s string) (ConformsToPolicy, bool) {
	switch s {
	case "", "strip":
		return StripProperty, true
	case "filter":
		return FilterEntries, true
	default:
		return StripProperty, false
	}
}

// FolderSpec describes one folder to compose.
type FolderSpec struct {
	ID string
	// ParentRef is the parent document's entity for this folder, if any.
	// Its properties take precedence in key order.
	ParentRef *jsonld.Object
	// SubcrateRoot is the subcrate's root entity.
	SubcrateRoot *jsonld.Object
	// ConsolidatedIDs are the rewritten ids absorbed from the subcrate.
	ConsolidatedIDs []string
	AddSubcrateType bool
	Policy          ConformsToPolicy
}

// ComposeFolder builds the folder entity that replaces an absorbed subcrate.
// Parent and subcrate properties are unioned with MergeValues; subjectOf and
// RO-Crate conformance are removed.
func ComposeFolder(spec FolderSpec) *jsonld.Object {
	folder := jsonld.NewObject()
	folder.SetID(spec.ID)

	types := []string{rocrate.TypeDataset}
	if spec.AddSubcrateType {
		types = append(types, rocrate.TypeSubcrate)
	}
	for _, src := range []*jsonld.Object{spec.ParentRef, spec.SubcrateRoot} {
		for _, t := range src.Types() {
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		}
	}
	folder.Set(jsonld.KeyType, jsonld.TypeValue(types))

	for _, src := range []*jsonld.Object{spec.ParentRef, spec.SubcrateRoot} {
		src.Range(func(key string, v jsonld.Value) bool {
			if key == jsonld.KeyID || key == jsonld.KeyType {
				return true
			}
			v, keep := strippedValue(key, v, spec.Policy)
			if !keep {
				return true
			}
			if existing, ok := folder.Get(key); ok {
				folder.Set(key, MergeValues(existing, v))
			} else {
				folder.Set(key, v.Clone())
			}
			return true
		})
	}

	if len(spec.ConsolidatedIDs) > 0 {
		refs := make([]jsonld.Value, len(spec.ConsolidatedIDs))
		for i, id := range spec.ConsolidatedIDs {
			refs[i] = jsonld.Ref(id)
		}
		folder.Set(rocrate.PropConsolidatedEntities, jsonld.Array(refs...))
	}
	return folder
}

// strippedValue returns the value to keep for key, or false when the
// property is dropped from a folder.
func strippedValue(key string, v jsonld.Value, policy ConformsToPolicy) (jsonld.Value, bool) {
	switch key {
	case rocrate.PropSubjectOf:
		return jsonld.Value{}, false
	case rocrate.PropConformsTo:
		if !rocrate.ConformsToROCrate(v) {
			return v, true
		}
		if policy == FilterEntries {
			return filterConformsTo(v)
		}
		return jsonld.Value{}, false
	}
	return v, true
}

// filterConformsTo removes RO-Crate entries from a conformsTo value. A single
// survivor is returned bare.
func filterConformsTo(v jsonld.Value) (jsonld.Value, bool) {
	items, ok := v.AsArray()
	if !ok {
		return jsonld.Value{}, false
	}
	var kept []jsonld.Value
	for _, item := range items {
		if !rocrate.ConformsToROCrate(item) {
			kept = append(kept, item)
		}
	}
	switch len(kept) {
	case 0:
		return jsonld.Value{}, false
	case 1:
		return kept[0], true
	default:
		return jsonld.Array(kept...), true
	}
}

// StripROCrateProperties removes subjectOf and RO-Crate conformance from an
// entity in place, keeping any other conformsTo entries.
func StripROCrateProperties(entity *jsonld.Object) {
	entity.Delete(rocrate.PropSubjectOf)

	v, ok := entity.Get(rocrate.PropConformsTo)
	if !ok {
		return
	}
	if kept, keep := strippedValue(rocrate.PropConformsTo, v, FilterEntries); keep {
		entity.Set(rocrate.PropConformsTo, kept)
	} else {
		entity.Delete(rocrate.PropConformsTo)
	}
}

// UpdateRootHasPart appends a reference to each id to the root's hasPart,
// skipping ids already referenced. Existing entries are never replaced.
func UpdateRootHasPart(root *jsonld.Object, ids []string) {
	var parts []jsonld.Value
	if v, ok := root.Get(rocrate.PropHasPart); ok {
		if items, isList := v.AsArray(); isList {
			parts = slices.Clone(items)
		} else {
			parts = []jsonld.Value{v}
		}
	}

	added := false
	for _, id := range ids {
		ref := jsonld.Ref(id)
		if !containsValue(parts, ref) {
			parts = append(parts, ref)
			added = true
		}
	}

	if added {
		root.Set(rocrate.PropHasPart, jsonld.Array(parts...))
	}
}
