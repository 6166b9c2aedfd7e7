package consolidate

import (
	"slices"

	"github.com/c360studio/semcrate/jsonld"
)

// SemanticEqual is deep equality, except that two reference objects
// ({"@id": x} with no other key) are equal when their identifiers match.
func SemanticEqual(a, b jsonld.Value) bool {
	ao, aok := a.AsObject()
	bo, bok := b.AsObject()
	if aok && bok && ao.Len() == 1 && bo.Len() == 1 {
		aid, aHas := ao.Get(jsonld.KeyID)
		bid, bHas := bo.Get(jsonld.KeyID)
		if aHas && bHas {
			return jsonld.Equal(aid, bid)
		}
	}
	return jsonld.Equal(a, b)
}

func containsValue(items []jsonld.Value, v jsonld.Value) bool {
	return slices.ContainsFunc(items, func(item jsonld.Value) bool {
		return SemanticEqual(item, v)
	})
}

// MergeValues unions two property values without discarding information:
//   - equal values collapse to one
//   - two lists concatenate, skipping b's members already present
//   - a list and a non-list gain the non-list as a member if it is new
//   - two non-reference objects merge key by key
//   - anything else becomes the two-element list [a, b]
//
// The result never aliases a or b.
func MergeValues(a, b jsonld.Value) jsonld.Value {
	if SemanticEqual(a, b) {
		return a.Clone()
	}

	aItems, aList := a.AsArray()
	bItems, bList := b.AsArray()
	switch {
	case aList && bList:
		return appendNovel(aItems, bItems...)
	case aList:
		return appendNovel(aItems, b)
	case bList:
		return appendNovel(bItems, a)
	}

	ao, aObj := a.AsObject()
	bo, bObj := b.AsObject()
	if aObj && bObj && !ao.IsReference() && !bo.IsReference() {
		return jsonld.ObjectValue(mergeObjects(ao, bo))
	}

	return jsonld.Array(a.Clone(), b.Clone())
}

func appendNovel(base []jsonld.Value, extra ...jsonld.Value) jsonld.Value {
	out := make([]jsonld.Value, 0, len(base)+len(extra))
	for _, item := range base {
		out = append(out, item.Clone())
	}
	for _, item := range extra {
		if !containsValue(out, item) {
			out = append(out, item.Clone())
		}
	}
	return jsonld.Array(out...)
}

// mergeObjects keeps a's keys in order followed by b's novel keys.
func mergeObjects(a, b *jsonld.Object) *jsonld.Object {
	out := a.Clone()
	b.Range(func(key string, bv jsonld.Value) bool {
		if av, ok := out.Get(key); ok {
			out.Set(key, MergeValues(av, bv))
		} else {
			out.Set(key, bv.Clone())
		}
		return true
	})
	return out
}

// MergeEntities merges two entities that share an identifier. The id is taken
// from a. Types are unioned in first-seen order and written as a bare string
// when only one remains. Every other property is merged with MergeValues.
func MergeEntities(a, b *jsonld.Object) *jsonld.Object {
	types := unionTypes(a.Types(), b.Types())

	out := jsonld.NewObject()
	emit := func(key string, v jsonld.Value, inB bool) {
		switch key {
		case jsonld.KeyID:
			if !inB {
				out.Set(key, v.Clone())
			}
		case jsonld.KeyType:
			if len(types) > 0 {
				out.Set(key, jsonld.TypeValue(types))
			}
		default:
			if inB {
				out.Set(key, v.Clone())
				return
			}
			if bv, ok := b.Get(key); ok {
				out.Set(key, MergeValues(v, bv))
			} else {
				out.Set(key, v.Clone())
			}
		}
	}

	a.Range(func(key string, v jsonld.Value) bool {
		emit(key, v, false)
		return true
	})
	b.Range(func(key string, v jsonld.Value) bool {
		if !a.Has(key) {
			emit(key, v, true)
		}
		return true
	})
	return out
}

func unionTypes(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(slices.Clone(a), b...) {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// MergeByID groups entities by identifier and folds each group with
// MergeEntities in arrival order. Groups appear in the order their first
// member arrived; callers should not rely on that order. Entities without an
// identifier are dropped.
func MergeByID(entities []*jsonld.Object) []*jsonld.Object {
	var order []string
	groups := make(map[string]*jsonld.Object)

	for _, e := range entities {
		id, ok := e.ID()
		if !ok {
			continue
		}
		existing, seen := groups[id]
		if !seen {
			order = append(order, id)
			groups[id] = e
			continue
		}
		groups[id] = MergeEntities(existing, e)
	}

	out := make([]*jsonld.Object, len(order))
	for i, id := range order {
		out[i] = groups[id]
	}
	return out
}
