package consolidate

import (
	"github.com/c360studio/semcrate/jsonld"
)

// RewriteReferences replaces, in place, every nested {"@id": x} whose x is a
// key of m with the mapped identifier.
func RewriteReferences(v jsonld.Value, m IDMap) {
	if len(m) == 0 {
		return
	}
	switch v.Kind() {
	case jsonld.KindArray:
		items, _ := v.AsArray()
		for _, item := range items {
			RewriteReferences(item, m)
		}
	case jsonld.KindObject:
		obj, _ := v.AsObject()
		rewriteNode(obj, m, true)
	}
}

// RewriteEntity rewrites an entity's own identifier, looked up by its
// original id, and then every nested reference. The entity's rewritten id is
// never looked up again.
func RewriteEntity(entity *jsonld.Object, originalID string, m IDMap) {
	if mapped, ok := m[originalID]; ok {
		entity.SetID(mapped)
	}
	rewriteNode(entity, m, false)
}

func rewriteNode(obj *jsonld.Object, m IDMap, withID bool) {
	if withID {
		if id, ok := obj.ID(); ok {
			if mapped, ok := m[id]; ok {
				obj.SetID(mapped)
			}
		}
	}
	obj.Range(func(key string, v jsonld.Value) bool {
		if key != jsonld.KeyID {
			RewriteReferences(v, m)
		}
		return true
	})
}
