package rocrate

import (
	"github.com/c360studio/semcrate/jsonld"
)

// ContextExtension returns the context object declaring the consolidation terms:
//
//	{"Subcrate": "<ns>Subcrate",
//	 "consolidatedEntities": {"@id": "<ns>consolidatedEntities", "@container": "@set", "@type": "@id"}}
func ContextExtension() *jsonld.Object {
	ce := jsonld.NewObject()
	ce.Set(jsonld.KeyID, jsonld.String(ConsolidatedEntitiesIRI))
	ce.Set("@container", jsonld.String("@set"))
	ce.Set(jsonld.KeyType, jsonld.String(jsonld.KeyID))

	ext := jsonld.NewObject()
	ext.Set(TypeSubcrate, jsonld.String(SubcrateIRI))
	ext.Set(PropConsolidatedEntities, jsonld.ObjectValue(ce))
	return ext
}

// ExtendContext returns ctx with ContextExtension appended. A null context
// is replaced by DefaultContext first; a list context gets the extension
// appended unless an equal object is already present.
func ExtendContext(ctx jsonld.Value) jsonld.Value {
	ext := jsonld.ObjectValue(ContextExtension())
	if ctx.IsNull() {
		ctx = jsonld.String(DefaultContext)
	}

	if items, ok := ctx.AsArray(); ok {
		for _, item := range items {
			if jsonld.Equal(item, ext) {
				return ctx
			}
		}
		out := make([]jsonld.Value, 0, len(items)+1)
		out = append(out, items...)
		out = append(out, ext)
		return jsonld.Array(out...)
	}
	return jsonld.Array(ctx, ext)
}

// ConformsToROCrate reports whether a conformsTo value names an RO-Crate
// profile. It accepts a reference object, a list of references or strings,
// and a bare string.
func ConformsToROCrate(v jsonld.Value) bool {
	if items, ok := v.AsArray(); ok {
		for _, item := range items {
			if conformsEntry(item) {
				return true
			}
		}
		return false
	}
	return conformsEntry(v)
}

func conformsEntry(v jsonld.Value) bool {
	if s, ok := v.AsString(); ok {
		return IsProfileIRI(s)
	}
	if id, ok := v.RefID(); ok {
		return IsProfileIRI(id)
	}
	return false
}
