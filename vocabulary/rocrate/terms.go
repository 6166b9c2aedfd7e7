package rocrate

// Namespaces used by the RO-Crate 1.1 context.
const (
	SchemaNamespace = "http://schema.org/"
	DCTNamespace    = "http://purl.org/dc/terms/"
	PCDMNamespace   = "http://pcdm.org/models#"
	RDFType         = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	XSDNamespace    = "http://www.w3.org/2001/XMLSchema#"
)

// TermIRIMap maps RO-Crate context terms that are not schema.org terms to
// their IRIs.
var TermIRIMap = map[string]string{
	PropConformsTo:           DCTNamespace + "conformsTo",
	"File":                   SchemaNamespace + "MediaObject",
	"RepositoryCollection":   PCDMNamespace + "Collection",
	"RepositoryObject":       PCDMNamespace + "Object",
	"hasMember":              PCDMNamespace + "hasMember",
	TypeSubcrate:             SubcrateIRI,
	PropConsolidatedEntities: ConsolidatedEntitiesIRI,
}

// GetTermIRI returns the IRI a bare term expands to under the RO-Crate
// context. Unmapped terms fall back to schema.org.
func GetTermIRI(term string) string {
	if iri, ok := TermIRIMap[term]; ok {
		return iri
	}
	return SchemaNamespace + term
}
