package rocrate

import "strings"

// ConsolidateNamespace is the base IRI for consolidation terms.
const ConsolidateNamespace = "https://w3id.org/ro/terms/consolidate/"

// ProfilePrefix is the IRI prefix of every RO-Crate specification version.
const ProfilePrefix = "https://w3id.org/ro/crate/"

// DefaultContext is used when a document carries no context of its own.
const DefaultContext = "https://w3id.org/ro/crate/1.1/context"

// Well-known entity identifiers.
const (
	// MetadataDescriptorID is the id (and file name suffix) of the metadata descriptor.
	MetadataDescriptorID = "ro-crate-metadata.json"

	// RootID is the id of a crate's root data entity.
	RootID = "./"
)

// Consolidation term IRIs and their short forms.
const (
	// SubcrateIRI types a folder synthesized from a subcrate.
	SubcrateIRI = ConsolidateNamespace + "Subcrate"

	// ConsolidatedEntitiesIRI lists the ids absorbed into a folder.
	// Range: set of @id references
	ConsolidatedEntitiesIRI = ConsolidateNamespace + "consolidatedEntities"

	TypeSubcrate             = "Subcrate"
	PropConsolidatedEntities = "consolidatedEntities"
)

// RO-Crate terms used during consolidation.
const (
	TypeDataset = "Dataset"

	PropConformsTo = "conformsTo"
	PropSubjectOf  = "subjectOf"
	PropHasPart    = "hasPart"
	PropName       = "name"
	PropAbout      = "about"
)

// IsProfileIRI reports whether iri denotes conformance to RO-Crate: any
// versioned profile under ProfilePrefix, the bare crate IRI, or one of its
// fragment forms.
func IsProfileIRI(iri string) bool {
	const bare = "https://w3id.org/ro/crate"
	return strings.HasPrefix(iri, ProfilePrefix) ||
		iri == bare ||
		strings.HasPrefix(iri, bare+"#")
}
