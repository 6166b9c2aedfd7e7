// Package rocrate provides the RO-Crate and consolidation vocabulary.
//
// RO-Crate terms are addressed by their short names as they appear in
// documents using the standard RO-Crate context. Consolidation adds two terms
// of its own, declared under ConsolidateNamespace:
//   - Subcrate: type tag for a folder that stands in for an absorbed subcrate
//   - consolidatedEntities: the set of entity ids absorbed into that folder
//
// ContextExtension returns the context object that declares both terms so a
// JSON-LD processor expands them to full IRIs.
package rocrate
