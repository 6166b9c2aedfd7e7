// Package consolidate flattens a hierarchy of RO-Crate documents into one.
//
// A crate's root document may reference nested crates ("subcrates") as
// Dataset entities whose conformsTo names the RO-Crate profile. Consolidate
// walks that hierarchy depth-first through a Loader, and produces a single
// document in which:
//
//   - local identifiers from each subcrate are rewritten under the subcrate's
//     namespace ("./data.csv" in subcrate "experiments" becomes
//     "./experiments/data.csv"), so entities from different documents never
//     collide
//   - entities with an absolute identifier that appear in several documents
//     are union-merged into one
//   - each absorbed subcrate is replaced by a folder entity typed Dataset
//     (and Subcrate) whose consolidatedEntities property lists what came from it
//
// # Identifier kinds
//
// Rewriting depends on the kind of identifier:
//
//	./                       Root                rewritten to ./{ns}/
//	data.csv, ./a/b.txt      Relative            rewritten to ./{ns}/{path}
//	#person1                 Fragment            kept on first use, else #{ns}-person1
//	https://, urn:, ...      Absolute            never rewritten, merged instead
//	ro-crate-metadata.json   MetadataDescriptor  never rewritten
//
// # Loading
//
// Subcrates are fetched through the Loader interface. Package source provides
// filesystem, zip archive and HTTP implementations. A failed load of a
// discovered subcrate is not an error: the reference entity stays in place
// and the run continues.
//
// # Explicit merges
//
// Input.Merges places additional, unrelated crates under caller-chosen folder
// ids. Folder ids are validated before anything is loaded, and a folder whose
// namespace was already used is rejected with ErrDuplicateFolderID.
package consolidate
