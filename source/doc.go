// Package source opens RO-Crates and loads their subcrates.
//
// # Overview
//
// A crate can live in a directory, a zip archive or on the web. Open resolves
// a command line reference into the parsed root document plus a loader that
// can fetch any subcrate the consolidator discovers below it.
//
// # Loaders
//
//   - FSLoader: subcrates in a directory tree (os.DirFS) or a zip archive
//   - URLLoader: subcrates published on the web, with signposting discovery
//   - MultiLoader: routes each request to the loader that owns its namespace
//
// Every loader remembers where the crate of each consolidated namespace was
// found. A subcrate id is resolved against the location of its parent, so
// "./run1/" inside "./experiments/" is read from experiments/run1.
//
// # Metadata discovery
//
// A directory holds its metadata in ro-crate-metadata.json. When that file is
// missing, the first prefixed file (*-ro-crate-metadata.json) is used.
//
// A zip archive has its root metadata either at the archive root or inside a
// single top-level directory, as produced by zipping a folder.
//
// # Remote crates
//
// A remote crate URL is tried as {url}/ro-crate-metadata.json first and then
// as-is. An HTML landing page is searched for a signposting link
// (<link rel="describedby">) that names the metadata file. All requests go
// through Fetcher, which applies the SSRF checks of package weburl.
package source
