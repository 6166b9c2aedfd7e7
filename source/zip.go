package source

import (
	"archive/zip"
	"fmt"
	"log/slog"
)

// ZipArchive is an opened crate archive.
type ZipArchive struct {
	*zip.ReadCloser

	// Root is the directory of the root crate inside the archive.
	Root string
}

// OpenZip opens the archive at name and locates its root crate.
func OpenZip(name string) (*ZipArchive, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", name, err)
	}
	root, err := FindRoot(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &ZipArchive{ReadCloser: rc, Root: root}, nil
}

// NewZipLoader creates a loader for the crates inside a.
// Subcrates are read from {root}/{parent namespace}/{id}.
func NewZipLoader(a *ZipArchive, logger *slog.Logger) *FSLoader {
	return NewFSLoader(&a.Reader, a.Root, logger)
}
