package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/jsonld"
)

// FSLoader loads subcrates from a file system: a directory tree or the
// contents of a zip archive.
type FSLoader struct {
	fsys   fs.FS
	logger *slog.Logger
	loc    locator
}

// NewFSLoader creates a loader whose top-level crate lives in root, a
// slash-separated directory inside fsys.
func NewFSLoader(fsys fs.FS, root string, logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &FSLoader{fsys: fsys, logger: logger}
	l.loc.set("", path.Clean(root))
	return l
}

// NewFilesystemLoader creates a loader for the crate in directory basePath.
func NewFilesystemLoader(basePath string, logger *slog.Logger) *FSLoader {
	return NewFSLoader(os.DirFS(basePath), ".", logger)
}

// Root reads the top-level crate.
func (l *FSLoader) Root() (*jsonld.Document, error) {
	root, _ := l.loc.get("")
	return ReadCrate(l.fsys, root)
}

// Owns reports whether the loader knows where namespace lives.
func (l *FSLoader) Owns(namespace string) bool {
	_, ok := l.loc.get(namespace)
	return ok
}

// Load reads the subcrate subcrateID relative to the directory of its parent.
func (l *FSLoader) Load(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if consolidate.Classify(subcrateID) == consolidate.KindAbsolute {
		return nil, fmt.Errorf("absolute subcrate id %q cannot be read from a local crate", subcrateID)
	}

	base, ok := l.loc.get(parentNamespace)
	if !ok {
		return nil, fmt.Errorf("no directory known for namespace %q", parentNamespace)
	}
	dir := path.Join(base, strings.TrimPrefix(subcrateID, "./"))
	if !fs.ValidPath(dir) {
		return nil, fmt.Errorf("subcrate %q resolves outside the crate", subcrateID)
	}

	l.logger.Debug("Loading subcrate from file system",
		slog.String("id", subcrateID),
		slog.String("parent_namespace", parentNamespace),
		slog.String("dir", dir))

	doc, err := ReadCrate(l.fsys, dir)
	if err != nil {
		return nil, err
	}
	l.loc.set(childNamespace(subcrateID, parentNamespace), dir)
	return doc.Graph, nil
}
