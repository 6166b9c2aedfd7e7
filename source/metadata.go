package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/source/weburl"
)

var (
	// ErrNoMetadata is returned when a location holds no RO-Crate metadata file.
	ErrNoMetadata = errors.New("no RO-Crate metadata file found")
	// ErrNotFound is returned when a crate location does not exist.
	ErrNotFound = errors.New("not found")
)

// prefixedPattern matches prefixed metadata files such as
// "abc-ro-crate-metadata.json".
const prefixedPattern = "*-" + weburl.MetadataFileName

// macOSResourceDir is the resource fork directory added by the macOS
// archive utility. It never holds crate content.
const macOSResourceDir = "__MACOSX"

// FindMetadata returns the path of the metadata file in dir.
// ro-crate-metadata.json is preferred over prefixed variants; among prefixed
// files the lexically first one wins.
func FindMetadata(fsys fs.FS, dir string) (string, error) {
	dir = path.Clean(dir)

	standard := path.Join(dir, weburl.MetadataFileName)
	if info, err := fs.Stat(fsys, standard); err == nil && !info.IsDir() {
		return standard, nil
	}

	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dir, err)
	}
	matches, err := doublestar.Glob(sub, prefixedPattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("search %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoMetadata, dir)
	}
	sort.Strings(matches)
	return path.Join(dir, matches[0]), nil
}

// ReadMetadata reads and parses the metadata file at name.
func ReadMetadata(fsys fs.FS, name string) (*jsonld.Document, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	doc, err := jsonld.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}

// ReadCrate locates and parses the metadata file of the crate in dir.
func ReadCrate(fsys fs.FS, dir string) (*jsonld.Document, error) {
	name, err := FindMetadata(fsys, dir)
	if err != nil {
		return nil, err
	}
	return ReadMetadata(fsys, name)
}

// FindRoot returns the directory of the root crate inside an archive: "."
// when the metadata sits at the archive root, or the single top-level
// directory when the archive was made by zipping a folder.
func FindRoot(fsys fs.FS) (string, error) {
	if _, err := FindMetadata(fsys, "."); err == nil {
		return ".", nil
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", fmt.Errorf("list archive: %w", err)
	}
	var top []fs.DirEntry
	for _, e := range entries {
		if e.Name() == macOSResourceDir || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		top = append(top, e)
	}
	if len(top) != 1 || !top[0].IsDir() {
		return "", fmt.Errorf("%w at archive root", ErrNoMetadata)
	}

	if _, err := FindMetadata(fsys, top[0].Name()); err != nil {
		return "", err
	}
	return top[0].Name(), nil
}
