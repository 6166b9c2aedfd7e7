package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/source/weburl"
	"github.com/c360studio/semstreams/pkg/errs"
)

// Kind identifies the form of a crate reference.
type Kind int

const (
	KindDirectory Kind = iota
	KindMetadataFile
	KindZip
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindMetadataFile:
		return "metadata-file"
	case KindZip:
		return "zip"
	case KindURL:
		return "url"
	default:
		return "unknown"
	}
}

// Options configures Open.
type Options struct {
	Fetcher FetcherConfig
	Logger  *slog.Logger

	// Name overrides the name used in local crate ids, for archives saved
	// under temporary file names.
	Name string
}

// Opened is a crate ready for consolidation.
type Opened struct {
	Document *jsonld.Document
	Loader   *MultiLoader
	CrateID  string
	Kind     Kind

	closer io.Closer
}

// Close releases the archive behind a zip crate.
func (o *Opened) Close() error {
	if o.closer == nil {
		return nil
	}
	err := o.closer.Close()
	o.closer = nil
	return err
}

// Detect classifies ref without reading it.
func Detect(ref string) (Kind, error) {
	if weburl.IsHTTP(ref) {
		return KindURL, nil
	}
	info, err := os.Stat(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errs.WrapInvalid(fmt.Errorf("%w: %s", ErrNotFound, ref), "source", "Detect", "stat crate")
		}
		return 0, fmt.Errorf("stat %s: %w", ref, err)
	}
	switch {
	case info.IsDir():
		return KindDirectory, nil
	case strings.EqualFold(filepath.Ext(ref), ".zip"):
		return KindZip, nil
	case strings.HasSuffix(ref, ".json"):
		return KindMetadataFile, nil
	}
	return 0, errs.WrapInvalid(fmt.Errorf("%s is not a directory, zip archive or metadata file", ref),
		"source", "Detect", "classify crate")
}

// Open resolves ref into its root document and a loader for its subcrates.
// Subcrates referenced by absolute http(s) ids are fetched from the web
// whatever the kind of ref.
func Open(ctx context.Context, ref string, opts Options) (*Opened, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kind, err := Detect(ref)
	if err != nil {
		return nil, err
	}

	remote := NewURLLoader(NewFetcher(opts.Fetcher), logger)
	o := &Opened{Kind: kind, Loader: &MultiLoader{Remote: remote}}

	switch kind {
	case KindURL:
		o.Document, err = remote.Root(ctx, ref)
		o.CrateID = weburl.NormalizeCrateURL(ref)

	case KindDirectory:
		local := NewFilesystemLoader(ref, logger)
		o.Loader.Local = local
		o.Document, err = local.Root()
		o.CrateID = localCrateID(dirName(ref), opts.Name)

	case KindMetadataFile:
		dir := filepath.Dir(ref)
		local := NewFilesystemLoader(dir, logger)
		o.Loader.Local = local
		o.Document, err = ReadMetadata(os.DirFS(dir), filepath.Base(ref))
		o.CrateID = localCrateID(dirName(dir), opts.Name)

	case KindZip:
		var a *ZipArchive
		if a, err = OpenZip(ref); err != nil {
			return nil, err
		}
		o.closer = a
		local := NewZipLoader(a, logger)
		o.Loader.Local = local
		o.Document, err = local.Root()
		o.CrateID = zipCrateID(filepath.Base(ref), opts.Name)
	}
	if err != nil {
		o.Close()
		return nil, err
	}

	logger.Debug("Opened crate",
		slog.String("ref", ref),
		slog.String("kind", kind.String()),
		slog.String("crate_id", o.CrateID),
		slog.Int("entities", len(o.Document.Graph)))
	return o, nil
}

func dirName(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(dir)
}

// localCrateID gives local crates a fresh id: "{uuid}/{name}".
func localCrateID(name, hint string) string {
	if hint != "" {
		name = hint
	}
	id := uuid.New().String()
	if name == "" || name == "." || name == string(filepath.Separator) {
		return id
	}
	return id + "/" + name
}

// zipCrateID drops the archive extension and ignores temporary file names.
func zipCrateID(fileName, hint string) string {
	if hint != "" {
		return localCrateID(trimZipExt(hint), "")
	}
	name := trimZipExt(fileName)
	if strings.HasPrefix(name, "rocrate_") || isUUIDLike(name) {
		return uuid.New().String()
	}
	return localCrateID(name, "")
}

func trimZipExt(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		return name[:len(name)-len(".zip")]
	}
	return name
}

// isUUIDLike reports whether s is 32 hex digits, hyphens aside.
func isUUIDLike(s string) bool {
	n := 0
	for _, r := range s {
		switch {
		case r == '-':
			continue
		case (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			n++
		default:
			return false
		}
	}
	return n == 32
}
