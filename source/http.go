package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/source/weburl"
	"github.com/c360studio/semstreams/pkg/errs"
)

// URLLoader loads crates published on the web.
type URLLoader struct {
	fetcher *Fetcher
	logger  *slog.Logger
	loc     locator
}

// NewURLLoader creates a loader that fetches through f.
func NewURLLoader(f *Fetcher, logger *slog.Logger) *URLLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &URLLoader{fetcher: f, logger: logger}
}

// Root fetches the top-level crate at rawURL. Relative subcrate ids of the
// crate resolve against the directory its metadata file was found in.
func (l *URLLoader) Root(ctx context.Context, rawURL string) (*jsonld.Document, error) {
	doc, metadataURL, err := l.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	l.loc.set("", baseOf(metadataURL))
	return doc, nil
}

// Owns reports whether namespace belongs to a crate fetched by l.
func (l *URLLoader) Owns(namespace string) bool {
	_, ok := l.loc.get(namespace)
	return ok
}

// Load fetches subcrateID. Absolute http(s) ids are fetched directly;
// relative ids resolve against the base URL of the parent crate.
func (l *URLLoader) Load(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	target, err := l.resolve(subcrateID, parentNamespace)
	if err != nil {
		return nil, err
	}
	return l.fetchSubcrate(ctx, target, subcrateID, parentNamespace)
}

// LoadReference follows the reference's subjectOf link when it names a URL
// and falls back to Load otherwise or when that link is dead.
func (l *URLLoader) LoadReference(ctx context.Context, subcrateID string, ref *jsonld.Object, parentNamespace string) (jsonld.Graph, error) {
	u, ok := consolidate.SubjectOfURL(ref)
	if !ok {
		return l.Load(ctx, subcrateID, parentNamespace)
	}

	graph, err := l.fetchSubcrate(ctx, u, subcrateID, parentNamespace)
	if err == nil {
		return graph, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	l.logger.Debug("subjectOf link failed, resolving subcrate id",
		slog.String("id", subcrateID), slog.String("url", u), slog.String("error", err.Error()))
	return l.Load(ctx, subcrateID, parentNamespace)
}

func (l *URLLoader) resolve(subcrateID, parentNamespace string) (string, error) {
	if weburl.IsHTTP(subcrateID) {
		return subcrateID, nil
	}
	if consolidate.Classify(subcrateID) == consolidate.KindAbsolute {
		return "", fmt.Errorf("unsupported subcrate URI %q", subcrateID)
	}
	base, ok := l.loc.get(parentNamespace)
	if !ok {
		return "", fmt.Errorf("no base URL known for namespace %q", parentNamespace)
	}
	return weburl.Resolve(base, subcrateID)
}

func (l *URLLoader) fetchSubcrate(ctx context.Context, target, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	l.logger.Debug("Loading subcrate from URL",
		slog.String("id", subcrateID),
		slog.String("parent_namespace", parentNamespace),
		slog.String("url", target))

	doc, metadataURL, err := l.FetchDocument(ctx, target)
	if err != nil {
		return nil, err
	}
	l.loc.set(childNamespace(subcrateID, parentNamespace), baseOf(metadataURL))
	return doc.Graph, nil
}

// FetchDocument fetches the crate at rawURL and returns it together with the
// URL its metadata was read from. It tries, in order: rawURL itself when it
// names a metadata file, {rawURL}/ro-crate-metadata.json, rawURL, and the
// target of a signposting describedby link on an HTML landing page.
func (l *URLLoader) FetchDocument(ctx context.Context, rawURL string) (*jsonld.Document, string, error) {
	if weburl.IsMetadataURL(rawURL) {
		res, err := l.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			return nil, "", err
		}
		return parseFetched(res)
	}

	metadataURL := weburl.MetadataURL(rawURL)
	res, err := l.fetcher.Fetch(ctx, metadataURL)
	switch {
	case err == nil && looksLikeJSON(res.Body):
		return parseFetched(res)
	case err != nil && ctx.Err() != nil:
		return nil, "", ctx.Err()
	case err != nil:
		l.logger.Debug("No metadata file beside crate URL",
			slog.String("url", metadataURL), slog.String("error", err.Error()))
	}

	res, err = l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	if looksLikeJSON(res.Body) {
		return parseFetched(res)
	}
	if !isHTML(res) {
		return nil, "", errs.WrapInvalid(errors.New("response is neither JSON-LD nor HTML"),
			"URLLoader", "FetchDocument", "read "+rawURL)
	}

	link, ok := findDescribedBy(res.Body)
	if !ok {
		return nil, "", fmt.Errorf("%w at %s: no describedby link on landing page", ErrNoMetadata, rawURL)
	}
	linked, err := weburl.Resolve(res.URL, link)
	if err != nil {
		return nil, "", err
	}
	l.logger.Debug("Following signposting link",
		slog.String("url", rawURL), slog.String("describedby", linked))

	res, err = l.fetcher.Fetch(ctx, linked)
	if err != nil {
		return nil, "", err
	}
	return parseFetched(res)
}

func parseFetched(res *FetchResult) (*jsonld.Document, string, error) {
	doc, err := jsonld.ParseDocument(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", res.URL, err)
	}
	return doc, res.URL, nil
}

// baseOf returns the URL that relative ids of the crate read from u resolve
// against: the containing directory of a metadata file, or u itself as a
// directory.
func baseOf(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	if ext := path.Ext(p); ext == ".json" || ext == ".jsonld" {
		return weburl.BaseURL(u[:strings.LastIndex(u, "/")])
	}
	return weburl.BaseURL(u)
}

func looksLikeJSON(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))
}

func isHTML(res *FetchResult) bool {
	if mt, _, err := mime.ParseMediaType(res.ContentType); err == nil {
		if mt == "text/html" || mt == "application/xhtml+xml" {
			return true
		}
	}
	return bytes.HasPrefix(bytes.TrimSpace(res.Body), []byte("<"))
}

// findDescribedBy returns the href of the first <link rel="describedby">.
// A link typed application/ld+json is preferred.
func findDescribedBy(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var first, typed string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if typed != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, href, typ string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "rel":
					rel = a.Val
				case "href":
					href = a.Val
				case "type":
					typ = a.Val
				}
			}
			if href != "" && hasRel(rel, "describedby") {
				if first == "" {
					first = href
				}
				if strings.Contains(typ, "ld+json") {
					typed = href
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	if typed != "" {
		return typed, true
	}
	return first, first != ""
}

func hasRel(rel, want string) bool {
	for _, r := range strings.Fields(rel) {
		if strings.EqualFold(r, want) {
			return true
		}
	}
	return false
}
