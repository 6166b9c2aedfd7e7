package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semstreams/pkg/errs"
)

const landingPage = `<!DOCTYPE html>
<html><head>
<title>Experiments</title>
<link rel="stylesheet" href="style.css">
<link rel="describedby" type="text/plain" href="readme.txt">
<link rel="cite-as describedby" type="application/ld+json" href="meta.json">
</head><body><h1>Experiments</h1></body></html>`

// crateServer serves a small published crate hierarchy:
//
//	/crates/main/ro-crate-metadata.json  root, references ./experiments/
//	/crates/main/experiments/            HTML landing page with signposting
//	/crates/main/experiments/meta.json   references ./nested/
//	/crates/main/experiments/nested/     JSON-LD served at the directory URL
type crateServer struct {
	*httptest.Server
}

func newCrateServer(t *testing.T) *crateServer {
	t.Helper()
	s := &crateServer{}
	routes := map[string]struct {
		contentType string
		body        string
	}{
		"/crates/main/ro-crate-metadata.json":   {"application/ld+json", crateDoc("Main", subcrateRef("./experiments/"))},
		"/crates/main/experiments/":             {"text/html; charset=utf-8", landingPage},
		"/crates/main/experiments/meta.json":    {"application/json", crateDoc("Experiments", subcrateRef("./nested/"))},
		"/crates/main/experiments/nested/":      {"application/ld+json", crateDoc("Nested")},
		"/crates/broken/ro-crate-metadata.json": {"application/json", `{"@graph": "nope"}`},
		"/crates/plain/":                        {"text/plain", "hello"},
		"/crates/unsigned/":                     {"text/html", "<html><head></head></html>"},
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crates/moved/" {
			http.Redirect(w, r, "/crates/main/ro-crate-metadata.json", http.StatusFound)
			return
		}
		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", route.contentType)
		_, _ = w.Write([]byte(route.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func testFetcher() *Fetcher {
	return NewFetcher(FetcherConfig{AllowHTTP: true, AllowPrivate: true})
}

func TestURLLoader_Hierarchy(t *testing.T) {
	srv := newCrateServer(t)
	l := NewURLLoader(testFetcher(), nil)
	ctx := context.Background()

	doc, err := l.Root(ctx, srv.URL+"/crates/main/")
	require.NoError(t, err)
	assert.Equal(t, "Main", rootName(t, doc.Graph))

	g, err := l.Load(ctx, "./experiments/", "")
	require.NoError(t, err)
	assert.Equal(t, "Experiments", rootName(t, g))

	g, err = l.Load(ctx, "./nested/", "experiments")
	require.NoError(t, err)
	assert.Equal(t, "Nested", rootName(t, g))

	assert.True(t, l.Owns("experiments/nested"))
	assert.False(t, l.Owns("other"))
}

func TestURLLoader_FetchDocument(t *testing.T) {
	srv := newCrateServer(t)
	l := NewURLLoader(testFetcher(), nil)

	tests := []struct {
		name     string
		path     string
		wantName string
		wantURL  string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "metadata file URL",
			path:     "/crates/main/ro-crate-metadata.json",
			wantName: "Main",
			wantURL:  "/crates/main/ro-crate-metadata.json",
		},
		{
			name:     "directory URL without trailing slash",
			path:     "/crates/main",
			wantName: "Main",
			wantURL:  "/crates/main/ro-crate-metadata.json",
		},
		{
			name:     "signposting landing page",
			path:     "/crates/main/experiments/",
			wantName: "Experiments",
			wantURL:  "/crates/main/experiments/meta.json",
		},
		{
			name:     "redirect followed",
			path:     "/crates/moved/",
			wantName: "Main",
			wantURL:  "/crates/main/ro-crate-metadata.json",
		},
		{
			name: "missing crate",
			path: "/crates/none/",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "malformed metadata",
			path: "/crates/broken/ro-crate-metadata.json",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errs.ErrParsingFailed)
			},
		},
		{
			name: "neither JSON nor HTML",
			path: "/crates/plain/",
			check: func(t *testing.T, err error) {
				assert.True(t, errs.IsInvalid(err))
			},
		},
		{
			name: "landing page without signposting",
			path: "/crates/unsigned/",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoMetadata)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, got, err := l.FetchDocument(context.Background(), srv.URL+tt.path)
			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rootName(t, doc.Graph))
			assert.Equal(t, srv.URL+tt.wantURL, got)
		})
	}
}

func TestURLLoader_LoadReference(t *testing.T) {
	srv := newCrateServer(t)
	l := NewURLLoader(testFetcher(), nil)
	ctx := context.Background()

	_, err := l.Root(ctx, srv.URL+"/crates/main/")
	require.NoError(t, err)

	ref := jsonld.NewObject()
	ref.SetID("./elsewhere/")
	ref.Set("subjectOf", jsonld.Ref(srv.URL+"/crates/main/experiments/meta.json"))

	g, err := l.LoadReference(ctx, "./elsewhere/", ref, "")
	require.NoError(t, err)
	assert.Equal(t, "Experiments", rootName(t, g))
	assert.True(t, l.Owns("elsewhere"))

	// A dead subjectOf link falls back to the subcrate id.
	dead := jsonld.NewObject()
	dead.SetID("./experiments/")
	dead.Set("subjectOf", jsonld.Ref(srv.URL+"/gone/ro-crate-metadata.json"))

	g, err = l.LoadReference(ctx, "./experiments/", dead, "")
	require.NoError(t, err)
	assert.Equal(t, "Experiments", rootName(t, g))
}

func TestFetcher_Policy(t *testing.T) {
	srv := newCrateServer(t)

	_, err := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL+"/crates/main/ro-crate-metadata.json")
	require.Error(t, err)
	assert.True(t, errs.IsInvalid(err), "plain http to localhost must be rejected: %v", err)

	_, err = NewFetcher(FetcherConfig{AllowHTTP: true}).Fetch(context.Background(), srv.URL+"/crates/main/ro-crate-metadata.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost")
}

func TestFetcher_SizeLimit(t *testing.T) {
	srv := newCrateServer(t)
	f := NewFetcher(FetcherConfig{AllowHTTP: true, AllowPrivate: true, MaxContentSize: 16})

	_, err := f.Fetch(context.Background(), srv.URL+"/crates/main/ro-crate-metadata.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content too large")
}

func TestFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL+"/x")
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}

func TestFindDescribedBy(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
		ok   bool
	}{
		{"typed link preferred", landingPage, "meta.json", true},
		{"untyped link", `<html><head><link rel="describedby" href="m.json"></head></html>`, "m.json", true},
		{"case-insensitive rel", `<link REL="DescribedBy" href="m.json">`, "m.json", true},
		{"no link", `<html><body><a rel="describedby" href="x">x</a></body></html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findDescribedBy([]byte(tt.html))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://example.org/c/ro-crate-metadata.json", "https://example.org/c/"},
		{"https://example.org/c/meta.json", "https://example.org/c/"},
		{"https://example.org/c/", "https://example.org/c/"},
		{"https://example.org/c", "https://example.org/c/"},
	}
	for _, tt := range tests {
		if got := baseOf(tt.in); got != tt.want {
			t.Errorf("baseOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
