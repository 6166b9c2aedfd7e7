package source

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semstreams/pkg/errs"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "crate", "ro-crate-metadata.json"), crateDoc("Crate"))
	writeFile(t, filepath.Join(dir, "Crate.ZIP"), "PK")
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	tests := []struct {
		ref     string
		want    Kind
		wantErr bool
	}{
		{ref: "https://example.org/crate/", want: KindURL},
		{ref: filepath.Join(dir, "crate"), want: KindDirectory},
		{ref: filepath.Join(dir, "crate", "ro-crate-metadata.json"), want: KindMetadataFile},
		{ref: filepath.Join(dir, "Crate.ZIP"), want: KindZip},
		{ref: filepath.Join(dir, "notes.txt"), wantErr: true},
		{ref: filepath.Join(dir, "missing"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.ref), func(t *testing.T) {
			got, err := Detect(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-crate")
	writeFile(t, filepath.Join(dir, "ro-crate-metadata.json"), crateDoc("Main"))

	o, err := Open(context.Background(), dir, Options{})
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, KindDirectory, o.Kind)
	assert.Equal(t, "Main", rootName(t, o.Document.Graph))
	assertLocalCrateID(t, o.CrateID, "my-crate")
}

func TestOpen_MetadataFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-crate")
	writeFile(t, filepath.Join(dir, "custom-ro-crate-metadata.json"), crateDoc("Prefixed", subcrateRef("./sub/")))
	writeFile(t, filepath.Join(dir, "sub", "ro-crate-metadata.json"), crateDoc("Sub"))

	o, err := Open(context.Background(), filepath.Join(dir, "custom-ro-crate-metadata.json"), Options{})
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, KindMetadataFile, o.Kind)
	assert.Equal(t, "Prefixed", rootName(t, o.Document.Graph))
	assertLocalCrateID(t, o.CrateID, "my-crate")

	g, err := o.Loader.Load(context.Background(), "./sub/", "")
	require.NoError(t, err)
	assert.Equal(t, "Sub", rootName(t, g))
}

func TestOpen_ZipCrateID(t *testing.T) {
	tests := []struct {
		file     string
		hint     string
		wantName string
	}{
		{file: "experiment.zip", wantName: "experiment"},
		{file: "rocrate_12345.zip", wantName: ""},
		{file: "0b5e5d0c-7f2a-4f3e-9c1d-2a3b4c5d6e7f.zip", wantName: ""},
		{file: "upload.zip", hint: "Field Data.zip", wantName: "Field Data"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			name := filepath.Join(t.TempDir(), tt.file)
			writeZip(t, name, map[string]string{"crate/ro-crate-metadata.json": crateDoc("Zipped")})

			o, err := Open(context.Background(), name, Options{Name: tt.hint})
			require.NoError(t, err)
			defer o.Close()

			assert.Equal(t, KindZip, o.Kind)
			assert.Equal(t, "Zipped", rootName(t, o.Document.Graph))
			assertLocalCrateID(t, o.CrateID, tt.wantName)
		})
	}
}

func TestOpen_URL(t *testing.T) {
	srv := newCrateServer(t)
	opts := Options{Fetcher: FetcherConfig{AllowHTTP: true, AllowPrivate: true}}

	o, err := Open(context.Background(), srv.URL+"/crates/main/ro-crate-metadata.json", opts)
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, KindURL, o.Kind)
	assert.Equal(t, srv.URL+"/crates/main", o.CrateID)

	g, err := o.Loader.Load(context.Background(), "./experiments/", "")
	require.NoError(t, err)
	assert.Equal(t, "Experiments", rootName(t, g))
}

func TestOpen_ConsolidatesLocalAndRemoteSubcrates(t *testing.T) {
	srv := newCrateServer(t)
	remoteID := srv.URL + "/crates/main/"

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ro-crate-metadata.json"),
		crateDoc("Local", subcrateRef("./experiments/"), subcrateRef(remoteID)))
	writeFile(t, filepath.Join(dir, "experiments", "ro-crate-metadata.json"), crateDoc("Local Experiments"))

	opts := Options{Fetcher: FetcherConfig{AllowHTTP: true, AllowPrivate: true}}
	o, err := Open(context.Background(), dir, opts)
	require.NoError(t, err)
	defer o.Close()

	res, err := consolidate.Consolidate(context.Background(),
		consolidate.Input{Graph: o.Document.Graph, Context: o.Document.Context},
		o.Loader, consolidate.DefaultOptions())
	require.NoError(t, err)

	for _, id := range []string{"./experiments/", "./main/", "./main/experiments/", "./main/experiments/nested/"} {
		e, ok := res.Graph.Find(id)
		require.True(t, ok, "missing folder %s", id)
		assert.True(t, e.HasType("Subcrate"), "%s is not a Subcrate", id)
	}
	assert.Equal(t, 0, res.Stats.SubcratesSkipped)
	assert.Equal(t, 5, res.Stats.DocumentsConsolidated)
}

func TestOpen_MissingMetadata(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func assertLocalCrateID(t *testing.T, id, name string) {
	t.Helper()
	prefix, rest, hasName := strings.Cut(id, "/")
	_, err := uuid.Parse(prefix)
	require.NoError(t, err, "crate id %q does not start with a uuid", id)
	if name == "" {
		assert.False(t, hasName, "crate id %q should carry no name", id)
		return
	}
	assert.Equal(t, name, rest)
}
