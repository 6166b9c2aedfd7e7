package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ro-crate-metadata.json"), crateDoc("Main", subcrateRef("./experiments/")))
	writeFile(t, filepath.Join(root, "experiments", "ro-crate-metadata.json"), crateDoc("Experiments", subcrateRef("./run1/")))
	writeFile(t, filepath.Join(root, "experiments", "run1", "run1-ro-crate-metadata.json"), crateDoc("Run 1"))

	l := NewFilesystemLoader(root, nil)
	ctx := context.Background()

	doc, err := l.Root()
	require.NoError(t, err)
	assert.Equal(t, "Main", rootName(t, doc.Graph))

	g, err := l.Load(ctx, "./experiments/", "")
	require.NoError(t, err)
	assert.Equal(t, "Experiments", rootName(t, g))
	assert.True(t, l.Owns("experiments"))

	g, err = l.Load(ctx, "./run1/", "experiments")
	require.NoError(t, err)
	assert.Equal(t, "Run 1", rootName(t, g))
	assert.True(t, l.Owns("experiments/run1"))
}

func TestFilesystemLoader_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ro-crate-metadata.json"), crateDoc("Main"))
	writeFile(t, filepath.Join(root, "empty", "data.csv"), "a,b\n")

	l := NewFilesystemLoader(root, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		parentNS string
		wantIs   error
	}{
		{name: "no metadata", id: "./empty/", wantIs: ErrNoMetadata},
		{name: "missing directory", id: "./missing/"},
		{name: "absolute id", id: "https://example.org/crate/"},
		{name: "escapes the crate", id: "../outside/"},
		{name: "unknown parent namespace", id: "./x/", parentNS: "nowhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(ctx, tt.id, tt.parentNS)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestFilesystemLoader_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "ro-crate-metadata.json"), crateDoc("Sub"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFilesystemLoader(root, nil).Load(ctx, "./sub/", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZipLoader(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		root  string
	}{
		{
			name: "metadata at archive root",
			files: map[string]string{
				"ro-crate-metadata.json":             crateDoc("Main", subcrateRef("./experiments/")),
				"experiments/ro-crate-metadata.json": crateDoc("Experiments"),
			},
			root: ".",
		},
		{
			name: "zipped folder",
			files: map[string]string{
				"my-crate/ro-crate-metadata.json":             crateDoc("Main", subcrateRef("./experiments/")),
				"my-crate/experiments/ro-crate-metadata.json": crateDoc("Experiments"),
			},
			root: "my-crate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := filepath.Join(t.TempDir(), "crate.zip")
			writeZip(t, name, tt.files)

			a, err := OpenZip(name)
			require.NoError(t, err)
			defer a.Close()
			assert.Equal(t, tt.root, a.Root)

			l := NewZipLoader(a, nil)
			doc, err := l.Root()
			require.NoError(t, err)
			assert.Equal(t, "Main", rootName(t, doc.Graph))

			g, err := l.Load(context.Background(), "./experiments/", "")
			require.NoError(t, err)
			assert.Equal(t, "Experiments", rootName(t, g))
		})
	}
}

func TestOpenZip_NoRoot(t *testing.T) {
	name := filepath.Join(t.TempDir(), "crate.zip")
	writeZip(t, name, map[string]string{
		"a/ro-crate-metadata.json": crateDoc("A"),
		"b/ro-crate-metadata.json": crateDoc("B"),
	})

	_, err := OpenZip(name)
	assert.ErrorIs(t, err, ErrNoMetadata)
}
