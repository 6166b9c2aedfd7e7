package source

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcrate/jsonld"
)

const conformsCrate = `"conformsTo": {"@id": "https://w3id.org/ro/crate/1.1"}`

// crateDoc builds a metadata document whose root is named name.
func crateDoc(name string, entities ...string) string {
	graph := []string{
		`{"@id": "ro-crate-metadata.json", "@type": "CreativeWork", "about": {"@id": "./"}, ` + conformsCrate + `}`,
		fmt.Sprintf(`{"@id": "./", "@type": "Dataset", "name": %q}`, name),
	}
	graph = append(graph, entities...)
	return `{"@context": "https://w3id.org/ro/crate/1.1/context", "@graph": [` + strings.Join(graph, ", ") + `]}`
}

// subcrateRef is a parent entity pointing at a nested crate.
func subcrateRef(id string) string {
	return fmt.Sprintf(`{"@id": %q, "@type": "Dataset", %s}`, id, conformsCrate)
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

// writeZip writes an archive with the given slash-separated entries.
func writeZip(t *testing.T, name string, files map[string]string) {
	t.Helper()
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for entry, content := range files {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func rootName(t *testing.T, g jsonld.Graph) string {
	t.Helper()
	root, ok := g.Find("./")
	require.True(t, ok, "graph has no root entity")
	v, ok := root.Get("name")
	require.True(t, ok, "root has no name")
	s, _ := v.AsString()
	return s
}
