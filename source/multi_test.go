package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/jsonld"
)

// recordingLoader records the calls routed to it.
type recordingLoader struct {
	name  string
	owned map[string]bool
	calls []string
}

func (r *recordingLoader) Load(_ context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	r.calls = append(r.calls, parentNamespace+"|"+subcrateID)
	return nil, nil
}

func (r *recordingLoader) Owns(namespace string) bool {
	return r.owned[namespace]
}

func TestMultiLoader_Routing(t *testing.T) {
	local := &recordingLoader{name: "local"}
	remote := &recordingLoader{name: "remote", owned: map[string]bool{"web": true}}
	merged := &recordingLoader{name: "merged"}
	deep := &recordingLoader{name: "deep"}

	m := &MultiLoader{Local: local, Remote: remote}
	m.Mount("imported", merged)
	m.Mount("imported/deep", deep)

	tests := []struct {
		id, parentNS string
		want         *recordingLoader
		wantCall     string
	}{
		{"./experiments/", "", local, "|./experiments/"},
		{"https://example.org/crate/", "", remote, "|https://example.org/crate/"},
		{"./inner/", "web", remote, "web|./inner/"},
		{"./sub/", "imported", merged, "|./sub/"},
		{"./x/", "imported/sub", merged, "sub|./x/"},
		{"./y/", "imported/deep/a", deep, "a|./y/"},
		{"./z/", "importedness", local, "importedness|./z/"},
	}

	for _, tt := range tests {
		t.Run(tt.parentNS+"|"+tt.id, func(t *testing.T) {
			before := len(tt.want.calls)
			_, err := m.Load(context.Background(), tt.id, tt.parentNS)
			require.NoError(t, err)
			require.Len(t, tt.want.calls, before+1, "call not routed to %s", tt.want.name)
			assert.Equal(t, tt.wantCall, tt.want.calls[before])
		})
	}
}

func TestMultiLoader_MissingLoader(t *testing.T) {
	m := &MultiLoader{Local: &recordingLoader{}}

	_, err := m.Load(context.Background(), "https://example.org/crate/", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, consolidate.ErrLoaderDisabled)

	var le *consolidate.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestMultiLoader_LoadReferenceFallsBackToLoad(t *testing.T) {
	local := &recordingLoader{}
	m := &MultiLoader{Local: local}

	ref := jsonld.NewObject()
	ref.SetID("./a/")
	_, err := m.LoadReference(context.Background(), "./a/", ref, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"|./a/"}, local.calls)
}
