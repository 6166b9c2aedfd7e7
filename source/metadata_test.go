package source

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semstreams/pkg/errs"
)

func TestFindMetadata(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		dir     string
		want    string
		wantErr error
	}{
		{
			name:  "standard name",
			files: []string{"ro-crate-metadata.json", "data.csv"},
			dir:   ".",
			want:  "ro-crate-metadata.json",
		},
		{
			name:  "standard preferred over prefixed",
			files: []string{"a-ro-crate-metadata.json", "ro-crate-metadata.json"},
			dir:   ".",
			want:  "ro-crate-metadata.json",
		},
		{
			name:  "first prefixed file",
			files: []string{"sub/zz-ro-crate-metadata.json", "sub/aa-ro-crate-metadata.json"},
			dir:   "sub",
			want:  "sub/aa-ro-crate-metadata.json",
		},
		{
			name:    "nothing found",
			files:   []string{"sub/data.csv"},
			dir:     "sub",
			wantErr: ErrNoMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for _, f := range tt.files {
				fsys[f] = &fstest.MapFile{Data: []byte("{}")}
			}

			got, err := FindMetadata(fsys, tt.dir)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCrate(t *testing.T) {
	fsys := fstest.MapFS{
		"crate/ro-crate-metadata.json":  {Data: []byte(crateDoc("Crate"))},
		"broken/ro-crate-metadata.json": {Data: []byte(`{"@graph": [`)},
	}

	doc, err := ReadCrate(fsys, "crate")
	require.NoError(t, err)
	assert.Equal(t, "Crate", rootName(t, doc.Graph))

	_, err = ReadCrate(fsys, "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrParsingFailed))
	assert.True(t, errs.IsInvalid(err))
}

func TestFindRoot(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    string
		wantErr bool
	}{
		{
			name:  "metadata at archive root",
			files: []string{"ro-crate-metadata.json", "sub/ro-crate-metadata.json"},
			want:  ".",
		},
		{
			name:  "single top-level folder",
			files: []string{"my-crate/ro-crate-metadata.json", "my-crate/data.csv"},
			want:  "my-crate",
		},
		{
			name:  "macOS resource folder ignored",
			files: []string{"my-crate/ro-crate-metadata.json", "__MACOSX/my-crate/._ro-crate-metadata.json"},
			want:  "my-crate",
		},
		{
			name:    "several top-level folders",
			files:   []string{"a/ro-crate-metadata.json", "b/ro-crate-metadata.json"},
			wantErr: true,
		},
		{
			name:    "metadata nested too deep",
			files:   []string{"outer/inner/ro-crate-metadata.json"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for _, f := range tt.files {
				fsys[f] = &fstest.MapFile{Data: []byte("{}")}
			}

			got, err := FindRoot(fsys)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoMetadata)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
