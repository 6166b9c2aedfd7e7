package consolidate

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcrate/jsonld"
)

func parseValue(t *testing.T, s string) jsonld.Value {
	t.Helper()
	v, err := jsonld.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func parseObject(t *testing.T, s string) *jsonld.Object {
	t.Helper()
	obj, ok := parseValue(t, s).AsObject()
	require.True(t, ok, "not an object: %s", s)
	return obj
}

func encode(v jsonld.Value) string {
	return string(jsonld.Marshal(v))
}

func TestMergeValues(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"equal scalars", `"x"`, `"x"`, `"x"`},
		{"different scalars", `"Alice"`, `"Alice Smith"`, `["Alice","Alice Smith"]`},
		{"arrays union", `["a","b"]`, `["b","c"]`, `["a","b","c"]`},
		{"array and new scalar", `["a","b"]`, `"c"`, `["a","b","c"]`},
		{"array and present scalar", `["a","b"]`, `"a"`, `["a","b"]`},
		{"scalar and array", `"c"`, `["a","b"]`, `["a","b","c"]`},
		{"references by id", `[{"@id":"#a"}]`, `{"@id":"#a"}`, `[{"@id":"#a"}]`},
		{"different references", `{"@id":"#a"}`, `{"@id":"#b"}`, `[{"@id":"#a"},{"@id":"#b"}]`},
		{"objects merge", `{"x":1,"y":"a"}`, `{"y":"b","z":true}`, `{"x":1,"y":["a","b"],"z":true}`},
		{"incompatible shapes", `1`, `{"k":"v"}`, `[1,{"k":"v"}]`},
		{"number and string", `1`, `"1"`, `[1,"1"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeValues(parseValue(t, tt.a), parseValue(t, tt.b))
			assert.Equal(t, tt.want, encode(got))
		})
	}
}

func TestMergeValues_DoesNotAlias(t *testing.T) {
	a := parseValue(t, `["a"]`)
	b := parseValue(t, `"b"`)

	merged := MergeValues(a, b)
	items, _ := merged.AsArray()
	items[0] = jsonld.String("changed")

	assert.Equal(t, `["a"]`, encode(a))
}

func elementSet(v jsonld.Value) []string {
	items, ok := v.AsArray()
	if !ok {
		items = []jsonld.Value{v}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, encode(item))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func TestMergeValues_MembershipOrderInsensitive(t *testing.T) {
	pairs := [][2]string{
		{`["a","b"]`, `["b","c"]`},
		{`["a"]`, `"z"`},
		{`"x"`, `"y"`},
		{`[{"@id":"#1"},"s"]`, `[{"@id":"#2"},{"@id":"#1"}]`},
	}

	for _, p := range pairs {
		a, b := parseValue(t, p[0]), parseValue(t, p[1])
		ab := elementSet(MergeValues(a, b))
		ba := elementSet(MergeValues(b, a))
		assert.Equal(t, ab, ba, "merge(%s, %s)", p[0], p[1])
	}
}

func TestMergeEntities(t *testing.T) {
	a := parseObject(t, `{"@id":"https://orcid.org/1","@type":"Person","name":"Alice","email":"a@x"}`)
	b := parseObject(t, `{"@id":"https://orcid.org/1","@type":["Person","Author"],"name":"Alice Smith","affiliation":{"@id":"#org"}}`)

	got := MergeEntities(a, b)

	want := `{"@id":"https://orcid.org/1","@type":["Person","Author"],"name":["Alice","Alice Smith"],"email":"a@x","affiliation":{"@id":"#org"}}`
	assert.Equal(t, want, encode(jsonld.ObjectValue(got)))
}

func TestMergeEntities_SingleTypeStaysBare(t *testing.T) {
	a := parseObject(t, `{"@id":"urn:x","@type":["Person"]}`)
	b := parseObject(t, `{"@id":"urn:x","@type":"Person"}`)

	got := MergeEntities(a, b)
	typ, _ := got.Get(jsonld.KeyType)
	assert.Equal(t, `"Person"`, encode(typ))
}

func TestMergeByID(t *testing.T) {
	entities := []*jsonld.Object{
		parseObject(t, `{"@id":"urn:a","v":1}`),
		parseObject(t, `{"@id":"urn:b","v":2}`),
		parseObject(t, `{"@id":"urn:a","v":3}`),
		parseObject(t, `{"name":"no id"}`),
	}

	merged := MergeByID(entities)
	require.Len(t, merged, 2)

	byID := make(map[string]string)
	for _, e := range merged {
		id, _ := e.ID()
		byID[id] = encode(jsonld.ObjectValue(e))
	}
	assert.Equal(t, `{"@id":"urn:a","v":[1,3]}`, byID["urn:a"])
	assert.Equal(t, `{"@id":"urn:b","v":2}`, byID["urn:b"])
}

func TestMergeEntities_FoldOrderIndependent(t *testing.T) {
	sources := []string{
		`{"@id":"urn:p","@type":"Person","name":"A","tags":["x"]}`,
		`{"@id":"urn:p","@type":["Person","Agent"],"name":"B","tags":"y"}`,
		`{"@id":"urn:p","name":"A","email":"p@x","tags":["y","z"]}`,
	}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	summarize := func(e *jsonld.Object) map[string][]string {
		out := make(map[string][]string)
		e.Range(func(k string, v jsonld.Value) bool {
			out[k] = elementSet(v)
			return true
		})
		return out
	}

	var reference map[string][]string
	for _, order := range orders {
		group := make([]*jsonld.Object, 0, len(order))
		for _, i := range order {
			group = append(group, parseObject(t, sources[i]))
		}
		merged := MergeByID(group)
		require.Len(t, merged, 1)

		got := summarize(merged[0])
		if reference == nil {
			reference = got
			continue
		}
		assert.Equal(t, reference, got, "fold order %v", order)
	}
}
