package rocrate

import (
	"testing"

	"github.com/c360studio/semcrate/jsonld"
)

func TestIsProfileIRI(t *testing.T) {
	tests := []struct {
		iri  string
		want bool
	}{
		{"https://w3id.org/ro/crate/1.1", true},
		{"https://w3id.org/ro/crate/1.2-DRAFT", true},
		{"https://w3id.org/ro/crate", true},
		{"https://w3id.org/ro/crate#v1", true},
		{"https://w3id.org/ro/crateX", false},
		{"https://w3id.org/workflowhub/workflow-ro-crate/1.0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			if got := IsProfileIRI(tt.iri); got != tt.want {
				t.Errorf("IsProfileIRI(%q) = %v, want %v", tt.iri, got, tt.want)
			}
		})
	}
}

func TestConformsToROCrate(t *testing.T) {
	tests := []struct {
		name string
		json string
		want bool
	}{
		{"reference object", `{"@id":"https://w3id.org/ro/crate/1.1"}`, true},
		{"bare string", `"https://w3id.org/ro/crate/1.2"`, true},
		{"mixed list", `[{"@id":"https://example.org/profile"},{"@id":"https://w3id.org/ro/crate/1.1"}]`, true},
		{"other profile", `{"@id":"https://example.org/profile"}`, false},
		{"number", `42`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := jsonld.Parse([]byte(tt.json))
			if err != nil {
				t.Fatal(err)
			}
			if got := ConformsToROCrate(v); got != tt.want {
				t.Errorf("ConformsToROCrate(%s) = %v, want %v", tt.json, got, tt.want)
			}
		})
	}
}

func TestExtendContext(t *testing.T) {
	ext := `{"Subcrate":"https://w3id.org/ro/terms/consolidate/Subcrate","consolidatedEntities":{"@id":"https://w3id.org/ro/terms/consolidate/consolidatedEntities","@container":"@set","@type":"@id"}}`

	tests := []struct {
		name string
		ctx  jsonld.Value
		want string
	}{
		{"string context", jsonld.String(DefaultContext), `["` + DefaultContext + `",` + ext + `]`},
		{"null context", jsonld.Null(), `["` + DefaultContext + `",` + ext + `]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(jsonld.Marshal(ExtendContext(tt.ctx)))
			if got != tt.want {
				t.Errorf("ExtendContext() = %s\nwant %s", got, tt.want)
			}
		})
	}

	t.Run("list context extended once", func(t *testing.T) {
		once := ExtendContext(jsonld.String(DefaultContext))
		twice := ExtendContext(once)
		items, _ := twice.AsArray()
		if len(items) != 2 {
			t.Errorf("expected 2 context entries, got %d", len(items))
		}
	})
}
