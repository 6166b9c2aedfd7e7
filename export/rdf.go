// Package export serializes consolidated crates as JSON-LD, N-Triples or
// Turtle.
//
// RDF output expands terms against the RO-Crate 1.1 context plus any inline
// term definitions in the document's @context; it is not a general JSON-LD
// processor. Relative ids are resolved against an arcp base
// (arcp://uuid,{uuid}/) so that every subject is an absolute IRI.
package export

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
)

// TermKind distinguishes IRIs, blank nodes and literals.
type TermKind int

const (
	TermIRI TermKind = iota
	TermBlank
	TermLiteral
)

// Term is one position of a triple.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Language string
}

// IRI returns an IRI term.
func IRI(v string) Term { return Term{Kind: TermIRI, Value: v} }

// Literal returns a literal term; datatype may be empty for plain strings.
func Literal(v, datatype string) Term { return Term{Kind: TermLiteral, Value: v, Datatype: datatype} }

// Triple represents a semantic triple for export.
type Triple struct {
	Subject   Term
	Predicate string
	Object    Term
}

// NewBase returns a fresh arcp base IRI for resolving relative ids.
func NewBase() string {
	return "arcp://uuid," + uuid.New().String() + "/"
}

// termDef is one term definition taken from the document's context.
type termDef struct {
	iri    string
	typeID bool
}

// expander turns a document into triples.
type expander struct {
	base     string
	vocab    string
	terms    map[string]termDef
	prefixes map[string]string
	blanks   int
	triples  []Triple
}

// ToTriples expands every entity of doc into triples. Relative ids resolve
// against base; an empty base gets a fresh NewBase.
func ToTriples(doc *jsonld.Document, base string) []Triple {
	if base == "" {
		base = NewBase()
	}
	e := &expander{
		base:     base,
		terms:    make(map[string]termDef),
		prefixes: make(map[string]string),
	}
	e.readContext(doc.Context)
	for _, entity := range doc.Graph {
		e.node(entity)
	}
	return e.triples
}

func (e *expander) readContext(ctx jsonld.Value) {
	if items, ok := ctx.AsArray(); ok {
		for _, item := range items {
			e.readContext(item)
		}
		return
	}
	obj, ok := ctx.AsObject()
	if !ok {
		// Remote contexts are assumed to be the RO-Crate context.
		return
	}

	obj.Range(func(key string, v jsonld.Value) bool {
		if key == "@vocab" {
			e.vocab, _ = v.AsString()
			return true
		}
		if strings.HasPrefix(key, "@") {
			return true
		}
		if s, ok := v.AsString(); ok {
			e.terms[key] = termDef{iri: s}
			if strings.HasSuffix(s, "/") || strings.HasSuffix(s, "#") {
				e.prefixes[key] = s
			}
			return true
		}
		if def, ok := v.AsObject(); ok {
			var td termDef
			if id, ok := def.Get(jsonld.KeyID); ok {
				td.iri, _ = id.AsString()
			}
			if t, ok := def.Get(jsonld.KeyType); ok {
				s, _ := t.AsString()
				td.typeID = s == jsonld.KeyID
			}
			if td.iri != "" {
				e.terms[key] = td
			}
		}
		return true
	})
}

// expandTerm expands a property or type name to an IRI.
func (e *expander) expandTerm(term string) string {
	if def, ok := e.terms[term]; ok {
		return e.expandCompact(def.iri)
	}
	if strings.Contains(term, ":") {
		return e.expandCompact(term)
	}
	if e.vocab != "" {
		return e.vocab + term
	}
	return rocrate.GetTermIRI(term)
}

func (e *expander) expandCompact(s string) string {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return s
	}
	if ns, known := e.prefixes[prefix]; known && !strings.HasPrefix(local, "//") {
		return ns + local
	}
	return s
}

// resolve turns an entity id into an absolute IRI.
func (e *expander) resolve(id string) string {
	if expanded := e.expandCompact(id); expanded != id {
		return expanded
	}
	if u, err := url.Parse(id); err == nil && u.Scheme != "" {
		return id
	}

	rel := strings.TrimPrefix(id, "./")
	if rel == "" || strings.HasPrefix(rel, "#") || strings.HasPrefix(rel, "?") {
		return e.base + rel
	}
	cleaned := path.Clean("/" + rel)
	if strings.HasSuffix(rel, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return e.base + escapePath(cleaned[1:])
}

func (e *expander) blank() Term {
	t := Term{Kind: TermBlank, Value: fmt.Sprintf("b%d", e.blanks)}
	e.blanks++
	return t
}

// node emits the triples of obj and returns its subject.
func (e *expander) node(obj *jsonld.Object) Term {
	var subject Term
	if id, ok := obj.ID(); ok {
		subject = IRI(e.resolve(id))
	} else {
		subject = e.blank()
	}

	for _, t := range obj.Types() {
		e.emit(subject, rocrate.RDFType, IRI(e.expandTerm(t)))
	}

	obj.Range(func(key string, v jsonld.Value) bool {
		if strings.HasPrefix(key, "@") {
			return true
		}
		predicate := e.expandTerm(key)
		typeID := e.terms[key].typeID
		e.values(subject, predicate, v, typeID)
		return true
	})
	return subject
}

func (e *expander) values(subject Term, predicate string, v jsonld.Value, typeID bool) {
	if items, ok := v.AsArray(); ok {
		for _, item := range items {
			e.values(subject, predicate, item, typeID)
		}
		return
	}
	if object, ok := e.object(v, typeID); ok {
		e.emit(subject, predicate, object)
	}
}

func (e *expander) object(v jsonld.Value, typeID bool) (Term, bool) {
	switch v.Kind() {
	case jsonld.KindString:
		s, _ := v.AsString()
		if typeID {
			return IRI(e.resolve(s)), true
		}
		return Literal(s, ""), true
	case jsonld.KindBool:
		b, _ := v.AsBool()
		return Literal(fmt.Sprint(b), rocrate.XSDNamespace+"boolean"), true
	case jsonld.KindNumber:
		n, _ := v.AsNumber()
		s := n.String()
		if strings.ContainsAny(s, ".eE") {
			return Literal(s, rocrate.XSDNamespace+"double"), true
		}
		return Literal(s, rocrate.XSDNamespace+"integer"), true
	case jsonld.KindObject:
		obj, _ := v.AsObject()
		if lit, ok := obj.Get("@value"); ok {
			return e.valueObject(obj, lit)
		}
		if obj.IsReference() {
			id, _ := obj.ID()
			return IRI(e.resolve(id)), true
		}
		return e.node(obj), true
	}
	return Term{}, false
}

func (e *expander) valueObject(obj *jsonld.Object, lit jsonld.Value) (Term, bool) {
	var t Term
	switch lit.Kind() {
	case jsonld.KindNull, jsonld.KindArray, jsonld.KindObject:
		return Term{}, false
	case jsonld.KindString:
		s, _ := lit.AsString()
		t = Literal(s, "")
	default:
		var ok bool
		if t, ok = e.object(lit, false); !ok {
			return Term{}, false
		}
	}
	if dt, ok := obj.Get(jsonld.KeyType); ok {
		s, _ := dt.AsString()
		t.Datatype = e.expandCompact(s)
	}
	if lang, ok := obj.Get("@language"); ok {
		t.Language, _ = lang.AsString()
		t.Datatype = ""
	}
	return t, true
}

func (e *expander) emit(s Term, p string, o Term) {
	e.triples = append(e.triples, Triple{Subject: s, Predicate: p, Object: o})
}

// escapePath percent-encodes characters that are not allowed in an IRI.
func escapePath(p string) string {
	var sb strings.Builder
	for _, r := range p {
		if r <= 0x20 || strings.ContainsRune(`<>"{}|\^`+"`", r) {
			fmt.Fprintf(&sb, "%%%02X", r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
