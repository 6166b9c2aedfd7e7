package jsonld

import (
	"fmt"
	"io"

	"github.com/c360studio/semstreams/pkg/errs"
)

// Graph is the ordered entity list of one document.
type Graph []*Object

// Clone deep-copies every entity.
func (g Graph) Clone() Graph {
	if g == nil {
		return nil
	}
	c := make(Graph, len(g))
	for i, e := range g {
		c[i] = e.Clone()
	}
	return c
}

// Find returns the first entity with the given id.
func (g Graph) Find(id string) (*Object, bool) {
	for _, e := range g {
		if eid, ok := e.ID(); ok && eid == id {
			return e, true
		}
	}
	return nil, false
}

// Document is a flattened JSON-LD document: a context and a graph.
type Document struct {
	Context Value
	Graph   Graph
}

// ParseDocument decodes a document. It fails when "@graph" is missing or
// holds anything other than objects. A missing "@context" leaves Context null.
func ParseDocument(data []byte) (*Document, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
	}
	root, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: document is %s, not object", errs.ErrParsingFailed, v.Kind())
	}

	doc := &Document{}
	if ctx, ok := root.Get(KeyContext); ok {
		doc.Context = ctx
	}

	gv, ok := root.Get(KeyGraph)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", errs.ErrParsingFailed, KeyGraph)
	}
	items, ok := gv.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not array", errs.ErrParsingFailed, KeyGraph, gv.Kind())
	}
	doc.Graph = make(Graph, 0, len(items))
	for i, item := range items {
		entity, ok := item.AsObject()
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %s, not object", errs.ErrParsingFailed, KeyGraph, i, item.Kind())
		}
		doc.Graph = append(doc.Graph, entity)
	}
	return doc, nil
}

// ReadDocument reads and decodes a document from r.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseDocument(data)
}

// Value returns the document as {"@context": ..., "@graph": [...]}.
func (d *Document) Value() Value {
	root := NewObject()
	root.Set(KeyContext, d.Context)
	items := make([]Value, len(d.Graph))
	for i, e := range d.Graph {
		items[i] = ObjectValue(e)
	}
	root.Set(KeyGraph, Array(items...))
	return ObjectValue(root)
}

// Encode writes the document to w followed by a newline.
func (d *Document) Encode(w io.Writer, pretty bool) error {
	var data []byte
	if pretty {
		data = MarshalIndent(d.Value())
	} else {
		data = Marshal(d.Value())
	}
	data = append(data, '\n')
	_, err := w.Write(data)
	return err
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Marshal(d.Value()), nil
}
