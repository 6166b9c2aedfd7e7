package export

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatJSONLD produces the consolidated JSON-LD document.
	FormatJSONLD Format = "jsonld"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".json",
		Description: "JSON-LD - RO-Crate metadata document",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat parses a format name. Empty means JSON-LD; "nt" and "ttl"
// are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "jsonld", "json-ld", "json":
		return FormatJSONLD, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "turtle", "ttl":
		return FormatTurtle, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Options configures Write.
type Options struct {
	Format Format
	// Pretty indents JSON-LD output.
	Pretty bool
	// Base resolves relative ids in RDF output. Empty means a fresh NewBase.
	Base string
}

// Write serializes doc to w.
func Write(w io.Writer, doc *jsonld.Document, opts Options) error {
	switch opts.Format {
	case FormatJSONLD, "":
		return doc.Encode(w, opts.Pretty)
	case FormatNTriples:
		nw := NewNTriplesWriter()
		for _, t := range ToTriples(doc, opts.Base) {
			nw.WriteTriple(t)
		}
		_, err := io.WriteString(w, nw.String())
		return err
	case FormatTurtle:
		tw := NewTurtleWriter()
		tw.WritePrefixes()
		tw.WriteTriples(ToTriples(doc, opts.Base))
		_, err := io.WriteString(w, tw.String())
		return err
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// defaultPrefixes returns the namespace prefixes used in Turtle output.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":         "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"xsd":         rocrate.XSDNamespace,
		"schema":      rocrate.SchemaNamespace,
		"dct":         rocrate.DCTNamespace,
		"pcdm":        rocrate.PCDMNamespace,
		"consolidate": rocrate.ConsolidateNamespace,
	}
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(t Triple) {
	w.sb.WriteString(fmt.Sprintf("%s <%s> %s .\n", formatNTriples(t.Subject), t.Predicate, formatNTriples(t.Object)))
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

func formatNTriples(t Term) string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	}
	lit := `"` + escapeString(t.Value) + `"`
	switch {
	case t.Language != "":
		return lit + "@" + t.Language
	case t.Datatype != "":
		return lit + "^^<" + t.Datatype + ">"
	}
	return lit
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer with default prefixes.
func NewTurtleWriter() *TurtleWriter {
	return &TurtleWriter{
		prefixes: defaultPrefixes(),
	}
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WritePrefixes writes prefix declarations.
func (w *TurtleWriter) WritePrefixes() {
	// Sort prefixes for consistent output
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteTriples writes triples grouped by subject, in first-seen order.
func (w *TurtleWriter) WriteTriples(triples []Triple) {
	var order []Term
	bySubject := make(map[Term][]Triple)
	for _, t := range triples {
		if _, seen := bySubject[t.Subject]; !seen {
			order = append(order, t.Subject)
		}
		bySubject[t.Subject] = append(bySubject[t.Subject], t)
	}

	for _, s := range order {
		w.sb.WriteString(w.term(s) + "\n")
		group := bySubject[s]
		for i, t := range group {
			predicate := w.iri(t.Predicate)
			if t.Predicate == rocrate.RDFType {
				predicate = "a"
			}
			terminator := " ;"
			if i == len(group)-1 {
				terminator = " ."
			}
			w.sb.WriteString(fmt.Sprintf("    %s %s%s\n", predicate, w.term(t.Object), terminator))
		}
		w.sb.WriteString("\n")
	}
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

var localName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// iri abbreviates an IRI with a known prefix where the local part allows it.
func (w *TurtleWriter) iri(v string) string {
	best := ""
	for prefix, ns := range w.prefixes {
		if strings.HasPrefix(v, ns) && localName.MatchString(v[len(ns):]) && (best == "" || len(ns) > len(w.prefixes[best])) {
			best = prefix
		}
	}
	if best == "" {
		return "<" + v + ">"
	}
	return best + ":" + v[len(w.prefixes[best]):]
}

func (w *TurtleWriter) term(t Term) string {
	switch t.Kind {
	case TermIRI:
		return w.iri(t.Value)
	case TermBlank:
		return "_:" + t.Value
	}
	lit := `"` + escapeString(t.Value) + `"`
	switch {
	case t.Language != "":
		return lit + "@" + t.Language
	case t.Datatype != "":
		return lit + "^^" + w.iri(t.Datatype)
	}
	return lit
}
