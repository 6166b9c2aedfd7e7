// Package graph publishes consolidated crates to the knowledge graph.
//
// Each subject of the crate's RDF view becomes one EntityIngestMessage
// carrying its triples, published on GraphIngestSubject.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/c360studio/semcrate/export"
	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/vocabulary/rocrate"
	"github.com/c360studio/semstreams/message"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// Source tags every triple published by semcrate.
const Source = "semcrate.consolidate"

// Datatypes of triple objects that are not typed literals. An IRI or blank
// node object has no datatype.
const (
	DatatypeString = rocrate.XSDNamespace + "string"
	// DatatypeLangPrefix precedes the language tag of a language-tagged string.
	DatatypeLangPrefix = "@"
)

// EntityType is the message type for crate entity payloads.
var EntityType = message.Type{Domain: "graph", Category: "entity", Version: "v1"}

// EntityIngestMessage is the message format for graph ingestion.
type EntityIngestMessage struct {
	ID        string           `json:"id"`
	CrateID   string           `json:"crate_id"`
	Triples   []message.Triple `json:"triples"`
	UpdatedAt time.Time        `json:"updated_at"`
}

var _ message.Payload = (*EntityIngestMessage)(nil)

func (e *EntityIngestMessage) Schema() message.Type { return EntityType }

func (e *EntityIngestMessage) Validate() error {
	if e.ID == "" {
		return errors.New("entity ID is required")
	}
	return nil
}

func (e *EntityIngestMessage) MarshalJSON() ([]byte, error) {
	type Alias EntityIngestMessage
	return json.Marshal((*Alias)(e))
}

func (e *EntityIngestMessage) UnmarshalJSON(data []byte) error {
	type Alias EntityIngestMessage
	return json.Unmarshal(data, (*Alias)(e))
}

// Publisher sends raw messages. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Messages groups the triples of doc by subject, in first-seen order.
// Relative ids resolve against base as in export.ToTriples. Every triple
// carries crateID as its context.
func Messages(crateID string, doc *jsonld.Document, base string, now time.Time) []*EntityIngestMessage {
	var msgs []*EntityIngestMessage
	index := make(map[string]int)

	for _, t := range export.ToTriples(doc, base) {
		subject := termString(t.Subject)
		i, ok := index[subject]
		if !ok {
			i = len(msgs)
			index[subject] = i
			msgs = append(msgs, &EntityIngestMessage{ID: subject, CrateID: crateID, UpdatedAt: now})
		}
		object, datatype := objectValue(t.Object)
		msgs[i].Triples = append(msgs[i].Triples, message.Triple{
			Subject:    subject,
			Predicate:  t.Predicate,
			Object:     object,
			Source:     Source,
			Timestamp:  now,
			Confidence: 1.0,
			Context:    crateID,
			Datatype:   datatype,
		})
	}
	return msgs
}

// Publish sends each message on subject.
func Publish(ctx context.Context, pub Publisher, subject string, msgs []*EntityIngestMessage) error {
	if pub == nil {
		return nil // Skip publishing if no connection (graceful degradation)
	}
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("invalid entity: %w", err)
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal entity %s: %w", msg.ID, err)
		}
		if err := pub.Publish(subject, data); err != nil {
			return fmt.Errorf("publish entity %s: %w", msg.ID, err)
		}
	}
	return nil
}

func termString(t export.Term) string {
	if t.Kind == export.TermBlank {
		return "_:" + t.Value
	}
	return t.Value
}

// objectValue returns the triple object for t and its datatype. Numbers and
// booleans become Go values; anything that fails to parse stays a string.
func objectValue(t export.Term) (any, string) {
	switch t.Kind {
	case export.TermIRI, export.TermBlank:
		return termString(t), ""
	}

	if t.Language != "" {
		return t.Value, DatatypeLangPrefix + t.Language
	}
	switch t.Datatype {
	case "":
		return t.Value, DatatypeString
	case rocrate.XSDNamespace + "boolean":
		if b, err := strconv.ParseBool(t.Value); err == nil {
			return b, t.Datatype
		}
	case rocrate.XSDNamespace + "integer":
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n, t.Datatype
		}
	case rocrate.XSDNamespace + "double":
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f, t.Datatype
		}
	}
	return t.Value, t.Datatype
}
