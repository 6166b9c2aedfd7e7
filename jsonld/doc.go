// Package jsonld holds the in-memory model for JSON-LD documents.
//
// A Value is a tagged variant over the JSON shapes. Objects keep their keys
// in insertion order and numbers keep their literal text, so a document that
// is decoded and encoded again comes out unchanged apart from whitespace.
//
// Entities are plain *Object values carrying an "@id"; a Graph is the
// ordered list of a document's entities.
package jsonld
