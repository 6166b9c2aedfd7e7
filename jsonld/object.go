package jsonld

import "slices"

// Well-known JSON-LD keywords.
const (
	KeyID      = "@id"
	KeyType    = "@type"
	KeyContext = "@context"
	KeyGraph   = "@graph"
)

// Object is a JSON object with unique keys kept in insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns a copy of the keys in order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	return true
}

// Range calls fn for each key in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys: slices.Clone(o.keys),
		vals: make(map[string]Value, len(o.vals)),
	}
	for k, v := range o.vals {
		c.vals[k] = v.Clone()
	}
	return c
}

// ID returns the "@id" of the object when it is a string.
func (o *Object) ID() (string, bool) {
	v, ok := o.Get(KeyID)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// SetID sets "@id".
func (o *Object) SetID(id string) {
	o.Set(KeyID, String(id))
}

// Types returns the "@type" labels, accepting a single string or a list.
func (o *Object) Types() []string {
	v, ok := o.Get(KeyType)
	if !ok {
		return nil
	}
	if s, ok := v.AsString(); ok {
		return []string{s}
	}
	items, _ := v.AsArray()
	var types []string
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			types = append(types, s)
		}
	}
	return types
}

// HasType reports whether "@type" contains t.
func (o *Object) HasType(t string) bool {
	return slices.Contains(o.Types(), t)
}

// IsReference reports whether the object is exactly {"@id": "..."}.
func (o *Object) IsReference() bool {
	if o.Len() != 1 {
		return false
	}
	_, ok := o.ID()
	return ok
}

// TypeValue encodes type labels the way documents carry them: a bare
// string for one label, a list otherwise.
func TypeValue(types []string) Value {
	if len(types) == 1 {
		return String(types[0])
	}
	items := make([]Value, len(types))
	for i, t := range types {
		items[i] = String(t)
	}
	return Array(items...)
}
