package bson

import (
	"time"
)

// DateTime is a BSON UTC datetime: milliseconds since the Unix epoch as a
// signed 64-bit integer. The full int64 range is representable on the wire
// and round-trips losslessly even when it lies outside what time.Time can
// express; only the human-readable conversions fail for such values.
type DateTime int64

// NewDateTime truncates t to millisecond precision.
func NewDateTime(t time.Time) DateTime {
	return DateTime(t.UnixMilli())
}

// Time converts back to a time.Time in UTC. The conversion is only
// meaningful for values within time.Time's representable range.
func (dt DateTime) Time() time.Time {
	return time.UnixMilli(int64(dt)).UTC()
}

func (dt DateTime) String() string {
	return dt.Time().Format(time.RFC3339Nano)
}

// Timestamp is the BSON internal timestamp: seconds since the epoch and an
// ordinal increment, both unsigned 32-bit. On the wire the increment is
// stored in the low four bytes and the time in the high four.
type Timestamp struct {
	T uint32 // seconds since epoch
	I uint32 // ordinal increment
}

// Compare orders two timestamps as the 64-bit pair (time, increment),
// returning -1, 0, or +1.
func (ts Timestamp) Compare(other Timestamp) int {
	a := uint64(ts.T)<<32 | uint64(ts.I)
	b := uint64(other.T)<<32 | uint64(other.I)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Binary is a BSON binary value: a subtype byte and an opaque payload.
type Binary struct {
	Subtype byte
	Data    []byte
}

// Regex is a BSON regular expression: a pattern and a set of option flags.
// Both are cstrings on the wire and must not contain a null byte.
type Regex struct {
	Pattern string
	Options string
}

// JavaScript is a BSON JavaScript code value without a scope.
type JavaScript string

// Symbol is the deprecated BSON symbol type. It is decoded and re-encoded
// faithfully but new documents should use string.
type Symbol string

// CodeWithScope is JavaScript code paired with a scope document providing
// variable bindings.
type CodeWithScope struct {
	Code  string
	Scope *Document
}

// DBPointer is the deprecated BSON DBPointer type: a namespace string and
// an ObjectID.
type DBPointer struct {
	Namespace string
	ID        ObjectID
}

// Null is the BSON null value. Untyped nil is also accepted when encoding;
// decoding always materializes Null.
type Null struct{}

// Undefined is the deprecated BSON undefined value.
type Undefined struct{}

// MinKey sorts before every other BSON value.
type MinKey struct{}

// MaxKey sorts after every other BSON value.
type MaxKey struct{}

// A Document is the materialized, ordered form of a BSON document. Field
// order is insertion order and is preserved through encoding. Lookup is a
// linear scan: documents are typically small and the raw layer makes the
// same trade.
type Document struct {
	keys   []string
	values []any
}

// NewDocument returns an empty document.
func NewDocument() *Document { return &Document{} }

// Append adds a field to the end of the document. The value must belong to
// the BSON type set (or be convertible: int, time.Time, []byte, uuid.UUID);
// unsupported values are reported when the document is encoded.
func (d *Document) Append(key string, value any) *Document {
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
	return d
}

// Get returns the value of the first field with the given key.
func (d *Document) Get(key string) (any, bool) {
	for i, k := range d.keys {
		if k == key {
			return d.values[i], true
		}
	}
	return nil, false
}

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.keys) }

// Keys returns the field names in order. The slice is shared; callers must
// not modify it.
func (d *Document) Keys() []string { return d.keys }

// Range calls fn for each field in order until it returns false.
func (d *Document) Range(fn func(key string, value any) bool) {
	for i, k := range d.keys {
		if !fn(k, d.values[i]) {
			return
		}
	}
}

// An Array is the materialized form of a BSON array.
type Array struct {
	values []any
}

// NewArray returns an empty array.
func NewArray() *Array { return &Array{} }

// Push appends a value to the end of the array.
func (a *Array) Push(value any) *Array {
	a.values = append(a.values, value)
	return a
}

// Get returns the value at index i.
func (a *Array) Get(i int) (any, bool) {
	if i < 0 || i >= len(a.values) {
		return nil, false
	}
	return a.values[i], true
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.values) }

// Range calls fn for each element in order until it returns false.
func (a *Array) Range(fn func(i int, value any) bool) {
	for i, v := range a.values {
		if !fn(i, v) {
			return
		}
	}
}
