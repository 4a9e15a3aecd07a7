package bson

// HumanReadable marks a value, and everything nested beneath it, for the
// human-readable representation: date-times encode as RFC 3339 strings and
// object identifiers as hex strings instead of their native wire forms.
// The flag is inherited by all descendants once set; a nested value cannot
// opt back out. Decoding accepts the same string forms so a document
// produced through the wrapper round-trips byte-identically.
//
// The marker is an unexported method, so no user type can collide with it.
type HumanReadable[T any] struct {
	Value T
}

func (HumanReadable[T]) bsonHumanReadable() {}

// UTF8Lossy requests lossy UTF-8 recovery while decoding from raw bytes:
// invalid sequences inside strings (and keys) are replaced with the
// Unicode replacement character instead of failing. It has no effect on
// encoding, or on decoding from already-typed in-memory values.
type UTF8Lossy[T any] struct {
	Value T
}

func (UTF8Lossy[T]) bsonUTF8Lossy() {}

// Marker interfaces for wrapper detection. Both wrappers keep their
// payload in field 0; the bridge relies on that.
type (
	humanReadableFlag interface{ bsonHumanReadable() }
	utf8LossyFlag     interface{ bsonUTF8Lossy() }
)
