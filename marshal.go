package bson

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// Marshaler is implemented by types that can encode themselves as a whole
// BSON document.
type Marshaler interface {
	MarshalBSON() ([]byte, error)
}

// ValueMarshaler is implemented by types that can encode themselves as a
// single BSON value of any type.
type ValueMarshaler interface {
	MarshalBSONValue() (Type, []byte, error)
}

// Unmarshaler is implemented by types that can decode themselves from a
// whole BSON document.
type Unmarshaler interface {
	UnmarshalBSON(data []byte) error
}

// ValueUnmarshaler is implemented by types that can decode themselves from
// a single BSON value.
type ValueUnmarshaler interface {
	UnmarshalBSONValue(t Type, data []byte) error
}

// Marshal encodes v as a BSON document. v may be a *Document, a
// RawDocument, a Marshaler, a map with string keys, or a struct (fields
// are controlled by `bson` tags). Wrapping v, or any of its fields, in
// HumanReadable switches that subtree to the human-readable
// representation.
func Marshal(v any) ([]byte, error) {
	switch d := v.(type) {
	case *Document:
		raw, err := d.Encode()
		if err != nil {
			return nil, err
		}
		return raw, nil
	case RawDocument:
		if _, err := NewRawDocument(d); err != nil {
			return nil, err
		}
		return d, nil
	case Marshaler:
		b, err := d.MarshalBSON()
		if err != nil {
			return nil, err
		}
		if _, err := NewRawDocument(b); err != nil {
			return nil, err
		}
		return b, nil
	}
	return reflectEncodeDocument(reflect.ValueOf(v), encodeContext{depth: 1})
}

// Unmarshal decodes a BSON document into out, which must be a non-nil
// pointer to a *Document, map, or struct. Failures deep inside nested
// values are reported as a *DecodeError carrying the field path. Wrapping
// the destination (or a field) in UTF8Lossy recovers invalid UTF-8 instead
// of failing.
func Unmarshal(data []byte, out any) error {
	raw, err := NewRawDocument(data)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: destination must be a non-nil pointer, got %T", ErrUnsupportedValue, out)
	}
	return reflectDecodeDocument(raw, rv.Elem(), decodeContext{depth: 1})
}

// MarshalValue encodes v and materializes the result in the typed value
// model, mirroring Marshal's output as a *Document tree instead of bytes.
func MarshalValue(v any) (*Document, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return RawDocument(b).Decode()
}

// UnmarshalValue decodes a typed document into out under the same rules as
// Unmarshal.
func UnmarshalValue(src *Document, out any) error {
	b, err := src.Encode()
	if err != nil {
		return err
	}
	return Unmarshal(b, out)
}

// ReadDocument reads one length-prefixed document from r. It reads exactly
// the declared number of bytes.
func ReadDocument(r io.Reader) (RawDocument, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	l := int32(binary.LittleEndian.Uint32(prefix[:]))
	if l < 5 {
		return nil, offsetError(ErrInvalidLength, 0)
	}
	buf := make([]byte, l)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return NewRawDocument(buf)
}
