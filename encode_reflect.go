package bson

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// encodeContext carries the cross-cutting encoding state through every
// recursive call. The human-readable flag is an explicit argument rather
// than ambient state: once a wrapper sets it, every descendant inherits it
// and nothing can reset it.
type encodeContext struct {
	humanReadable bool
	depth         int
}

// structCache avoids re-parsing struct tags on every call. A typed
// concurrent map keeps it safe for parallel marshalling.
var structCache = xsync.NewMap[reflect.Type, *structInfo]()

type structField struct {
	name      string
	index     int
	omitEmpty bool
}

type structInfo struct {
	fields []structField
	byName map[string]int
}

// cachedStructInfo parses the `bson` tags of t once and caches the result.
// The tag grammar is `bson:"name,omitempty"`; "-" skips the field and an
// empty name defaults to the lowercased field name.
func cachedStructInfo(t reflect.Type) *structInfo {
	if si, ok := structCache.Load(t); ok {
		return si
	}
	si := &structInfo{byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.ToLower(f.Name)
		var omitEmpty bool
		if tag, ok := f.Tag.Lookup("bson"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}
		si.byName[name] = len(si.fields)
		si.fields = append(si.fields, structField{name: name, index: i, omitEmpty: omitEmpty})
	}
	structCache.Store(t, si)
	return si
}

// reflectEncodeDocument encodes a document-shaped value (struct, map with
// string keys, *Document, or a wrapper around one) into a framed buffer.
func reflectEncodeDocument(rv reflect.Value, ec encodeContext) ([]byte, error) {
	if ec.depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	rv, ec, err := unwrapEncode(rv, ec)
	if err != nil {
		return nil, err
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil document", ErrUnsupportedValue)
	}

	if !ec.humanReadable {
		// Fast paths that need no reflection.
		switch d := rv.Interface().(type) {
		case *Document:
			return encodeDocument(d, ec.depth)
		case RawDocument:
			if _, err := NewRawDocument(d); err != nil {
				return nil, err
			}
			return d, nil
		}
	}

	dst := make([]byte, 4, 64)
	switch rv.Kind() {
	case reflect.Struct:
		if d, ok := rv.Interface().(Document); ok {
			dcopy := d
			return reflectEncodeTypedDocument(&dcopy, ec)
		}
		si := cachedStructInfo(rv.Type())
		for _, f := range si.fields {
			fv := rv.Field(f.index)
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			dst, err = reflectEncodeElement(dst, f.name, fv, ec)
			if err != nil {
				return nil, err
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrUnsupportedValue, rv.Type().Key())
		}
		// Map iteration order is random; sort keys so output is stable.
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst, err = reflectEncodeElement(dst, k, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())), ec)
			if err != nil {
				return nil, err
			}
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil document", ErrUnsupportedValue)
		}
		if d, ok := rv.Interface().(*Document); ok {
			return reflectEncodeTypedDocument(d, ec)
		}
		return reflectEncodeDocument(rv.Elem(), ec)
	default:
		return nil, fmt.Errorf("%w: %s is not a document", ErrUnsupportedValue, rv.Type())
	}
	dst = append(dst, 0x00)
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(dst)))
	return dst, nil
}

// reflectEncodeTypedDocument walks a *Document through the reflection
// encoder so the human-readable flag reaches its values.
func reflectEncodeTypedDocument(d *Document, ec encodeContext) ([]byte, error) {
	dst := make([]byte, 4, 64)
	var err error
	for i, k := range d.keys {
		dst, err = reflectEncodeElement(dst, k, reflect.ValueOf(d.values[i]), ec)
		if err != nil {
			return nil, err
		}
	}
	dst = append(dst, 0x00)
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(dst)))
	return dst, nil
}

// unwrapEncode strips interfaces, wrapper types, and nil-able indirection,
// folding wrapper flags into the context.
func unwrapEncode(rv reflect.Value, ec encodeContext) (reflect.Value, encodeContext, error) {
	for {
		if !rv.IsValid() {
			return rv, ec, nil
		}
		switch {
		case rv.Kind() == reflect.Interface:
			if rv.IsNil() {
				return reflect.Value{}, ec, nil
			}
			rv = rv.Elem()
		case rv.CanInterface() && rv.Kind() == reflect.Struct && rv.Type().Implements(humanReadableFlagType):
			ec.humanReadable = true
			rv = rv.Field(0)
		case rv.CanInterface() && rv.Kind() == reflect.Struct && rv.Type().Implements(utf8LossyFlagType):
			// Lossy recovery only affects decoding.
			rv = rv.Field(0)
		default:
			return rv, ec, nil
		}
	}
}

var (
	humanReadableFlagType = reflect.TypeOf((*humanReadableFlag)(nil)).Elem()
	utf8LossyFlagType     = reflect.TypeOf((*utf8LossyFlag)(nil)).Elem()
	valueMarshalerType    = reflect.TypeOf((*ValueMarshaler)(nil)).Elem()
	marshalerType         = reflect.TypeOf((*Marshaler)(nil)).Elem()
)

// reflectEncodeElement appends one element for an arbitrary Go value.
func reflectEncodeElement(dst []byte, key string, rv reflect.Value, ec encodeContext) ([]byte, error) {
	if ec.depth > maxNestingDepth {
		return dst, ErrTooDeep
	}
	rv, ec, err := unwrapEncode(rv, ec)
	if err != nil {
		return dst, err
	}
	if !rv.IsValid() {
		return appendElement(dst, key, nil, ec.depth)
	}

	if rv.CanInterface() {
		if rv.Type().Implements(valueMarshalerType) || rv.Type().Implements(marshalerType) {
			return appendElement(dst, key, rv.Interface(), ec.depth)
		}
		switch v := rv.Interface().(type) {
		case DateTime:
			if ec.humanReadable {
				s, err := FormatRFC3339(v)
				if err != nil {
					return dst, err
				}
				return appendElement(dst, key, s, ec.depth)
			}
			return appendElement(dst, key, v, ec.depth)
		case time.Time:
			return reflectEncodeElement(dst, key, reflect.ValueOf(NewDateTime(v)), ec)
		case ObjectID:
			if ec.humanReadable {
				return appendElement(dst, key, v.Hex(), ec.depth)
			}
			return appendElement(dst, key, v, ec.depth)
		case *Document:
			if v == nil {
				return appendElement(dst, key, nil, ec.depth)
			}
			body, err := reflectEncodeDocument(rv, encodeContext{humanReadable: ec.humanReadable, depth: ec.depth + 1})
			if err != nil {
				return dst, err
			}
			return append(appendHeader(dst, TypeDocument, key), body...), nil
		case *Array:
			if v == nil {
				return appendElement(dst, key, nil, ec.depth)
			}
			if ec.humanReadable {
				return reflectEncodeArrayElement(dst, key, reflect.ValueOf(v.values), ec)
			}
			return appendElement(dst, key, v, ec.depth)
		case CodeWithScope:
			if ec.humanReadable && v.Scope != nil {
				scopeBytes, err := reflectEncodeDocument(reflect.ValueOf(v.Scope), encodeContext{humanReadable: true, depth: ec.depth + 1})
				if err != nil {
					return dst, err
				}
				dst = appendHeader(dst, TypeCodeWithScope, key)
				total := 4 + 4 + len(v.Code) + 1 + len(scopeBytes)
				dst = binary.LittleEndian.AppendUint32(dst, uint32(total))
				dst = appendString(dst, v.Code)
				return append(dst, scopeBytes...), nil
			}
			return appendElement(dst, key, v, ec.depth)
		case float64, float32, string, bool, int32, int64, int, int8, int16,
			uint8, uint16, uint32, uint64, uint, Timestamp, Binary, []byte,
			Regex, JavaScript, Symbol, DBPointer, Null, Undefined,
			MinKey, MaxKey, Decimal128, RawDocument, RawArray, RawValue:
			return appendElement(dst, key, v, ec.depth)
		}
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return appendElement(dst, key, nil, ec.depth)
		}
		return reflectEncodeElement(dst, key, rv.Elem(), ec)
	case reflect.Struct, reflect.Map:
		body, err := reflectEncodeDocument(rv, encodeContext{humanReadable: ec.humanReadable, depth: ec.depth + 1})
		if err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeDocument, key), body...), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return appendElement(dst, key, rv.Bytes(), ec.depth)
		}
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 && rv.Type().Len() == 16 {
			// Sixteen-byte arrays (uuid.UUID and equivalents) encode as a
			// standard UUID binary.
			var data [16]byte
			reflect.ValueOf(&data).Elem().Set(rv)
			return appendElement(dst, key, Binary{Subtype: SubtypeUUID, Data: data[:]}, ec.depth)
		}
		return reflectEncodeArrayElement(dst, key, rv, ec)
	case reflect.String:
		return appendElement(dst, key, rv.String(), ec.depth)
	case reflect.Bool:
		return appendElement(dst, key, rv.Bool(), ec.depth)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return appendElement(dst, key, int32(rv.Int()), ec.depth)
	case reflect.Int64:
		return appendElement(dst, key, rv.Int(), ec.depth)
	case reflect.Int:
		return appendElement(dst, key, int(rv.Int()), ec.depth)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return appendElement(dst, key, uint32(rv.Uint()), ec.depth)
	case reflect.Uint64, reflect.Uint:
		return appendElement(dst, key, rv.Uint(), ec.depth)
	case reflect.Float32, reflect.Float64:
		return appendElement(dst, key, rv.Float(), ec.depth)
	default:
		return dst, fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Type())
	}
}

// reflectEncodeArrayElement appends a slice or array value as a BSON array
// element.
func reflectEncodeArrayElement(dst []byte, key string, rv reflect.Value, ec encodeContext) ([]byte, error) {
	sub := encodeContext{humanReadable: ec.humanReadable, depth: ec.depth + 1}
	if sub.depth > maxNestingDepth {
		return dst, ErrTooDeep
	}
	body := make([]byte, 4, 64)
	var err error
	for i := 0; i < rv.Len(); i++ {
		body, err = reflectEncodeElement(body, strconv.Itoa(i), rv.Index(i), sub)
		if err != nil {
			return dst, err
		}
	}
	body = append(body, 0x00)
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(body)))
	return append(appendHeader(dst, TypeArray, key), body...), nil
}
