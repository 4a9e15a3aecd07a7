package bson

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// appendHeader appends the type tag and null-terminated key.
func appendHeader(dst []byte, t Type, key string) []byte {
	dst = append(dst, byte(t))
	dst = append(dst, key...)
	return append(dst, 0x00)
}

// appendString appends a length-prefixed string: int32 byte length
// including the terminator, the UTF-8 bytes, and a terminator.
func appendString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0x00)
}

// checkCString rejects embedded null bytes. The check runs before any
// bytes are written so a violation never produces a malformed buffer.
func checkCString(s string) error {
	if strings.IndexByte(s, 0x00) >= 0 {
		return ErrNullByteInKey
	}
	return nil
}

// appendElement appends one encoded element (tag, key, value) to dst. On
// error dst may hold a partial element; callers stage into scratch buffers
// so partial writes never reach a live document.
func appendElement(dst []byte, key string, value any, depth int) ([]byte, error) {
	if err := checkCString(key); err != nil {
		return dst, err
	}
	if depth > maxNestingDepth {
		return dst, ErrTooDeep
	}

	switch v := value.(type) {
	case float64:
		dst = appendHeader(dst, TypeDouble, key)
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v)), nil
	case float32:
		dst = appendHeader(dst, TypeDouble, key)
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(v))), nil
	case string:
		return appendString(appendHeader(dst, TypeString, key), v), nil
	case bool:
		dst = appendHeader(dst, TypeBoolean, key)
		if v {
			return append(dst, 0x01), nil
		}
		return append(dst, 0x00), nil
	case int32:
		dst = appendHeader(dst, TypeInt32, key)
		return binary.LittleEndian.AppendUint32(dst, uint32(v)), nil
	case int64:
		dst = appendHeader(dst, TypeInt64, key)
		return binary.LittleEndian.AppendUint64(dst, uint64(v)), nil
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return appendElement(dst, key, int32(v), depth)
		}
		return appendElement(dst, key, int64(v), depth)
	case int8:
		return appendElement(dst, key, int32(v), depth)
	case int16:
		return appendElement(dst, key, int32(v), depth)
	case uint8:
		return appendElement(dst, key, int32(v), depth)
	case uint16:
		return appendElement(dst, key, int32(v), depth)
	case uint32:
		if v <= math.MaxInt32 {
			return appendElement(dst, key, int32(v), depth)
		}
		return appendElement(dst, key, int64(v), depth)
	case uint64:
		if v > math.MaxInt64 {
			return dst, fmt.Errorf("%w: uint64 %d overflows int64", ErrLossyConversion, v)
		}
		return appendElement(dst, key, int64(v), depth)
	case uint:
		return appendElement(dst, key, uint64(v), depth)
	case DateTime:
		dst = appendHeader(dst, TypeDateTime, key)
		return binary.LittleEndian.AppendUint64(dst, uint64(v)), nil
	case time.Time:
		return appendElement(dst, key, NewDateTime(v), depth)
	case Timestamp:
		dst = appendHeader(dst, TypeTimestamp, key)
		dst = binary.LittleEndian.AppendUint32(dst, v.I)
		return binary.LittleEndian.AppendUint32(dst, v.T), nil
	case Binary:
		return appendBinary(appendHeader(dst, TypeBinary, key), v), nil
	case []byte:
		return appendBinary(appendHeader(dst, TypeBinary, key), Binary{Subtype: SubtypeGeneric, Data: v}), nil
	case uuid.UUID:
		return appendBinary(appendHeader(dst, TypeBinary, key), Binary{Subtype: SubtypeUUID, Data: v[:]}), nil
	case ObjectID:
		return append(appendHeader(dst, TypeObjectID, key), v[:]...), nil
	case Regex:
		if err := checkCString(v.Pattern); err != nil {
			return dst, err
		}
		if err := checkCString(v.Options); err != nil {
			return dst, err
		}
		dst = appendHeader(dst, TypeRegex, key)
		dst = append(dst, v.Pattern...)
		dst = append(dst, 0x00)
		dst = append(dst, v.Options...)
		return append(dst, 0x00), nil
	case JavaScript:
		return appendString(appendHeader(dst, TypeJavaScript, key), string(v)), nil
	case Symbol:
		return appendString(appendHeader(dst, TypeSymbol, key), string(v)), nil
	case CodeWithScope:
		scope := v.Scope
		if scope == nil {
			scope = NewDocument()
		}
		scopeBytes, err := encodeDocument(scope, depth+1)
		if err != nil {
			return dst, err
		}
		dst = appendHeader(dst, TypeCodeWithScope, key)
		total := 4 + 4 + len(v.Code) + 1 + len(scopeBytes)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(total))
		dst = appendString(dst, v.Code)
		return append(dst, scopeBytes...), nil
	case DBPointer:
		dst = appendHeader(dst, TypeDBPointer, key)
		dst = appendString(dst, v.Namespace)
		return append(dst, v.ID[:]...), nil
	case nil:
		return appendHeader(dst, TypeNull, key), nil
	case Null:
		return appendHeader(dst, TypeNull, key), nil
	case Undefined:
		return appendHeader(dst, TypeUndefined, key), nil
	case MinKey:
		return appendHeader(dst, TypeMinKey, key), nil
	case MaxKey:
		return appendHeader(dst, TypeMaxKey, key), nil
	case Decimal128:
		dst = appendHeader(dst, TypeDecimal128, key)
		h, l := v.GetBytes()
		dst = binary.LittleEndian.AppendUint64(dst, l)
		return binary.LittleEndian.AppendUint64(dst, h), nil
	case *Document:
		if v == nil {
			return appendHeader(dst, TypeNull, key), nil
		}
		body, err := encodeDocument(v, depth+1)
		if err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeDocument, key), body...), nil
	case *Array:
		if v == nil {
			return appendHeader(dst, TypeNull, key), nil
		}
		body, err := encodeArray(v, depth+1)
		if err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeArray, key), body...), nil
	case RawDocument:
		if _, err := NewRawDocument(v); err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeDocument, key), v...), nil
	case RawArray:
		if _, err := NewRawArray(v); err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeArray, key), v...), nil
	case RawValue:
		return appendRawValue(dst, key, v)
	case ValueMarshaler:
		t, data, err := v.MarshalBSONValue()
		if err != nil {
			return dst, err
		}
		return appendRawValue(dst, key, RawValue{Type: t, Data: data})
	case Marshaler:
		body, err := v.MarshalBSON()
		if err != nil {
			return dst, err
		}
		if _, err := NewRawDocument(body); err != nil {
			return dst, err
		}
		return append(appendHeader(dst, TypeDocument, key), body...), nil
	default:
		return dst, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// appendRawValue verifies that data parses as exactly one value of the
// declared type before splicing it in, so externally produced bytes cannot
// corrupt a document.
func appendRawValue(dst []byte, key string, v RawValue) ([]byte, error) {
	r := newRawReader(v.Data)
	r.readValue(v.Type)
	if r.err != nil {
		return dst, r.err
	}
	if r.remaining() != 0 {
		return dst, offsetError(ErrTrailingBytes, r.off)
	}
	return append(appendHeader(dst, v.Type, key), v.Data...), nil
}

// appendBinary appends the binary payload encoding, including the
// redundant inner length carried by the old subtype.
func appendBinary(dst []byte, b Binary) []byte {
	if b.Subtype == SubtypeBinaryOld {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(b.Data)+4))
		dst = append(dst, b.Subtype)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(b.Data)))
		return append(dst, b.Data...)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(b.Data)))
	dst = append(dst, b.Subtype)
	return append(dst, b.Data...)
}

// encodeDocument encodes the typed document into a fresh, framed buffer.
func encodeDocument(d *Document, depth int) ([]byte, error) {
	if depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	dst := make([]byte, 4, 4+d.Len()*16)
	var err error
	for i, k := range d.keys {
		dst, err = appendElement(dst, k, d.values[i], depth)
		if err != nil {
			return nil, err
		}
	}
	dst = append(dst, 0x00)
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(dst)))
	return dst, nil
}

// encodeArray encodes the typed array; keys are the decimal element
// indices.
func encodeArray(a *Array, depth int) ([]byte, error) {
	if depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	dst := make([]byte, 4, 4+a.Len()*16)
	var err error
	for i, v := range a.values {
		dst, err = appendElement(dst, strconv.Itoa(i), v, depth)
		if err != nil {
			return nil, err
		}
	}
	dst = append(dst, 0x00)
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(dst)))
	return dst, nil
}

// Encode serializes the typed document to its wire form.
func (d *Document) Encode() (RawDocument, error) {
	b, err := encodeDocument(d, 1)
	if err != nil {
		return nil, err
	}
	return RawDocument(b), nil
}

// Encode serializes the typed array to its wire form.
func (a *Array) Encode() (RawArray, error) {
	b, err := encodeArray(a, 1)
	if err != nil {
		return nil, err
	}
	return RawArray(b), nil
}
