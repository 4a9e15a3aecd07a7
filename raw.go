package bson

import (
	"encoding/binary"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

// RawDocument is a zero-copy view over the encoded bytes of a document.
// The view borrows the buffer it was constructed over and must not outlive
// it. Construction checks only the frame (length prefix and terminator);
// elements are validated lazily as they are reached, so a well-formed
// prefix of a damaged document remains readable.
type RawDocument []byte

// NewRawDocument frames src as a document. It fails on immediately
// detectable truncation: the buffer must be at least five bytes, the length
// prefix must equal the buffer length, and the final byte must be zero.
func NewRawDocument(src []byte) (RawDocument, error) {
	if len(src) < 5 {
		return nil, offsetError(ErrTruncated, len(src))
	}
	l := int32(binary.LittleEndian.Uint32(src[0:4]))
	if int64(l) != int64(len(src)) {
		return nil, offsetError(ErrInvalidLength, 0)
	}
	if src[len(src)-1] != 0x00 {
		return nil, offsetError(ErrMissingTerminator, len(src)-1)
	}
	return RawDocument(src), nil
}

// Iter returns a restartable iterator over the document's elements. Each
// Next call validates exactly one element; the iterator is exhausted after
// the first error.
func (d RawDocument) Iter() *RawIter {
	return newRawIter(d, false)
}

// Get returns the value of the first element with the given key, or false
// if no such element exists. The scan is linear in the number of elements;
// documents are typically small and this is not optimized.
func (d RawDocument) Get(key string) (RawValue, bool, error) {
	it := d.Iter()
	for it.Next() {
		if it.Key() == key {
			return it.Value(), true, nil
		}
	}
	if err := it.Err(); err != nil {
		return RawValue{}, false, err
	}
	return RawValue{}, false, nil
}

// Validate walks every element, including nested documents and arrays, and
// returns the first malformation found.
func (d RawDocument) Validate() error {
	return d.validate(1)
}

func (d RawDocument) validate(depth int) error {
	if depth > maxNestingDepth {
		return ErrTooDeep
	}
	it := d.Iter()
	for it.Next() {
		v := it.Value()
		switch v.Type {
		case TypeDocument, TypeArray:
			sub, err := v.Document()
			if err != nil {
				return err
			}
			if err := sub.validate(depth + 1); err != nil {
				return err
			}
		case TypeCodeWithScope:
			_, scope, err := v.CodeWithScope()
			if err != nil {
				return err
			}
			if err := scope.validate(depth + 1); err != nil {
				return err
			}
		}
	}
	return it.Err()
}

// Decode materializes the document into the typed value model.
func (d RawDocument) Decode() (*Document, error) {
	return decodeDocument(d, 1)
}

// WriteTo writes the encoded bytes to w.
func (d RawDocument) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d)
	return int64(n), err
}

// RawArray is a zero-copy view over the encoded bytes of an array. Arrays
// share the document wire format; only the key convention differs, and the
// view ignores keys entirely.
type RawArray []byte

// NewRawArray frames src as an array, with the same checks as
// NewRawDocument.
func NewRawArray(src []byte) (RawArray, error) {
	d, err := NewRawDocument(src)
	if err != nil {
		return nil, err
	}
	return RawArray(d), nil
}

// Iter returns a restartable iterator over the array's elements.
func (a RawArray) Iter() *RawIter {
	return newRawIter(RawDocument(a), false)
}

// Index returns the value at position i. It iterates and counts, so access
// is O(n); callers that visit every element should iterate instead.
func (a RawArray) Index(i int) (RawValue, bool, error) {
	it := a.Iter()
	n := 0
	for it.Next() {
		if n == i {
			return it.Value(), true, nil
		}
		n++
	}
	if err := it.Err(); err != nil {
		return RawValue{}, false, err
	}
	return RawValue{}, false, nil
}

// Count iterates the array and returns the number of elements.
func (a RawArray) Count() (int, error) {
	it := a.Iter()
	n := 0
	for it.Next() {
		n++
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// Decode materializes the array into the typed value model.
func (a RawArray) Decode() (*Array, error) {
	return decodeArray(a, 1)
}

// RawValue is a single value borrowed from an encoded buffer: the type tag
// and the value's wire bytes. Byte-like accessors (strings, nested
// documents, binary) borrow from Data; fixed-width scalars are copied out.
type RawValue struct {
	Type Type
	Data []byte

	utf8Lossy bool
}

// need reports truncation when Data holds fewer than n bytes. Values
// produced by iteration are already sized correctly; the guard keeps
// caller-constructed RawValues from panicking.
func (v RawValue) need(n int) error {
	if len(v.Data) < n {
		return offsetError(ErrTruncated, len(v.Data))
	}
	return nil
}

// Double returns the value as a float64.
func (v RawValue) Double() (float64, error) {
	if v.Type != TypeDouble {
		return 0, v.typeMismatch(TypeDouble)
	}
	if err := v.need(8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.Data)), nil
}

// StringValue returns the value of a string element. In lossy mode invalid
// UTF-8 sequences are replaced with the Unicode replacement character;
// otherwise they were already rejected during iteration.
func (v RawValue) StringValue() (string, error) {
	switch v.Type {
	case TypeString:
		return v.stringAt(0)
	default:
		return "", v.typeMismatch(TypeString)
	}
}

// Document returns a nested document or array view borrowing from Data.
func (v RawValue) Document() (RawDocument, error) {
	if v.Type != TypeDocument && v.Type != TypeArray {
		return nil, v.typeMismatch(TypeDocument)
	}
	return NewRawDocument(v.Data)
}

// Array returns a nested array view borrowing from Data.
func (v RawValue) Array() (RawArray, error) {
	if v.Type != TypeArray {
		return nil, v.typeMismatch(TypeArray)
	}
	return NewRawArray(v.Data)
}

// Binary returns the subtype and payload of a binary value. The payload
// borrows from Data. For the old binary subtype the redundant inner length
// prefix is stripped.
func (v RawValue) Binary() (Binary, error) {
	if v.Type != TypeBinary {
		return Binary{}, v.typeMismatch(TypeBinary)
	}
	if err := v.need(5); err != nil {
		return Binary{}, err
	}
	l := int32(binary.LittleEndian.Uint32(v.Data[0:4]))
	if l < 0 || int64(5)+int64(l) > int64(len(v.Data)) {
		return Binary{}, offsetError(ErrInvalidLength, 0)
	}
	subtype := v.Data[4]
	payload := v.Data[5 : 5+l]
	if subtype == SubtypeBinaryOld {
		if l < 4 {
			return Binary{}, offsetError(ErrInvalidLength, 0)
		}
		inner := int32(binary.LittleEndian.Uint32(payload[0:4]))
		if int64(inner) != int64(l)-4 {
			return Binary{}, offsetError(ErrInvalidLength, 5)
		}
		payload = payload[4:]
	}
	return Binary{Subtype: subtype, Data: payload}, nil
}

// ObjectID returns the 12-byte identifier.
func (v RawValue) ObjectID() (ObjectID, error) {
	if v.Type != TypeObjectID {
		return ObjectID{}, v.typeMismatch(TypeObjectID)
	}
	if err := v.need(12); err != nil {
		return ObjectID{}, err
	}
	var oid ObjectID
	copy(oid[:], v.Data)
	return oid, nil
}

// Boolean returns the value as a bool.
func (v RawValue) Boolean() (bool, error) {
	if v.Type != TypeBoolean {
		return false, v.typeMismatch(TypeBoolean)
	}
	if err := v.need(1); err != nil {
		return false, err
	}
	return v.Data[0] == 0x01, nil
}

// DateTime returns the value as milliseconds since the epoch.
func (v RawValue) DateTime() (DateTime, error) {
	if v.Type != TypeDateTime {
		return 0, v.typeMismatch(TypeDateTime)
	}
	if err := v.need(8); err != nil {
		return 0, err
	}
	return DateTime(binary.LittleEndian.Uint64(v.Data)), nil
}

// Regex returns the pattern and options of a regular expression value.
func (v RawValue) Regex() (Regex, error) {
	if v.Type != TypeRegex {
		return Regex{}, v.typeMismatch(TypeRegex)
	}
	i := indexNull(v.Data)
	if i == len(v.Data) {
		return Regex{}, offsetError(ErrMissingTerminator, i)
	}
	pattern := v.decodeText(v.Data[:i])
	rest := v.Data[i+1:]
	j := indexNull(rest)
	return Regex{Pattern: pattern, Options: v.decodeText(rest[:j])}, nil
}

// DBPointer returns the namespace and identifier of a dbPointer value.
func (v RawValue) DBPointer() (DBPointer, error) {
	if v.Type != TypeDBPointer {
		return DBPointer{}, v.typeMismatch(TypeDBPointer)
	}
	ns, err := v.stringAt(0)
	if err != nil {
		return DBPointer{}, err
	}
	if err := v.need(12); err != nil {
		return DBPointer{}, err
	}
	var oid ObjectID
	copy(oid[:], v.Data[len(v.Data)-12:])
	return DBPointer{Namespace: ns, ID: oid}, nil
}

// JavaScript returns the code of a javascript value.
func (v RawValue) JavaScript() (JavaScript, error) {
	if v.Type != TypeJavaScript {
		return "", v.typeMismatch(TypeJavaScript)
	}
	s, err := v.stringAt(0)
	return JavaScript(s), err
}

// Symbol returns the value of a symbol element.
func (v RawValue) Symbol() (Symbol, error) {
	if v.Type != TypeSymbol {
		return "", v.typeMismatch(TypeSymbol)
	}
	s, err := v.stringAt(0)
	return Symbol(s), err
}

// CodeWithScope returns the code and borrowing scope view of a
// javascriptWithScope value.
func (v RawValue) CodeWithScope() (code string, scope RawDocument, err error) {
	if v.Type != TypeCodeWithScope {
		return "", nil, v.typeMismatch(TypeCodeWithScope)
	}
	code, err = v.stringAt(4)
	if err != nil {
		return "", nil, err
	}
	codeLen := int32(binary.LittleEndian.Uint32(v.Data[4:8]))
	scope, err = NewRawDocument(v.Data[8+codeLen:])
	if err != nil {
		return "", nil, err
	}
	return code, scope, nil
}

// Int32 returns the value as an int32.
func (v RawValue) Int32() (int32, error) {
	if v.Type != TypeInt32 {
		return 0, v.typeMismatch(TypeInt32)
	}
	if err := v.need(4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(v.Data)), nil
}

// Timestamp returns the value as a Timestamp.
func (v RawValue) Timestamp() (Timestamp, error) {
	if v.Type != TypeTimestamp {
		return Timestamp{}, v.typeMismatch(TypeTimestamp)
	}
	if err := v.need(8); err != nil {
		return Timestamp{}, err
	}
	// increment occupies the low four bytes on the wire.
	return Timestamp{
		I: binary.LittleEndian.Uint32(v.Data[0:4]),
		T: binary.LittleEndian.Uint32(v.Data[4:8]),
	}, nil
}

// Int64 returns the value as an int64.
func (v RawValue) Int64() (int64, error) {
	if v.Type != TypeInt64 {
		return 0, v.typeMismatch(TypeInt64)
	}
	if err := v.need(8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(v.Data)), nil
}

// Decimal128 returns the value as a Decimal128.
func (v RawValue) Decimal128() (Decimal128, error) {
	if v.Type != TypeDecimal128 {
		return Decimal128{}, v.typeMismatch(TypeDecimal128)
	}
	if err := v.need(16); err != nil {
		return Decimal128{}, err
	}
	l := binary.LittleEndian.Uint64(v.Data[0:8])
	h := binary.LittleEndian.Uint64(v.Data[8:16])
	return NewDecimal128(h, l), nil
}

func (v RawValue) typeMismatch(want Type) error {
	return errTypeMismatch(want, v.Type)
}

// stringAt parses a length-prefixed string starting at the given offset
// into Data.
func (v RawValue) stringAt(off int) (string, error) {
	if err := v.need(off + 4); err != nil {
		return "", err
	}
	l := int32(binary.LittleEndian.Uint32(v.Data[off : off+4]))
	if l < 1 || int64(off)+4+int64(l) > int64(len(v.Data)) {
		return "", offsetError(ErrInvalidLength, off)
	}
	content := v.Data[off+4 : off+4+int(l)-1]
	if !utf8.Valid(content) {
		if v.utf8Lossy {
			return lossyString(content), nil
		}
		return "", offsetError(ErrInvalidUTF8, off)
	}
	return string(content), nil
}

// decodeText converts already-bounded cstring bytes, honoring lossy mode.
func (v RawValue) decodeText(b []byte) string {
	if v.utf8Lossy && !utf8.Valid(b) {
		return lossyString(b)
	}
	return string(b)
}

// lossyString decodes b rune by rune, substituting the Unicode
// replacement character for every byte that does not begin a valid
// sequence. Adjacent invalid bytes each produce their own replacement;
// a literal U+FFFD already present in the input passes through.
func lossyString(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}

func indexNull(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}
