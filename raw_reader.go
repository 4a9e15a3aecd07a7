package bson

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// rawReader is a cursor over a byte slice that tracks the first error.
// Subsequent reads become no-ops, so element parsing can run a straight
// sequence of reads and check the error once. All reads of byte-like data
// borrow from the underlying slice; nothing is copied.
type rawReader struct {
	src []byte
	off int
	err error

	// utf8Lossy disables UTF-8 validation during structural reads; the
	// deserializer substitutes the replacement character when it
	// materializes strings. It never affects what bytes are consumed.
	utf8Lossy bool
}

func newRawReader(src []byte) *rawReader {
	return &rawReader{src: src}
}

// setError records the first non-nil error.
func (r *rawReader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *rawReader) remaining() int { return len(r.src) - r.off }

func (r *rawReader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if r.remaining() < 1 {
		r.setError(offsetError(ErrTruncated, r.off))
		return 0
	}
	b := r.src[r.off]
	r.off++
	return b
}

// readBytes borrows n bytes from the buffer.
func (r *rawReader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.remaining() < n {
		r.setError(offsetError(ErrTruncated, r.off))
		return nil
	}
	b := r.src[r.off : r.off+n : r.off+n]
	r.off += n
	return b
}

func (r *rawReader) readInt32() int32 {
	b := r.readBytes(4)
	if r.err != nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// readCString borrows the bytes of a null-terminated string, excluding the
// terminator, and validates that they are UTF-8 unless in lossy mode.
func (r *rawReader) readCString() []byte {
	if r.err != nil {
		return nil
	}
	idx := bytes.IndexByte(r.src[r.off:], 0x00)
	if idx < 0 {
		r.setError(offsetError(ErrMissingTerminator, r.off))
		return nil
	}
	b := r.src[r.off : r.off+idx : r.off+idx]
	r.off += idx + 1
	if !r.utf8Lossy && !utf8.Valid(b) {
		r.setError(offsetError(ErrInvalidUTF8, r.off-idx-1))
		return nil
	}
	return b
}

// readStringBytes consumes a length-prefixed string and borrows the full
// wire bytes (prefix, content, terminator). The declared length includes
// the terminator and must cover at least that one byte.
func (r *rawReader) readStringBytes() []byte {
	start := r.off
	l := r.readInt32()
	if r.err != nil {
		return nil
	}
	if l < 1 || int64(l) > int64(r.remaining()) {
		r.setError(offsetError(ErrInvalidLength, start))
		return nil
	}
	content := r.readBytes(int(l))
	if r.err != nil {
		return nil
	}
	if content[l-1] != 0x00 {
		r.setError(offsetError(ErrMissingTerminator, r.off-1))
		return nil
	}
	if !r.utf8Lossy && !utf8.Valid(content[:l-1]) {
		r.setError(offsetError(ErrInvalidUTF8, start))
		return nil
	}
	return r.src[start:r.off:r.off]
}

// readDocumentBytes consumes a nested document or array and borrows its
// full wire bytes. Only the frame is checked here: the declared length
// must fit the remaining buffer and the final byte must be the terminator.
// Interior elements are validated lazily when the nested view is iterated.
func (r *rawReader) readDocumentBytes() []byte {
	start := r.off
	l := r.readInt32()
	if r.err != nil {
		return nil
	}
	if l < 5 || int64(l) > int64(r.remaining())+4 {
		r.setError(offsetError(ErrInvalidLength, start))
		return nil
	}
	r.off = start
	b := r.readBytes(int(l))
	if r.err != nil {
		return nil
	}
	if b[l-1] != 0x00 {
		r.setError(offsetError(ErrMissingTerminator, start+int(l)-1))
		return nil
	}
	return b
}

// readValue consumes the payload of a single value of type t and returns
// it as a RawValue borrowing from the buffer.
func (r *rawReader) readValue(t Type) RawValue {
	start := r.off
	switch t {
	case TypeDouble, TypeDateTime, TypeInt64, TypeTimestamp:
		r.readBytes(8)
	case TypeInt32:
		r.readBytes(4)
	case TypeBoolean:
		b := r.readByte()
		if r.err == nil && b > 1 {
			r.setError(offsetError(ErrInvalidLength, start))
		}
	case TypeObjectID:
		r.readBytes(12)
	case TypeDecimal128:
		r.readBytes(16)
	case TypeNull, TypeUndefined, TypeMinKey, TypeMaxKey:
		// no payload
	case TypeString, TypeJavaScript, TypeSymbol:
		r.readStringBytes()
	case TypeDocument, TypeArray:
		r.readDocumentBytes()
	case TypeBinary:
		l := r.readInt32()
		if r.err == nil && (l < 0 || int64(l) > int64(r.remaining())-1) {
			r.setError(offsetError(ErrInvalidLength, start))
		}
		r.readByte() // subtype
		r.readBytes(int(l))
	case TypeRegex:
		r.readCString()
		r.readCString()
	case TypeDBPointer:
		r.readStringBytes()
		r.readBytes(12)
	case TypeCodeWithScope:
		l := r.readInt32()
		// 4 length + 5 minimal string + 5 minimal scope document
		if r.err == nil && (l < 14 || int64(l) > int64(r.remaining())+4) {
			r.setError(offsetError(ErrInvalidLength, start))
		}
		if r.err == nil {
			r.readStringBytes()
			scopeStart := r.off
			r.readDocumentBytes()
			if r.err == nil && r.off-start != int(l) {
				r.setError(offsetError(ErrInvalidLength, scopeStart))
			}
		}
	default:
		r.setError(offsetError(ErrInvalidType, start-1))
	}
	if r.err != nil {
		return RawValue{}
	}
	return RawValue{
		Type:      t,
		Data:      r.src[start:r.off:r.off],
		utf8Lossy: r.utf8Lossy,
	}
}
