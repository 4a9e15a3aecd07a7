package bson

import (
	"encoding/binary"
	"strconv"
)

// DocumentBuilder owns a growable buffer holding an encoded document. The
// buffer is a valid, independently readable document after every operation:
// each append splices the element bytes in front of the terminator and
// rewrites the four-byte length prefix. There is no finalize step.
//
// A builder is a single-writer resource; concurrent mutation must be
// prevented by the caller. Reads through RawDocument views are safe once
// mutation has stopped.
type DocumentBuilder struct {
	buf []byte
}

// NewDocumentBuilder returns a builder holding an empty document.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{buf: emptyDocument()}
}

// NewDocumentBuilderFromBytes takes ownership of an already-encoded
// document. The frame is validated; elements are validated lazily as with
// any raw view.
func NewDocumentBuilderFromBytes(src []byte) (*DocumentBuilder, error) {
	if _, err := NewRawDocument(src); err != nil {
		return nil, err
	}
	return &DocumentBuilder{buf: src}, nil
}

func emptyDocument() []byte {
	return []byte{5, 0, 0, 0, 0}
}

// Append encodes value under key and adds it to the document. The append
// is atomic: on error the builder is unchanged, so the buffer's declared
// length never disagrees with its bytes.
func (b *DocumentBuilder) Append(key string, value any) error {
	scratch := getScratch()
	defer putScratch(scratch)

	elem, err := appendElement(*scratch, key, value, 1)
	*scratch = elem
	if err != nil {
		return err
	}

	b.buf = append(b.buf[:len(b.buf)-1], elem...)
	b.buf = append(b.buf, 0x00)
	binary.LittleEndian.PutUint32(b.buf[0:4], uint32(len(b.buf)))
	return nil
}

// Bytes returns the underlying buffer. The slice is shared with the
// builder; appending to the builder may reallocate it.
func (b *DocumentBuilder) Bytes() []byte { return b.buf }

// Len returns the encoded size in bytes.
func (b *DocumentBuilder) Len() int { return len(b.buf) }

// RawDocument returns a view over the builder's buffer. The view remains
// valid only until the next append.
func (b *DocumentBuilder) RawDocument() RawDocument { return RawDocument(b.buf) }

// Decode materializes the builder's current contents.
func (b *DocumentBuilder) Decode() (*Document, error) {
	return b.RawDocument().Decode()
}

// ArrayBuilder owns a growable buffer holding an encoded array. It tracks
// the logical element count itself rather than re-deriving it by scanning,
// and synthesizes each pushed element's key from that count.
type ArrayBuilder struct {
	inner DocumentBuilder
	n     int
}

// NewArrayBuilder returns a builder holding an empty array.
func NewArrayBuilder() *ArrayBuilder {
	return &ArrayBuilder{inner: DocumentBuilder{buf: emptyDocument()}}
}

// NewArrayBuilderFromBytes takes ownership of an already-encoded array.
// Counting the existing elements costs one structural pass, paid once at
// construction.
func NewArrayBuilderFromBytes(src []byte) (*ArrayBuilder, error) {
	arr, err := NewRawArray(src)
	if err != nil {
		return nil, err
	}
	n, err := arr.Count()
	if err != nil {
		return nil, err
	}
	return &ArrayBuilder{inner: DocumentBuilder{buf: src}, n: n}, nil
}

// Push appends value under the next sequential index key. Like
// DocumentBuilder.Append, a failed push leaves the builder unchanged.
func (b *ArrayBuilder) Push(value any) error {
	if err := b.inner.Append(strconv.Itoa(b.n), value); err != nil {
		return err
	}
	b.n++
	return nil
}

// Len returns the number of elements pushed or counted at construction.
func (b *ArrayBuilder) Len() int { return b.n }

// Bytes returns the underlying buffer, shared with the builder.
func (b *ArrayBuilder) Bytes() []byte { return b.inner.buf }

// RawArray returns a view over the builder's buffer, valid until the next
// push.
func (b *ArrayBuilder) RawArray() RawArray { return RawArray(b.inner.buf) }

// Decode materializes the builder's current contents.
func (b *ArrayBuilder) Decode() (*Array, error) {
	return b.RawArray().Decode()
}
